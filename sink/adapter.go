package sink

import (
	"context"
	"fmt"
	"time"
)

// Event announces that a training set has been written.
type Event struct {
	Project    string    `json:"project"`
	Output     string    `json:"output"`
	Rows       int       `json:"rows"`
	Features   []string  `json:"features"`
	FinishedAt time.Time `json:"finished_at"`
}

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error                         // driver-specific config ⇒ struct
	Publish(ctx context.Context, ev Event) error // deliver one event
	Close() error                                // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
