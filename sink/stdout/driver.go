package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"featurepull/sink"
)

/* ────────── public config ────────── */
type Config struct {
	Writer io.Writer // nil → os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	mu  sync.Mutex // guards enc
	enc *json.Encoder
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	w := c.Writer
	if w == nil {
		w = os.Stdout
	}
	d.enc = json.NewEncoder(w)
	return nil
}

// Publish writes ev as one JSON line.
func (d *driver) Publish(ctx context.Context, ev sink.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enc == nil {
		return fmt.Errorf("stdout-sink: not configured")
	}
	return d.enc.Encode(ev)
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
