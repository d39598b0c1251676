package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"featurepull/blob"
	"featurepull/internal/faults"
	"featurepull/internal/logging"
	"featurepull/internal/telemetry"
)

type Config struct {
	DataPath       string
	RegistryBucket string
	DataBucket     string
	Credentials    blob.Credentials
	// FetchTimeout bounds each fetch; zero means no deadline.
	FetchTimeout time.Duration
	// Descriptor, when set, must exist for provisioning to count as a success.
	Descriptor string
}

// Outcome is the result of fetching one artifact.
type Outcome struct {
	Artifact
	Path string
	Err  error
	Took time.Duration
}

type Report struct {
	Outcomes []Outcome
	// Missing lists required local files absent after all fetches ran.
	Missing []string
}

// OK reports whether every required file is present.
func (r Report) OK() bool { return len(r.Outcomes) > 0 && len(r.Missing) == 0 }

// Provisioner populates the data directory from object storage.
type Provisioner struct {
	cfg     Config
	dial    blob.Dialer
	release *Releaser
}

func New(cfg Config, dial blob.Dialer, release *Releaser) *Provisioner {
	if dial == nil {
		dial = blob.Dial
	}
	if release == nil {
		release = &Releaser{}
	}
	return &Provisioner{cfg: cfg, dial: dial, release: release}
}

// Provision fetches every Required artifact into DataPath.
//
// Missing credentials or an empty data path fail before the store is dialed.
// Fetch failures do not stop the remaining fetches; they are returned
// together, each wrapping faults.ErrStorageFetch, alongside a Report whose
// OK() reflects what actually landed on disk.
func (p *Provisioner) Provision(ctx context.Context) (Report, error) {
	log := logging.L().With("component", "provision")
	var rep Report

	if missing := p.cfg.Credentials.Missing(); len(missing) > 0 {
		return rep, fmt.Errorf("%w: object storage %s not set", faults.ErrPrecondition, strings.Join(missing, ", "))
	}
	if p.cfg.DataPath == "" {
		return rep, fmt.Errorf("%w: data path is required", faults.ErrConfiguration)
	}

	store, err := p.dial(ctx, p.cfg.Credentials)
	if err != nil {
		return rep, fmt.Errorf("%w: connect %s: %w", faults.ErrStorageFetch, p.cfg.Credentials.EndpointURL, err)
	}

	if err := os.MkdirAll(p.cfg.DataPath, 0o755); err != nil {
		return rep, fmt.Errorf("%w: create data path: %v", faults.ErrConfiguration, err)
	}
	p.release.Track(p.cfg.DataPath)

	var errs *multierror.Error
	for _, a := range Required {
		o := p.fetch(ctx, store, a)
		rep.Outcomes = append(rep.Outcomes, o)
		telemetry.ObserveFetch(a.Name, o.Took, o.Err)
		if o.Err != nil {
			log.Warn("artifact fetch failed", "artifact", a.Name, "bucket", p.bucket(a.Kind), "err", o.Err)
			errs = multierror.Append(errs, o.Err)
			continue
		}
		log.Debug("artifact fetched", "artifact", a.Name, "path", o.Path, "took", o.Took)
	}

	for _, a := range Required {
		if path := filepath.Join(p.cfg.DataPath, a.Name); !exists(path) {
			rep.Missing = append(rep.Missing, path)
		}
	}
	if p.cfg.Descriptor != "" && !exists(p.cfg.Descriptor) {
		rep.Missing = append(rep.Missing, p.cfg.Descriptor)
	}
	return rep, errs.ErrorOrNil()
}

func (p *Provisioner) fetch(ctx context.Context, store blob.Store, a Artifact) Outcome {
	o := Outcome{Artifact: a}
	if p.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.FetchTimeout)
		defer cancel()
	}
	bucket := p.bucket(a.Kind)
	start := time.Now()
	path, err := store.Fetch(ctx, bucket, a.Name, p.cfg.DataPath)
	o.Took = time.Since(start)
	if err != nil {
		o.Err = fmt.Errorf("%w: %s/%s: %w", faults.ErrStorageFetch, bucket, a.Name, err)
		return o
	}
	o.Path = path
	return o
}

func (p *Provisioner) bucket(k Kind) string {
	if k == KindRegistry {
		return p.cfg.RegistryBucket
	}
	return p.cfg.DataBucket
}
