// Package extractor prepares a feature store working directory, serves
// historical feature queries against it, and tears it down again.
//
// Setup runs once, inside New: the descriptor is written, every artifact is
// provisioned, and the outcome is latched as the extractor's State. Queries
// are refused unless setup completed. One Extractor must own a given data
// path and descriptor at a time; nothing here locks them against other
// processes.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"featurepull/blob"
	"featurepull/internal/descriptor"
	"featurepull/internal/faults"
	"featurepull/internal/featurestore"
	"featurepull/internal/featurestore/offline"
	"featurepull/internal/logging"
	"featurepull/internal/provision"
	"featurepull/internal/table"
	"featurepull/internal/telemetry"
)

type State int

const (
	StateUninitialized State = iota
	StateSetupComplete
	StateSetupFailed
)

func (s State) String() string {
	switch s {
	case StateSetupComplete:
		return "setup_complete"
	case StateSetupFailed:
		return "setup_failed"
	default:
		return "uninitialized"
	}
}

type Config struct {
	Project        string
	DataPath       string
	RegistryBucket string
	DataBucket     string
	// RepoPath holds feature_store.yaml; defaults to the working directory.
	RepoPath     string
	Credentials  blob.Credentials
	FetchTimeout time.Duration
}

// ProviderFactory builds the feature provider from a provisioned repo.
type ProviderFactory func(ctx context.Context, repoPath string) (featurestore.Provider, error)

func openOffline(_ context.Context, repoPath string) (featurestore.Provider, error) {
	return offline.Open(repoPath)
}

type Option func(*Extractor)

// WithProvider injects a ready provider. The descriptor is then neither
// written nor required.
func WithProvider(p featurestore.Provider) Option {
	return func(e *Extractor) { e.provider = p }
}

// WithProviderFactory replaces the offline file store used after setup.
func WithProviderFactory(f ProviderFactory) Option {
	return func(e *Extractor) { e.factory = f }
}

// WithDialer replaces blob.Dial for object storage access.
func WithDialer(d blob.Dialer) Option {
	return func(e *Extractor) { e.dial = d }
}

type Extractor struct {
	cfg      Config
	state    State
	setupErr error
	report   provision.Report

	provider featurestore.Provider
	owned    bool // provider was opened by us and must be closed
	factory  ProviderFactory
	dial     blob.Dialer
	release  provision.Releaser
	log      *slog.Logger
}

// FeatureTable is a query result. Table is set only for flattened queries.
type FeatureTable struct {
	Job   featurestore.RetrievalJob
	Table *table.Table
}

// New writes the descriptor, provisions all artifacts and latches the
// resulting state.
//
// Configuration and credential problems are returned as errors and no
// Extractor is built. Fetch failures are not: the Extractor comes back in
// StateSetupFailed with the cause available from SetupErr, so that Cleanup
// can still release whatever was created.
func New(ctx context.Context, cfg Config, opts ...Option) (*Extractor, error) {
	if cfg.RepoPath == "" {
		cfg.RepoPath = "."
	}
	e := &Extractor{
		cfg:     cfg,
		factory: openOffline,
		dial:    blob.Dial,
		log:     logging.L().With("component", "extractor", "project", cfg.Project),
	}
	for _, o := range opts {
		o(e)
	}

	descPath := ""
	if e.provider == nil {
		if _, err := descriptor.Write(cfg.RepoPath, descriptor.Params{Project: cfg.Project, DataPath: cfg.DataPath}); err != nil {
			return nil, err
		}
		descPath = descriptor.Path(cfg.RepoPath)
		e.release.Track(descPath)
	} else if cfg.Project == "" || cfg.DataPath == "" {
		return nil, fmt.Errorf("%w: project and data path are required", faults.ErrConfiguration)
	}

	p := provision.New(provision.Config{
		DataPath:       cfg.DataPath,
		RegistryBucket: cfg.RegistryBucket,
		DataBucket:     cfg.DataBucket,
		Credentials:    cfg.Credentials,
		FetchTimeout:   cfg.FetchTimeout,
		Descriptor:     descPath,
	}, e.dial, &e.release)

	rep, err := p.Provision(ctx)
	e.report = rep
	if errors.Is(err, faults.ErrPrecondition) || errors.Is(err, faults.ErrConfiguration) {
		_ = e.release.Release()
		return nil, err
	}
	e.latch(ctx, rep, err)
	return e, nil
}

func (e *Extractor) latch(ctx context.Context, rep provision.Report, err error) {
	switch {
	case err != nil:
		e.setupErr = err
	case !rep.OK():
		e.setupErr = fmt.Errorf("%w: missing %v", faults.ErrStorageFetch, rep.Missing)
	case e.provider == nil:
		prov, perr := e.factory(ctx, e.cfg.RepoPath)
		if perr != nil {
			e.setupErr = fmt.Errorf("open feature store: %w", perr)
		} else {
			e.provider, e.owned = prov, true
		}
	}

	if e.setupErr != nil {
		e.state = StateSetupFailed
		telemetry.SetupComplete.Set(0)
		e.log.Error("feature store setup failed", "state", e.state, "err", e.setupErr)
		return
	}
	e.state = StateSetupComplete
	telemetry.SetupComplete.Set(1)
	e.log.Info("feature store setup complete", "state", e.state, "data_path", e.cfg.DataPath)
}

func (e *Extractor) State() State { return e.state }

// SetupErr is the reason setup failed, or nil.
func (e *Extractor) SetupErr() error { return e.setupErr }

// Report is the provisioning outcome per artifact.
func (e *Extractor) Report() provision.Report { return e.report }

// TrainingSet retrieves refs for every entity row. With flatten the result
// is materialized into FeatureTable.Table; otherwise only the provider's job
// handle is returned.
func (e *Extractor) TrainingSet(ctx context.Context, refs []string, entities *table.Table, flatten bool) (*FeatureTable, error) {
	if e.state != StateSetupComplete {
		if e.setupErr != nil {
			return nil, fmt.Errorf("%w: %w", faults.ErrSetupIncomplete, e.setupErr)
		}
		return nil, faults.ErrSetupIncomplete
	}

	job, err := e.provider.HistoricalFeatures(ctx, refs, entities)
	if err != nil {
		return nil, fmt.Errorf("historical features: %w", err)
	}
	ft := &FeatureTable{Job: job}
	if !flatten {
		return ft, nil
	}
	if ft.Table, err = job.ToTable(ctx); err != nil {
		return nil, fmt.Errorf("historical features: %w", err)
	}
	e.log.Info("training set retrieved", "features", len(refs), "rows", ft.Table.Len())
	return ft, nil
}

// Cleanup removes the data directory and the descriptor. It is safe to call
// in any state and more than once.
func (e *Extractor) Cleanup() error {
	var closeErr error
	if c, ok := e.provider.(io.Closer); ok && e.owned {
		closeErr = c.Close()
		e.owned = false
	}
	if err := e.release.Release(); err != nil {
		return err
	}
	if closeErr != nil {
		return fmt.Errorf("%w: close feature store: %v", faults.ErrCleanup, closeErr)
	}
	e.log.Debug("local feature store state removed")
	return nil
}
