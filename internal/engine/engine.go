package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"featurepull/internal/extractor"
	"featurepull/internal/featurestore"
	"featurepull/internal/featurestore/offline"
	"featurepull/internal/parquetio"
	"featurepull/internal/spec"
	"featurepull/internal/telemetry"
	"featurepull/sink"
)

type Engine struct {
	cfg  Config
	job  spec.File
	sink sink.Adapter
	log  *slog.Logger
}

// Run executes the job once: setup, retrieval, CSV output, notification.
// Local feature store state is removed on every path out.
func (e *Engine) Run(ctx context.Context) (err error) {
	ex, err := extractor.New(ctx, extractor.Config{
		Project:        e.job.Project,
		DataPath:       e.job.DataPath,
		RegistryBucket: e.job.Buckets.Registry,
		DataBucket:     e.job.Buckets.Data,
		RepoPath:       e.job.RepoPath,
		Credentials:    e.cfg.Credentials,
		FetchTimeout:   e.job.FetchTimeout,
	}, e.options()...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ex.Cleanup(); cerr != nil {
			e.log.Error("cleanup failed", "err", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	if ex.State() != extractor.StateSetupComplete {
		return fmt.Errorf("%w: %w", extractor.ErrSetupIncomplete, ex.SetupErr())
	}

	entities, err := e.entities()
	if err != nil {
		return err
	}
	ft, err := ex.TrainingSet(ctx, e.job.Features, entities, true)
	if err != nil {
		return err
	}

	if err := writeOutputs(e.cfg.OutputCSV, e.job.Output.Parquet, ft); err != nil {
		return err
	}
	telemetry.TrainingRows.Set(float64(ft.Table.Len()))
	e.log.Info("training set written", "path", e.cfg.OutputCSV, "rows", ft.Table.Len())

	if e.sink != nil {
		ev := sink.Event{
			Project:    e.job.Project,
			Output:     e.cfg.OutputCSV,
			Rows:       ft.Table.Len(),
			Features:   e.job.Features,
			FinishedAt: time.Now().UTC(),
		}
		if err := e.sink.Publish(ctx, ev); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}
	return nil
}

// Close pushes metrics, if a gateway is configured, and releases the sink.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if gw := e.job.Telemetry.Pushgateway; gw != "" {
		if err := telemetry.Push(ctx, gw, e.job.Telemetry.Job); err != nil {
			errs = append(errs, fmt.Errorf("pushgateway: %w", err))
		}
	}
	if e.sink != nil {
		errs = append(errs, e.sink.Close())
	}
	return errors.Join(errs...)
}

func (e *Engine) options() []extractor.Option {
	var srcOpts []offline.Option
	for view, file := range e.job.Sources {
		srcOpts = append(srcOpts, offline.WithSource(view, file))
	}
	opts := []extractor.Option{
		extractor.WithProviderFactory(func(_ context.Context, repo string) (featurestore.Provider, error) {
			return offline.Open(repo, srcOpts...)
		}),
	}
	return append(opts, e.cfg.Extra...)
}

func writeOutputs(csvPath, parquetPath string, ft *extractor.FeatureTable) error {
	if err := writeCSV(csvPath, ft.Table); err != nil {
		return err
	}
	if parquetPath == "" {
		return nil
	}
	if err := parquetio.WriteTable(parquetPath, ft.Table); err != nil {
		return fmt.Errorf("write parquet %s: %w", parquetPath, err)
	}
	return nil
}
