package engine

import (
	"context"
	"fmt"

	"featurepull/blob"
	"featurepull/internal/config"
	"featurepull/internal/extractor"
	"featurepull/internal/logging"
	"featurepull/internal/telemetry"
	"featurepull/sink"
	"featurepull/sink/kafka"
	"featurepull/sink/stdout"
)

type Config struct {
	JobFile     string
	OutputCSV   string
	Credentials blob.Credentials

	// Extra is appended to the extractor options the engine builds itself.
	Extra []extractor.Option
}

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.OutputCSV == "" {
		return nil, fmt.Errorf("engine: output csv path is required")
	}

	// 1. job file
	job, err := config.LoadJob(cfg.JobFile)
	if err != nil {
		return nil, fmt.Errorf("job: %w", err)
	}
	if cfg.Credentials.Region == "" {
		cfg.Credentials.Region = job.Region
	}

	// 2. completion sink
	var out sink.Adapter
	if job.Notify.Sink != "" {
		out, err = sink.NewAdapter(job.Notify.Sink)
		if err != nil {
			return nil, fmt.Errorf("sink: %w", err)
		}
		var sc any = stdout.Config{}
		if job.Notify.Sink == "kafka" {
			k := job.Notify.Kafka
			sc = kafka.Config{Brokers: k.Brokers, Topic: k.Topic, Acks: k.Acks}
		}
		if err := out.Configure(sc); err != nil {
			return nil, fmt.Errorf("sink %s: %w", job.Notify.Sink, err)
		}
	}

	// 3. metrics
	if job.Telemetry.MetricsPort > 0 {
		telemetry.Expose(job.Telemetry.MetricsPort)
	}

	logging.L().Info("engine bootstrapped",
		"project", job.Project, "job", cfg.JobFile, "sink", job.Notify.Sink)

	return &Engine{
		cfg:  cfg,
		job:  job,
		sink: out,
		log:  logging.L().With("component", "engine", "project", job.Project),
	}, nil
}
