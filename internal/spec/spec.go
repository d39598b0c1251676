package spec

import "time"

type bucketsSection struct {
	Registry string `koanf:"registry"` // registry.db, online_store.db
	Data     string `koanf:"data"`     // train.parquet, view_log.parquet
}

type EntitiesSection struct {
	// Source is a parquet file inside data_path; used when Rows is empty.
	Source string `koanf:"source"`

	// Columns projects Source down to the join keys; event_timestamp is
	// always kept.
	Columns []string `koanf:"columns"`

	Rows []map[string]any `koanf:"rows"`
}

type KafkaSink struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
	Acks    int16    `koanf:"required_acks"` // 0,1,-1
}

type NotifySection struct {
	Sink  string    `koanf:"sink"` // "", "stdout", "kafka"
	Kafka KafkaSink `koanf:"kafka"`
}

type TelemetrySection struct {
	Pushgateway string `koanf:"pushgateway"`
	Job         string `koanf:"job"`
	MetricsPort int    `koanf:"metrics_port"` // 0 = do not serve /metrics
}

type OutputSection struct {
	// Parquet optionally writes the training set as parquet next to the CSV.
	Parquet string `koanf:"parquet"`
}

// File is one feature extraction job.
type File struct {
	SchemaVersion string `koanf:"schema_version"`

	Project      string         `koanf:"project"`
	DataPath     string         `koanf:"data_path"`
	RepoPath     string         `koanf:"repo_path"`
	Buckets      bucketsSection `koanf:"buckets"`
	Region       string         `koanf:"region"`
	FetchTimeout time.Duration  `koanf:"fetch_timeout"`

	// Features are "feature_view:feature" references.
	Features []string `koanf:"features"`

	Sources  map[string]string `koanf:"sources"` // feature view -> parquet file
	Entities EntitiesSection   `koanf:"entities"`

	Output    OutputSection    `koanf:"output"`
	Notify    NotifySection    `koanf:"notify"`
	Telemetry TelemetrySection `koanf:"telemetry"`
}
