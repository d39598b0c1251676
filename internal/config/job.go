package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"featurepull/internal/faults"
	"featurepull/internal/spec"
)

const (
	SupportedSchema = "v1"

	// EnvPrefix overrides job keys, e.g. FEATUREPULL__BUCKETS__DATA.
	EnvPrefix = "FEATUREPULL__"
)

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// LoadJob merges the job YAML (if present) with env-vars (prefix
// FEATUREPULL__, delimiter __), applies defaults and validates the result.
func LoadJob(path string) (spec.File, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return spec.File{}, fmt.Errorf("%w: load %s: %v", faults.ErrConfiguration, path, err)
		}
	}

	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return spec.File{}, fmt.Errorf("%w: job schema_version %q not supported (want %q)",
			faults.ErrConfiguration, sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return spec.File{}, fmt.Errorf("%w: env: %v", faults.ErrConfiguration, err)
	}

	var job spec.File
	if err := k.Unmarshal("", &job); err != nil {
		return job, fmt.Errorf("%w: %v", faults.ErrConfiguration, err)
	}
	applyDefaults(&job)
	if err := validate(job); err != nil {
		return job, err
	}
	return job, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(j *spec.File) {
	if j.SchemaVersion == "" {
		j.SchemaVersion = SupportedSchema
	}
	if j.RepoPath == "" {
		j.RepoPath = "."
	}
	if j.Buckets.Data == "" {
		j.Buckets.Data = j.Buckets.Registry
	}
	if j.FetchTimeout == 0 {
		j.FetchTimeout = 5 * time.Minute
	}
	if len(j.Entities.Rows) == 0 && j.Entities.Source == "" {
		j.Entities.Source = "train.parquet"
	}
	if j.Telemetry.Job == "" {
		j.Telemetry.Job = "featurepull"
	}
	if j.DataPath != "" && !filepath.IsAbs(j.DataPath) {
		if abs, err := filepath.Abs(j.DataPath); err == nil {
			j.DataPath = abs
		}
	}
}

func validate(j spec.File) error {
	var missing []string
	if j.Project == "" {
		missing = append(missing, "project")
	}
	if j.DataPath == "" {
		missing = append(missing, "data_path")
	}
	if j.Buckets.Registry == "" {
		missing = append(missing, "buckets.registry")
	}
	if len(j.Features) == 0 {
		missing = append(missing, "features")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: job is missing %s", faults.ErrConfiguration, strings.Join(missing, ", "))
	}
	switch j.Notify.Sink {
	case "", "stdout", "kafka":
	default:
		return fmt.Errorf("%w: unknown notify sink %q", faults.ErrConfiguration, j.Notify.Sink)
	}
	return nil
}
