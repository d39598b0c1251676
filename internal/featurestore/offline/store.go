// Package offline is a file-backed feature store: feature views are parquet
// files next to the registry, and historical retrieval is a point-in-time
// join against the caller's entity table.
package offline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"featurepull/internal/descriptor"
	"featurepull/internal/featurestore"
	"featurepull/internal/table"
)

// Store resolves feature views to parquet files in the registry directory.
type Store struct {
	project string
	dataDir string
	sources map[string]string
}

type Option func(*Store)

// WithSource maps a feature view name to a file name inside the data
// directory, overriding the default "<view minus _table>.parquet".
func WithSource(view, file string) Option {
	return func(s *Store) { s.sources[view] = file }
}

// Open reads <repoPath>/feature_store.yaml and checks that its registry is
// present locally.
func Open(repoPath string, opts ...Option) (*Store, error) {
	d, err := descriptor.Read(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open feature store: %w", err)
	}
	if _, err := os.Stat(d.Registry); err != nil {
		return nil, fmt.Errorf("open feature store %s: registry: %w", d.Project, err)
	}
	s := &Store{
		project: d.Project,
		dataDir: filepath.Dir(d.Registry),
		sources: map[string]string{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) Project() string { return s.project }

// HistoricalFeatures validates refs and the entity table; the join itself
// runs in ToTable.
func (s *Store) HistoricalFeatures(_ context.Context, refs []string, entities *table.Table) (featurestore.RetrievalJob, error) {
	if len(refs) == 0 {
		return nil, errors.New("offline: no feature references")
	}
	parsed := make([]featureRef, len(refs))
	for i, r := range refs {
		ref, err := parseRef(r)
		if err != nil {
			return nil, err
		}
		parsed[i] = ref
	}
	if entities == nil {
		return nil, errors.New("offline: entity table is required")
	}
	if entities.Index(featurestore.TimestampColumn) < 0 {
		return nil, fmt.Errorf("offline: entity table has no %q column", featurestore.TimestampColumn)
	}
	return &job{store: s, refs: parsed, entities: entities}, nil
}

func (s *Store) sourcePath(view string) string {
	if f, ok := s.sources[view]; ok {
		return filepath.Join(s.dataDir, f)
	}
	return filepath.Join(s.dataDir, strings.TrimSuffix(view, "_table")+".parquet")
}

type featureRef struct {
	view, feature string
}

func (r featureRef) column() string { return r.view + "__" + r.feature }

func parseRef(raw string) (featureRef, error) {
	view, feature, ok := strings.Cut(raw, ":")
	if !ok || view == "" || feature == "" || strings.Contains(feature, ":") {
		return featureRef{}, fmt.Errorf("offline: feature reference %q is not of the form view:feature", raw)
	}
	return featureRef{view: view, feature: feature}, nil
}
