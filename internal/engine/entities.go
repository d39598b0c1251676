package engine

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"featurepull/internal/faults"
	"featurepull/internal/featurestore"
	"featurepull/internal/parquetio"
	"featurepull/internal/table"
)

// entities builds the entity table from inline job rows, or else from a
// parquet file in the data path. It runs after provisioning so that the
// default source, train.parquet, is already local.
func (e *Engine) entities() (*table.Table, error) {
	if len(e.job.Entities.Rows) > 0 {
		return inlineEntities(e.job.Entities.Rows)
	}
	src := e.job.Entities.Source
	if !filepath.IsAbs(src) {
		src = filepath.Join(e.job.DataPath, src)
	}
	t, err := parquetio.ReadTable(src)
	if err != nil {
		return nil, fmt.Errorf("entity table: %w", err)
	}
	if cols := e.job.Entities.Columns; len(cols) > 0 {
		keep := append(without(cols, featurestore.TimestampColumn), featurestore.TimestampColumn)
		if t, err = t.Project(keep...); err != nil {
			return nil, fmt.Errorf("%w: entity table: %v", faults.ErrConfiguration, err)
		}
	}
	return t, nil
}

// inlineEntities lays rows out as sorted join keys followed by
// event_timestamp. Missing keys become nil.
func inlineEntities(rows []map[string]any) (*table.Table, error) {
	seen := map[string]bool{}
	var keys []string
	for _, r := range rows {
		for k := range r {
			if k != featurestore.TimestampColumn && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)

	t := table.New(append(keys, featurestore.TimestampColumn)...)
	for i, r := range rows {
		ts, err := entityTime(r[featurestore.TimestampColumn])
		if err != nil {
			return nil, fmt.Errorf("%w: entity row %d: %v", faults.ErrConfiguration, i, err)
		}
		vals := make([]any, 0, len(keys)+1)
		for _, k := range keys {
			vals = append(vals, r[k])
		}
		if err := t.Append(append(vals, ts)...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func entityTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		for _, l := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(l, x); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable %s %q", featurestore.TimestampColumn, x)
	case nil:
		return time.Time{}, fmt.Errorf("%s is missing", featurestore.TimestampColumn)
	default:
		return time.Time{}, fmt.Errorf("%s has type %T", featurestore.TimestampColumn, v)
	}
}

func without(ss []string, drop string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

func writeCSV(path string, t *table.Table) error {
	if err := table.WriteFile(path, t); err != nil {
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	return nil
}
