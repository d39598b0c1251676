package offline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"featurepull/internal/featurestore"
	"featurepull/internal/parquetio"
	"featurepull/internal/table"
)

type job struct {
	store    *Store
	refs     []featureRef
	entities *table.Table
}

// ToTable runs the point-in-time join: every entity row gets, per feature,
// the value from the latest view row with the same join key whose event
// timestamp is not after the entity's. Rows without a match get nil.
func (j *job) ToTable(ctx context.Context) (*table.Table, error) {
	views := map[string]*viewIndex{}
	for _, r := range j.refs {
		if _, ok := views[r.view]; ok {
			continue
		}
		vi, err := j.index(r.view)
		if err != nil {
			return nil, err
		}
		views[r.view] = vi
	}
	for _, r := range j.refs {
		if views[r.view].data.Index(r.feature) < 0 {
			return nil, fmt.Errorf("offline: feature view %s has no feature %q", r.view, r.feature)
		}
	}

	cols := append([]string(nil), j.entities.Columns...)
	for _, r := range j.refs {
		cols = append(cols, r.column())
	}
	out := table.New(cols...)

	tsIdx := j.entities.Index(featurestore.TimestampColumn)
	for i, row := range j.entities.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		at, err := asTime(row[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("offline: entity row %d: %w", i, err)
		}
		vals := append(make([]any, 0, len(cols)), row...)
		for _, r := range j.refs {
			vals = append(vals, views[r.view].lookup(row, at, r.feature))
		}
		out.Rows = append(out.Rows, vals)
	}
	return out, nil
}

type viewIndex struct {
	data      *table.Table
	entityKey []int // join columns in the entity table
	viewKey   []int // the same columns in the view
	byKey     map[string][]int
	times     []time.Time
}

func (j *job) index(view string) (*viewIndex, error) {
	path := j.store.sourcePath(view)
	data, err := parquetio.ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("offline: feature view %s: %w", view, err)
	}
	tsIdx := data.Index(featurestore.TimestampColumn)
	if tsIdx < 0 {
		return nil, fmt.Errorf("offline: feature view %s has no %q column", view, featurestore.TimestampColumn)
	}

	vi := &viewIndex{data: data, byKey: map[string][]int{}, times: make([]time.Time, data.Len())}
	for ei, c := range j.entities.Columns {
		if c == featurestore.TimestampColumn {
			continue
		}
		if vIdx := data.Index(c); vIdx >= 0 {
			vi.entityKey = append(vi.entityKey, ei)
			vi.viewKey = append(vi.viewKey, vIdx)
		}
	}
	if len(vi.viewKey) == 0 {
		return nil, fmt.Errorf("offline: feature view %s shares no join key with the entity table", view)
	}

	for r, row := range data.Rows {
		ts, err := asTime(row[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("offline: feature view %s row %d: %w", view, r, err)
		}
		vi.times[r] = ts
		k := key(row, vi.viewKey)
		vi.byKey[k] = append(vi.byKey[k], r)
	}
	for _, rows := range vi.byKey {
		sort.SliceStable(rows, func(a, b int) bool { return vi.times[rows[a]].Before(vi.times[rows[b]]) })
	}
	return vi, nil
}

func (vi *viewIndex) lookup(entity []any, at time.Time, feature string) any {
	rows := vi.byKey[key(entity, vi.entityKey)]
	n := sort.Search(len(rows), func(i int) bool { return vi.times[rows[i]].After(at) })
	if n == 0 {
		return nil
	}
	return vi.data.Rows[rows[n-1]][vi.data.Index(feature)]
}

// key renders join values so int from YAML and int64 from parquet compare equal.
func key(row []any, idx []int) string {
	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = table.Format(row[j])
	}
	return strings.Join(parts, "\x1f")
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

func asTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		for _, l := range timeLayouts {
			if t, err := time.Parse(l, x); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", x)
	default:
		return time.Time{}, fmt.Errorf("timestamp has type %T", v)
	}
}
