package offline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"featurepull/internal/descriptor"
	"featurepull/internal/parquetio"
	"featurepull/internal/table"
)

var t0 = time.Date(2018, 10, 15, 8, 0, 0, 0, time.UTC)

// newRepo lays out a provisioned repo: descriptor, registry and a view_log
// feature view with two sessions.
func newRepo(t *testing.T) string {
	t.Helper()
	repo, data := t.TempDir(), t.TempDir()
	_, err := descriptor.Write(repo, descriptor.Params{Project: "clicks", DataPath: data})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(data, descriptor.RegistryFile), []byte("reg"), 0o644))

	views := table.New("session_id", "event_timestamp", "device_type", "item_id")
	require.NoError(t, views.Append(int64(1), t0, "android", int64(10)))
	require.NoError(t, views.Append(int64(1), t0.Add(2*time.Hour), "ios", int64(11)))
	require.NoError(t, views.Append(int64(2), t0.Add(time.Hour), "web", int64(20)))
	require.NoError(t, parquetio.WriteTable(filepath.Join(data, "view_log.parquet"), views))
	return repo
}

func TestOpen_RequiresRegistry(t *testing.T) {
	repo := t.TempDir()
	_, err := descriptor.Write(repo, descriptor.Params{Project: "clicks", DataPath: t.TempDir()})
	require.NoError(t, err)
	_, err = Open(repo)
	require.Error(t, err)
}

func TestHistoricalFeatures_PointInTimeJoin(t *testing.T) {
	st, err := Open(newRepo(t))
	require.NoError(t, err)
	require.Equal(t, "clicks", st.Project())

	entities := table.New("session_id", "event_timestamp")
	// session 1 before and after its second view row, session 2 before any
	// row, and an unknown session
	require.NoError(t, entities.Append(1, t0.Add(time.Hour)))
	require.NoError(t, entities.Append(1, t0.Add(3*time.Hour)))
	require.NoError(t, entities.Append(2, t0))
	require.NoError(t, entities.Append(3, "2018-10-15T12:00:00Z"))

	job, err := st.HistoricalFeatures(context.Background(),
		[]string{"view_log_table:device_type", "view_log_table:item_id"}, entities)
	require.NoError(t, err)

	out, err := job.ToTable(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"session_id", "event_timestamp", "view_log_table__device_type", "view_log_table__item_id"}, out.Columns)
	require.Equal(t, 4, out.Len())

	require.Equal(t, []any{"android", int64(10)}, out.Rows[0][2:])
	require.Equal(t, []any{"ios", int64(11)}, out.Rows[1][2:])
	require.Equal(t, []any{nil, nil}, out.Rows[2][2:])
	require.Equal(t, []any{nil, nil}, out.Rows[3][2:])
}

func TestHistoricalFeatures_RejectsBadInput(t *testing.T) {
	st, err := Open(newRepo(t))
	require.NoError(t, err)
	entities := table.New("session_id", "event_timestamp")

	_, err = st.HistoricalFeatures(context.Background(), []string{"no_colon"}, entities)
	require.Error(t, err)

	_, err = st.HistoricalFeatures(context.Background(), []string{"v:f"}, table.New("session_id"))
	require.Error(t, err)

	job, err := st.HistoricalFeatures(context.Background(), []string{"view_log_table:missing"}, entities)
	require.NoError(t, err)
	_, err = job.ToTable(context.Background())
	require.ErrorContains(t, err, "missing")
}

func TestWithSource_OverridesFileName(t *testing.T) {
	st, err := Open(newRepo(t), WithSource("views", "view_log.parquet"))
	require.NoError(t, err)

	entities := table.New("session_id", "event_timestamp")
	require.NoError(t, entities.Append(int64(2), t0.Add(2*time.Hour)))
	job, err := st.HistoricalFeatures(context.Background(), []string{"views:device_type"}, entities)
	require.NoError(t, err)
	out, err := job.ToTable(context.Background())
	require.NoError(t, err)
	require.Equal(t, "web", out.Rows[0][2])
}
