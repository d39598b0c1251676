package table

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteCSV_NoHeaderNoIndex(t *testing.T) {
	tb := New("session_id", "event_timestamp", "device_type", "score")
	ts := time.Date(2018, 10, 15, 8, 58, 0, 0, time.UTC)
	require.NoError(t, tb.Append(int64(218564), ts, "mobile", 0.5))
	require.NoError(t, tb.Append(int64(7), ts, nil, nil))

	var buf bytes.Buffer
	require.NoError(t, tb.WriteCSV(&buf))
	require.Equal(t,
		"218564,2018-10-15T08:58:00Z,mobile,0.5\n7,2018-10-15T08:58:00Z,,\n",
		buf.String())
}

func TestAppend_RejectsRaggedRow(t *testing.T) {
	require.Error(t, New("a", "b").Append(1))
}

func TestProject(t *testing.T) {
	tb := New("a", "b", "c")
	require.NoError(t, tb.Append(1, 2, 3))
	p, err := tb.Project("c", "a")
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, p.Columns)
	require.Equal(t, [][]any{{3, 1}}, p.Rows)

	_, err = tb.Project("zzz")
	require.Error(t, err)
}

func TestWriteFile_CreatesParents(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "dir", "features.csv")
	tb := New("x")
	require.NoError(t, tb.Append(true))
	require.NoError(t, WriteFile(out, tb))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "true\n", string(b))
}
