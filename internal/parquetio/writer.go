package parquetio

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"featurepull/internal/table"
)

const writeParallelism = 4

// WriteTable writes t as a flat parquet file, inferring each column's
// physical type from its first non-nil value. Every column is OPTIONAL.
func WriteTable(path string, t *table.Table) error {
	md := make([]string, len(t.Columns))
	for i, name := range t.Columns {
		md[i] = columnTag(name, firstValue(t, i))
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	pw, err := writer.NewCSVWriter(md, fw, writeParallelism)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, r := range t.Rows {
		rec := make([]*string, len(r))
		for i, v := range r {
			rec[i] = encode(v)
		}
		if err := pw.WriteString(rec); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return fw.Close()
}

func firstValue(t *table.Table, col int) any {
	for _, r := range t.Rows {
		if r[col] != nil {
			return r[col]
		}
	}
	return nil
}

func columnTag(name string, sample any) string {
	var typ string
	switch sample.(type) {
	case int, int32, int64:
		typ = "type=INT64"
	case float32, float64:
		typ = "type=DOUBLE"
	case bool:
		typ = "type=BOOLEAN"
	case time.Time:
		typ = "type=INT64, convertedtype=TIMESTAMP_MICROS"
	default:
		typ = "type=BYTE_ARRAY, convertedtype=UTF8"
	}
	return fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", name, typ)
}

func encode(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		s = strconv.FormatInt(x.UnixMicro(), 10)
	default:
		s = table.Format(v)
	}
	return &s
}
