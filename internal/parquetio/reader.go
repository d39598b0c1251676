// Package parquetio reads and writes flat parquet files as table.Table.
package parquetio

import (
	"fmt"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/schema"
	"github.com/xitongsys/parquet-go/types"

	"featurepull/internal/table"
)

const readParallelism = 4

// ReadTable loads every leaf column of a flat parquet file. Timestamp
// columns (TIMESTAMP_MILLIS/MICROS, INT96 or a TIMESTAMP logical type) come
// back as time.Time in UTC; nulls are nil.
func ReadTable(path string) (*table.Table, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, readParallelism)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer pr.ReadStop()

	num := pr.GetNumRows()
	sh := pr.SchemaHandler
	cols := make([][]any, len(sh.ValueColumns))
	names := make([]string, len(sh.ValueColumns))
	for i, inPath := range sh.ValueColumns {
		values, _, _, err := pr.ReadColumnByIndex(int64(i), num)
		if err != nil {
			return nil, fmt.Errorf("read %s column %d: %w", path, i, err)
		}
		if int64(len(values)) != num {
			return nil, fmt.Errorf("read %s: column %q is not flat (%d values for %d rows)", path, inPath, len(values), num)
		}
		names[i] = columnName(sh, inPath)
		conv := converterFor(sh.SchemaElements[sh.MapIndex[inPath]])
		for j, v := range values {
			values[j] = conv(v)
		}
		cols[i] = values
	}

	t := table.New(names...)
	for r := int64(0); r < num; r++ {
		row := make([]any, len(cols))
		for c := range cols {
			row[c] = cols[c][r]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// columnName strips the root from the external (as-written) column path.
func columnName(sh *schema.SchemaHandler, inPath string) string {
	ex, ok := sh.InPathToExPath[inPath]
	if !ok {
		ex = inPath
	}
	parts := strings.Split(ex, common.PAR_GO_PATH_DELIMITER)
	return parts[len(parts)-1]
}

func converterFor(el *parquet.SchemaElement) func(any) any {
	identity := func(v any) any { return v }
	if el == nil {
		return identity
	}
	if el.Type != nil && *el.Type == parquet.Type_INT96 {
		return func(v any) any {
			if s, ok := v.(string); ok {
				return types.INT96ToTime(s).UTC()
			}
			return v
		}
	}

	var unit time.Duration
	switch {
	case el.ConvertedType != nil && *el.ConvertedType == parquet.ConvertedType_TIMESTAMP_MILLIS:
		unit = time.Millisecond
	case el.ConvertedType != nil && *el.ConvertedType == parquet.ConvertedType_TIMESTAMP_MICROS:
		unit = time.Microsecond
	case el.LogicalType != nil && el.LogicalType.IsSetTIMESTAMP():
		u := el.LogicalType.TIMESTAMP.Unit
		switch {
		case u != nil && u.IsSetMILLIS():
			unit = time.Millisecond
		case u != nil && u.IsSetNANOS():
			unit = time.Nanosecond
		default:
			unit = time.Microsecond
		}
	default:
		return identity
	}
	return func(v any) any {
		n, ok := v.(int64)
		if !ok {
			return v
		}
		switch unit {
		case time.Millisecond:
			return time.UnixMilli(n).UTC()
		case time.Microsecond:
			return time.UnixMicro(n).UTC()
		default:
			return time.Unix(0, n).UTC()
		}
	}
}
