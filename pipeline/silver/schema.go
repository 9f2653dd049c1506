package silver

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
)

var SilverUnsupportedKind = errors.MustNewCode("silver.unsupported_kind")

// TimestampType is the Silver representation of every temporal column
var TimestampType = &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}

// ArrowType maps a column kind to its Silver arrow type
func ArrowType(k table.Kind) (arrow.DataType, error) {
	switch k {
	case table.KindString:
		return arrow.BinaryTypes.String, nil
	case table.KindInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case table.KindFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case table.KindBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case table.KindTimestamp:
		return TimestampType, nil
	}
	return nil, errors.Newf(SilverUnsupportedKind, "no arrow type for %s", k)
}

// Schema derives a nullable arrow schema from f in column order
func Schema(f *table.Frame) (*arrow.Schema, error) {
	cols := f.Columns()
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		dt, err := ArrowType(c.Kind)
		if err != nil {
			return nil, errors.AsError(err).AddContext("column", c.Name)
		}
		fields[i] = arrow.Field{Name: c.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// Record converts f to a single arrow record. The caller releases it.
func Record(mem memory.Allocator, f *table.Frame) (arrow.Record, error) {
	schema, err := Schema(f)
	if err != nil {
		return nil, err
	}
	cols := f.Columns()
	arrays := make([]arrow.Array, 0, len(cols))
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()

	for _, c := range cols {
		arrays = append(arrays, buildArray(mem, c))
	}
	return array.NewRecord(schema, arrays, int64(f.Rows())), nil
}

func buildArray(mem memory.Allocator, c *table.Column) arrow.Array {
	switch c.Kind {
	case table.KindInt64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(c.Ints, c.Valid)
		return b.NewArray()
	case table.KindFloat64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(c.Floats, c.Valid)
		return b.NewArray()
	case table.KindBool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(c.Bools, c.Valid)
		return b.NewArray()
	case table.KindTimestamp:
		b := array.NewTimestampBuilder(mem, TimestampType)
		defer b.Release()
		ts := make([]arrow.Timestamp, len(c.Times))
		for i, t := range c.Times {
			if c.Valid[i] {
				ts[i] = arrow.Timestamp(t.UnixMicro())
			}
		}
		b.AppendValues(ts, c.Valid)
		return b.NewArray()
	default:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.AppendValues(c.Strings, c.Valid)
		return b.NewArray()
	}
}
