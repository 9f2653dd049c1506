package transform

import (
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
)

// DefaultTimeLayouts are tried in order. Four-digit years come first so that
// ISO dates never fall through to the day-first layout.
var DefaultTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999 -07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// Coercer converts string columns to typed columns
type Coercer struct {
	Layouts []string
}

func NewCoercer() *Coercer {
	return &Coercer{Layouts: DefaultTimeLayouts}
}

// Apply coerces every string column of f. Declared temporal columns become
// timestamps, declared ID columns become nullable int64, text columns are
// left alone and the rest are inferred. Bad cells become absent and are
// counted; only a fractional ID is fatal.
func (c *Coercer) Apply(f *table.Frame, spec schema.TableSpec) (*table.Frame, table.CoercionReport, error) {
	temporal := toSet(spec.Temporal)
	ids := toSet(spec.IDColumns)
	text := toSet(spec.TextColumns)

	var report table.CoercionReport
	cols := f.Columns()
	for i, col := range cols {
		if col.Kind != table.KindString {
			continue
		}

		var (
			out   *table.Column
			stats table.ColumnCoercion
			err   error
		)
		switch {
		case has(temporal, col.Name):
			out, stats = c.timestamps(col)
		case has(ids, col.Name):
			out, stats, err = nullableInts(col)
			if err != nil {
				return nil, table.CoercionReport{}, errors.AsError(err).AddContext("table", spec.Name)
			}
		case has(text, col.Name):
			continue
		default:
			out, stats = infer(col)
		}
		cols[i] = out
		report.Columns = append(report.Columns, stats)
	}

	frame, err := f.WithColumns(cols)
	if err != nil {
		return nil, table.CoercionReport{}, err
	}
	return frame, report, nil
}

// ParseTime tries each layout and returns the instant in UTC
func (c *Coercer) ParseTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range c.Layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (c *Coercer) timestamps(col *table.Column) (*table.Column, table.ColumnCoercion) {
	stats := table.ColumnCoercion{Column: col.Name, Kind: table.KindTimestamp}
	values := make([]time.Time, col.Len())
	valid := make([]bool, col.Len())
	for i, s := range col.Strings {
		if !col.Valid[i] {
			stats.Absent++
			continue
		}
		t, ok := c.ParseTime(s)
		if !ok {
			stats.Invalid++
			continue
		}
		values[i], valid[i] = t, true
		stats.Parsed++
	}
	return table.NewTimestampColumn(col.Name, values, valid), stats
}

// ParseID converts an identifier cell. ok is false for non-numeric text and
// for values outside int64; a number with a fractional part returns a
// pipeline.type_coercion error. Conversion is exact at any magnitude.
func ParseID(v string) (n int64, ok bool, err error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, true, nil
	}
	if m := decimalForm.FindStringSubmatch(v); m != nil && m[2]+m[3] != "" {
		if strings.Trim(m[3], "0") != "" {
			return 0, false, fractionalID(v)
		}
		if m[2] == "" {
			return 0, true, nil
		}
		n, err := strconv.ParseInt(m[1]+m[2], 10, 64)
		if err != nil {
			return 0, false, nil
		}
		return n, true, nil
	}
	if !exponentForm.MatchString(v) {
		return 0, false, nil
	}
	r, parsed := new(big.Rat).SetString(v)
	if !parsed {
		return 0, false, nil
	}
	if !r.IsInt() {
		return 0, false, fractionalID(v)
	}
	if !r.Num().IsInt64() {
		return 0, false, nil
	}
	return r.Num().Int64(), true, nil
}

var (
	// decimalForm splits 123.000 into sign, whole and fraction digits
	decimalForm = regexp.MustCompile(`^([+-]?)(\d*)\.(\d*)$`)
	// exponentForm matches decimal scientific notation such as 1.5e3
	exponentForm = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)[eE][+-]?\d+$`)
)

func fractionalID(v string) error {
	return errors.Newf(errors.PipelineTypeCoercion, "identifier %q has a fractional part", v).
		AddContext("value", v)
}

func nullableInts(col *table.Column) (*table.Column, table.ColumnCoercion, error) {
	stats := table.ColumnCoercion{Column: col.Name, Kind: table.KindInt64}
	values := make([]int64, col.Len())
	valid := make([]bool, col.Len())
	for i, s := range col.Strings {
		if !col.Valid[i] {
			stats.Absent++
			continue
		}
		n, ok, err := ParseID(s)
		if err != nil {
			return nil, stats, errors.AsError(err).
				AddContext("column", col.Name).
				AddContext("row", strconv.Itoa(i+1))
		}
		if !ok {
			stats.Invalid++
			continue
		}
		values[i], valid[i] = n, true
		stats.Parsed++
	}
	return table.NewInt64Column(col.Name, values, valid), stats, nil
}

// infer picks the narrowest kind that every present value fits:
// int64, then float64, then bool, else string.
func infer(col *table.Column) (*table.Column, table.ColumnCoercion) {
	stats := table.ColumnCoercion{Column: col.Name, Kind: table.KindString}
	present := 0
	for _, ok := range col.Valid {
		if ok {
			present++
		}
	}
	stats.Absent = col.Len() - present
	if present == 0 {
		return col, stats
	}

	if ints, ok := eachPresent(col, func(s string) (int64, bool) {
		v, err := strconv.ParseInt(s, 10, 64)
		return v, err == nil
	}); ok {
		stats.Kind, stats.Parsed = table.KindInt64, present
		return table.NewInt64Column(col.Name, ints, append([]bool(nil), col.Valid...)), stats
	}
	if floats, ok := eachPresent(col, func(s string) (float64, bool) {
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		return v, err == nil
	}); ok {
		stats.Kind, stats.Parsed = table.KindFloat64, present
		return table.NewFloat64Column(col.Name, floats, append([]bool(nil), col.Valid...)), stats
	}
	if bools, ok := eachPresent(col, func(s string) (bool, bool) {
		switch strings.ToLower(s) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return false, false
	}); ok {
		stats.Kind, stats.Parsed = table.KindBool, present
		return table.NewBoolColumn(col.Name, bools, append([]bool(nil), col.Valid...)), stats
	}

	stats.Parsed = present
	return col, stats
}

func eachPresent[T any](col *table.Column, parse func(string) (T, bool)) ([]T, bool) {
	out := make([]T, col.Len())
	for i, s := range col.Strings {
		if !col.Valid[i] {
			continue
		}
		v, ok := parse(strings.TrimSpace(s))
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func toSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func has(s map[string]struct{}, name string) bool {
	_, ok := s[name]
	return ok
}
