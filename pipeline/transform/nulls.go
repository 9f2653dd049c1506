package transform

import (
	"sort"
	"strconv"

	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
)

// NullFinding is the audit result for one column
type NullFinding struct {
	Column   string
	Nulls    int
	Expected bool
	Reason   string
	Missing  bool
}

// AuditNulls logs documented nulls at info and unexpected nulls in required
// columns at warn. It never fails; see CheckPrimaryKey for the fatal check.
func AuditNulls(f *table.Frame, spec schema.TableSpec, logger zerolog.Logger) []NullFinding {
	var findings []NullFinding

	expected := make([]string, 0, len(spec.ExpectedNulls))
	for col := range spec.ExpectedNulls {
		expected = append(expected, col)
	}
	sort.Strings(expected)
	for _, col := range expected {
		c, ok := f.Column(col)
		if !ok {
			continue
		}
		reason := spec.ExpectedNulls[col]
		n := c.NullCount()
		findings = append(findings, NullFinding{Column: col, Nulls: n, Expected: true, Reason: reason})
		logger.Info().Str("stage", "nulls").Str("column", col).Int("nulls", n).Str("reason", reason).Msg("Expected nulls")
	}

	required := spec.RequiredValues
	if spec.AuditAll {
		required = nil
		for _, name := range f.Names() {
			if _, isExpected := spec.ExpectedNulls[name]; !isExpected {
				required = append(required, name)
			}
		}
	}
	for _, col := range required {
		c, ok := f.Column(col)
		if !ok {
			findings = append(findings, NullFinding{Column: col, Missing: true})
			logger.Warn().Str("stage", "nulls").Str("column", col).Msg("Required column has no values")
			continue
		}
		n := c.NullCount()
		findings = append(findings, NullFinding{Column: col, Nulls: n})
		if n > 0 {
			logger.Warn().Str("stage", "nulls").Str("column", col).Int("nulls", n).Msg("Unexpected nulls")
		} else {
			logger.Debug().Str("stage", "nulls").Str("column", col).Msg("No nulls")
		}
	}
	return findings
}

// CheckPrimaryKey fails with pipeline.key_violation unless the key column
// exists, has no absent value and no duplicate.
func CheckPrimaryKey(f *table.Frame, spec schema.TableSpec) error {
	if spec.PrimaryKey == "" {
		return nil
	}
	violation := func(msg string) *errors.Error {
		return errors.New(errors.PipelineKeyViolation, msg, nil).
			AddContext("table", spec.Name).
			AddContext("column", spec.PrimaryKey)
	}

	c, ok := f.Column(spec.PrimaryKey)
	if !ok {
		return violation("primary key column is missing")
	}

	seen := make(map[string]int, c.Len())
	for i := 0; i < c.Len(); i++ {
		v, ok := c.Text(i)
		if !ok {
			return violation("primary key has no value").AddContext("row", strconv.Itoa(i+1))
		}
		if first, dup := seen[v]; dup {
			return violation("duplicate primary key").
				AddContext("value", v).
				AddContext("row", strconv.Itoa(i+1)).
				AddContext("first_row", strconv.Itoa(first))
		}
		seen[v] = i + 1
	}
	return nil
}
