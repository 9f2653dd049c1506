// Package rules holds table-specific cleaning steps that run between column
// normalization and type coercion. Rules see target column names and string
// columns only.
package rules

import (
	"strings"

	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
)

// Rule is a named pure function over a frame
type Rule struct {
	Name string
	Fn   func(*table.Frame) (*table.Frame, error)
}

func (r Rule) Apply(f *table.Frame) (*table.Frame, error) {
	out, err := r.Fn(f)
	if err != nil {
		return nil, errors.AsError(err).AddContext("rule", r.Name)
	}
	return out, nil
}

// DropColumns removes columns that carry no business value. Missing columns
// are ignored.
func DropColumns(cols ...string) Rule {
	return Rule{
		Name: "drop_columns",
		Fn: func(f *table.Frame) (*table.Frame, error) {
			return f.Drop(cols...), nil
		},
	}
}

// MergeParsed folds a pre-parsed helper column back into col: rows where col
// has no value take the helper's value, then the helper is dropped.
func MergeParsed(col, helper string) Rule {
	return Rule{
		Name: "merge_parsed",
		Fn: func(f *table.Frame) (*table.Frame, error) {
			h, ok := f.Column(helper)
			if !ok {
				return f, nil
			}
			if err := requireString(f.Name, h); err != nil {
				return nil, err
			}

			primary, ok := f.Column(col)
			if !ok {
				out := f.Drop(helper)
				return out.Replace(h.Renamed(col))
			}
			if err := requireString(f.Name, primary); err != nil {
				return nil, err
			}

			values := append([]string(nil), primary.Strings...)
			valid := append([]bool(nil), primary.Valid...)
			for i := range values {
				if !valid[i] && h.Valid[i] {
					values[i] = h.Strings[i]
					valid[i] = true
				}
			}
			out, err := f.Replace(table.NewStringColumn(col, values, valid))
			if err != nil {
				return nil, err
			}
			return out.Drop(helper), nil
		},
	}
}

// NullifyTokens marks values equal to any token (case-insensitive) as absent
func NullifyTokens(col string, tokens ...string) Rule {
	return Rule{
		Name: "nullify_tokens",
		Fn: func(f *table.Frame) (*table.Frame, error) {
			c, ok := f.Column(col)
			if !ok {
				return f, nil
			}
			if err := requireString(f.Name, c); err != nil {
				return nil, err
			}
			valid := append([]bool(nil), c.Valid...)
			for i, v := range c.Strings {
				if !valid[i] {
					continue
				}
				v = strings.TrimSpace(v)
				for _, tok := range tokens {
					if strings.EqualFold(v, tok) {
						valid[i] = false
						break
					}
				}
			}
			values := append([]string(nil), c.Strings...)
			for i := range values {
				if !valid[i] {
					values[i] = ""
				}
			}
			return f.Replace(table.NewStringColumn(col, values, valid))
		},
	}
}

// TrimText strips surrounding whitespace. Values that become empty are absent.
func TrimText(cols ...string) Rule {
	return Rule{
		Name: "trim_text",
		Fn: func(f *table.Frame) (*table.Frame, error) {
			out := f
			for _, col := range cols {
				c, ok := out.Column(col)
				if !ok {
					continue
				}
				if err := requireString(f.Name, c); err != nil {
					return nil, err
				}
				values := make([]string, len(c.Strings))
				valid := append([]bool(nil), c.Valid...)
				for i, v := range c.Strings {
					values[i] = strings.TrimSpace(v)
					if values[i] == "" {
						valid[i] = false
					}
				}
				var err error
				if out, err = out.Replace(table.NewStringColumn(col, values, valid)); err != nil {
					return nil, err
				}
			}
			return out, nil
		},
	}
}

func requireString(tableName string, c *table.Column) error {
	if c.Kind == table.KindString {
		return nil
	}
	return errors.Newf(errors.PipelineSchemaMismatch, "column %q is %s, expected string", c.Name, c.Kind).
		AddContext("table", tableName).
		AddContext("column", c.Name)
}
