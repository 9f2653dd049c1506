package schema

import (
	"path"

	"github.com/gear6io/wwi-etl/pipeline/rules"
	"github.com/gear6io/wwi-etl/pkg/errors"
)

// Domain groups Silver files into folders
type Domain string

const (
	DomainSales      Domain = "sales"
	DomainPurchasing Domain = "purchasing"
	DomainDimensions Domain = "dimensions"
)

// ColumnRename maps one Bronze column to its Silver name
type ColumnRename struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// TableSpec is the declarative rule set that cleans one table. Column lists
// other than Columns, Ignore and Required use target names.
type TableSpec struct {
	Name   string
	Domain Domain
	// Source is the Bronze base name, e.g. "sales.order"
	Source string
	// Target is the Silver file name, e.g. "orders.parquet"
	Target string

	Columns  []ColumnRename
	Ignore   []string
	Required []string

	Temporal    []string
	IDColumns   []string
	TextColumns []string

	PrimaryKey     string
	ExpectedNulls  map[string]string
	RequiredValues []string
	// AuditAll treats every column not listed in ExpectedNulls as required
	AuditAll bool

	Rules []rules.Rule
}

// BronzeKey is the object key of the raw file relative to the Bronze root
func (s TableSpec) BronzeKey() string {
	return s.Source + ".csv"
}

// SilverKey is the slash-separated output path relative to the Silver root
func (s TableSpec) SilverKey() string {
	return path.Join(string(s.Domain), s.Target)
}

// RenameMap returns source name -> target name
func (s TableSpec) RenameMap() map[string]string {
	m := make(map[string]string, len(s.Columns))
	for _, c := range s.Columns {
		m[c.From] = c.To
	}
	return m
}

// TargetOf resolves a column reference that may use either naming
func (s TableSpec) TargetOf(name string) string {
	for _, c := range s.Columns {
		if c.From == name {
			return c.To
		}
	}
	return name
}

// SourceOf returns the Bronze name of a target column
func (s TableSpec) SourceOf(target string) string {
	for _, c := range s.Columns {
		if c.To == target {
			return c.From
		}
	}
	return target
}

// Clone returns a deep copy so callers cannot mutate a registered spec
func (s TableSpec) Clone() TableSpec {
	cp := s
	cp.Columns = append([]ColumnRename(nil), s.Columns...)
	cp.Ignore = append([]string(nil), s.Ignore...)
	cp.Required = append([]string(nil), s.Required...)
	cp.Temporal = append([]string(nil), s.Temporal...)
	cp.IDColumns = append([]string(nil), s.IDColumns...)
	cp.TextColumns = append([]string(nil), s.TextColumns...)
	cp.RequiredValues = append([]string(nil), s.RequiredValues...)
	cp.Rules = append([]rules.Rule(nil), s.Rules...)
	if s.ExpectedNulls != nil {
		cp.ExpectedNulls = make(map[string]string, len(s.ExpectedNulls))
		for k, v := range s.ExpectedNulls {
			cp.ExpectedNulls[k] = v
		}
	}
	return cp
}

// Validate checks the spec is internally consistent
func (s TableSpec) Validate() error {
	switch {
	case s.Name == "":
		return errors.New(SchemaInvalidSpec, "table spec has no name", nil)
	case s.Source == "":
		return errors.New(SchemaInvalidSpec, "table spec has no source", nil).AddContext("table", s.Name)
	case s.Target == "":
		return errors.New(SchemaInvalidSpec, "table spec has no target", nil).AddContext("table", s.Name)
	}
	switch s.Domain {
	case DomainSales, DomainPurchasing, DomainDimensions:
	default:
		return errors.Newf(SchemaInvalidSpec, "unknown domain %q", s.Domain).AddContext("table", s.Name)
	}

	from := make(map[string]struct{}, len(s.Columns))
	to := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if c.From == "" || c.To == "" {
			return errors.New(SchemaInvalidSpec, "column rename needs both from and to", nil).AddContext("table", s.Name)
		}
		if _, dup := from[c.From]; dup {
			return errors.Newf(SchemaInvalidSpec, "column %q renamed twice", c.From).AddContext("table", s.Name)
		}
		if _, dup := to[c.To]; dup {
			return errors.Newf(SchemaInvalidSpec, "two columns renamed to %q", c.To).AddContext("table", s.Name)
		}
		from[c.From] = struct{}{}
		to[c.To] = struct{}{}
	}

	kinds := make(map[string]string)
	for _, group := range []struct {
		kind string
		cols []string
	}{{"temporal", s.Temporal}, {"id", s.IDColumns}, {"text", s.TextColumns}} {
		for _, c := range group.cols {
			if prev, ok := kinds[c]; ok && prev != group.kind {
				return errors.Newf(SchemaInvalidSpec, "column %q declared both %s and %s", c, prev, group.kind).AddContext("table", s.Name)
			}
			kinds[c] = group.kind
		}
	}
	return nil
}
