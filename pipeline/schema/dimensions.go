package schema

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/gear6io/wwi-etl/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed dimensions.yml
var defaultDimensions []byte

// dimensionDoc is one entry of the dimensions file
type dimensionDoc struct {
	SourceName      string            `yaml:"source_name"`
	TargetName      string            `yaml:"target_name"`
	PrimaryKey      string            `yaml:"primary_key"`
	Columns         []ColumnRename    `yaml:"columns"`
	TemporalColumns []string          `yaml:"temporal_columns"`
	IDColumns       []string          `yaml:"id_columns"`
	TextColumns     []string          `yaml:"text_columns"`
	ExpectedNulls   map[string]string `yaml:"expected_nulls"`
}

// LoadDimensions parses a dimensions file. Tables keep the order in which
// they appear. Column references may use source or target names.
func LoadDimensions(r io.Reader) ([]TableSpec, error) {
	var root struct {
		Dimensions yaml.Node `yaml:"dimensions"`
	}
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.New(SchemaDimensionsInvalid, "failed to parse dimensions file", err)
	}

	node := root.Dimensions
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.New(SchemaDimensionsInvalid, "dimensions must be a mapping of table id to definition", nil)
	}

	specs := make([]TableSpec, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		id := node.Content[i].Value
		var doc dimensionDoc
		if err := node.Content[i+1].Decode(&doc); err != nil {
			return nil, errors.New(SchemaDimensionsInvalid, "failed to decode dimension", err).AddContext("table", id)
		}
		spec, err := doc.spec(id)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadDimensionsFile reads path, or the built-in set when path is empty
func LoadDimensionsFile(path string) ([]TableSpec, error) {
	if path == "" {
		return DefaultDimensions()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(SchemaDimensionsRead, "failed to open dimensions file", err).AddContext("path", path)
	}
	defer f.Close()
	return LoadDimensions(f)
}

// DefaultDimensions returns the dimension tables shipped with the binary
func DefaultDimensions() ([]TableSpec, error) {
	return LoadDimensions(bytes.NewReader(defaultDimensions))
}

func (d dimensionDoc) spec(id string) (TableSpec, error) {
	if d.SourceName == "" || d.TargetName == "" {
		return TableSpec{}, errors.New(SchemaDimensionsInvalid, "dimension needs source_name and target_name", nil).AddContext("table", id)
	}

	cols := make([]ColumnRename, len(d.Columns))
	for i, c := range d.Columns {
		if c.From == "" {
			return TableSpec{}, errors.Newf(SchemaDimensionsInvalid, "column %d has no from", i).AddContext("table", id)
		}
		if c.To == "" {
			c.To = ToSnake(c.From)
		}
		cols[i] = c
	}

	s := TableSpec{
		Name:     id,
		Domain:   DomainDimensions,
		Source:   d.SourceName,
		Target:   d.TargetName,
		Columns:  cols,
		AuditAll: true,
		ExpectedNulls: map[string]string{
			"valid_to": "currently active records",
		},
	}
	for k, v := range d.ExpectedNulls {
		s.ExpectedNulls[s.TargetOf(k)] = v
	}
	resolve := func(names []string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = s.TargetOf(n)
		}
		return out
	}
	s.Temporal = resolve(d.TemporalColumns)
	s.IDColumns = resolve(d.IDColumns)
	s.TextColumns = resolve(d.TextColumns)
	if d.PrimaryKey != "" {
		s.PrimaryKey = s.TargetOf(d.PrimaryKey)
		s.Required = []string{s.SourceOf(s.PrimaryKey)}
	}

	if err := s.Validate(); err != nil {
		return TableSpec{}, err
	}
	return s, nil
}
