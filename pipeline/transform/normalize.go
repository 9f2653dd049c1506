package transform

import (
	"sort"
	"strings"

	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
)

// Normalizer renames Bronze columns to their Silver names
type Normalizer struct{}

// Apply renames every column found in the spec's rename map and drops
// ignorable ones. Undeclared columns keep their name. Rename entries whose
// source is absent are skipped unless the source is listed as required.
func (Normalizer) Apply(f *table.Frame, spec schema.TableSpec) (*table.Frame, error) {
	var missing []string
	for _, req := range spec.Required {
		if !f.Has(req) {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.Newf(errors.PipelineSchemaMismatch, "required columns missing: %s", strings.Join(missing, ", ")).
			AddContext("table", spec.Name).
			AddContext("missing", strings.Join(missing, ","))
	}

	ignore := make(map[string]struct{}, len(spec.Ignore))
	for _, c := range spec.Ignore {
		ignore[c] = struct{}{}
	}
	renames := spec.RenameMap()

	out := make([]*table.Column, 0, f.NumColumns())
	seen := make(map[string]string, f.NumColumns())
	for _, c := range f.Columns() {
		if _, skip := ignore[c.Name]; skip {
			continue
		}
		name := c.Name
		if to, ok := renames[name]; ok {
			name = to
		}
		if prev, dup := seen[name]; dup {
			return nil, errors.Newf(errors.PipelineSchemaMismatch, "columns %q and %q both map to %q", prev, c.Name, name).
				AddContext("table", spec.Name)
		}
		seen[name] = c.Name
		out = append(out, c.Renamed(name))
	}
	return f.WithColumns(out)
}
