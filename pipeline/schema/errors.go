package schema

import "github.com/gear6io/wwi-etl/pkg/errors"

var (
	SchemaInvalidSpec       = errors.MustNewCode("schema.invalid_spec")
	SchemaDuplicateTable    = errors.MustNewCode("schema.duplicate_table")
	SchemaDimensionsRead    = errors.MustNewCode("schema.dimensions_read_failed")
	SchemaDimensionsInvalid = errors.MustNewCode("schema.dimensions_invalid")
)
