package errors

import (
	"fmt"
	"regexp"
	"strings"
)

// Code is a validated error code of the form package.name
type Code struct {
	value string
}

// Common error codes that can be used across packages
var (
	CommonInternal    = MustNewCode("common.internal")
	CommonNotFound    = MustNewCode("common.not_found")
	CommonValidation  = MustNewCode("common.validation")
	CommonTimeout     = MustNewCode("common.timeout")
	CommonUnsupported = MustNewCode("common.unsupported")
)

// Pipeline failure kinds. Every per-table failure recorded in a run carries
// exactly one of these.
var (
	PipelineUnknownTable   = MustNewCode("pipeline.unknown_table")
	PipelineMissingSource  = MustNewCode("pipeline.missing_source")
	PipelineSchemaMismatch = MustNewCode("pipeline.schema_mismatch")
	PipelineTypeCoercion   = MustNewCode("pipeline.type_coercion")
	PipelineKeyViolation   = MustNewCode("pipeline.key_violation")
	PipelineWriteFailed    = MustNewCode("pipeline.write_failed")
)

var codeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// NewCode creates a new validated Code
func NewCode(s string) (Code, error) {
	if !codeRegex.MatchString(s) {
		return Code{}, fmt.Errorf("invalid code format '%s': must be 'package.name' (lowercase, underscores, dots only)", s)
	}

	// "err" catches both "error" and "err"; codes already are errors
	if strings.Contains(s, "err") {
		return Code{}, fmt.Errorf("invalid code '%s': should not contain 'error' or 'err'", s)
	}

	return Code{value: s}, nil
}

// MustNewCode creates a new Code or panics if invalid
func MustNewCode(s string) Code {
	code, err := NewCode(s)
	if err != nil {
		panic(err)
	}
	return code
}

func (c Code) String() string {
	return c.value
}

// Package returns the prefix before the dot
func (c Code) Package() string {
	if idx := strings.Index(c.value, "."); idx != -1 {
		return c.value[:idx]
	}
	return ""
}

// Name returns the part after the dot
func (c Code) Name() string {
	if idx := strings.Index(c.value, "."); idx != -1 {
		return c.value[idx+1:]
	}
	return c.value
}

// IsValid reports whether c was built by NewCode; the zero Code is not valid
func (c Code) IsValid() bool {
	return codeRegex.MatchString(c.value)
}

func (c Code) Equals(other Code) bool {
	return c.value == other.value
}
