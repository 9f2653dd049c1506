package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// InternalError is implemented by package-local error types that know how to
// present themselves as a coded *Error.
type InternalError interface {
	error
	Transform() *Error
}

// IsCoded reports whether err is an *Error
func IsCoded(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// GetContext returns the context of the first *Error in the chain
func GetContext(err error) map[string]string {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded.Context
	}
	return nil
}

// GetCode returns the code of the first *Error in the chain, or "" if none
func GetCode(err error) string {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded.Code.String()
	}
	return ""
}

// HasCode reports whether any *Error in the chain carries code
func HasCode(err error, code Code) bool {
	for err != nil {
		if coded, ok := err.(*Error); ok && coded.Code.Equals(code) {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// FormatError renders err on multiple lines for logs and CLI output.
// Context keys are sorted.
func FormatError(err error) string {
	coded, ok := err.(*Error)
	if !ok {
		return err.Error()
	}

	parts := []string{
		fmt.Sprintf("Code: %s", coded.Code),
		fmt.Sprintf("Message: %s", coded.Message),
	}
	if len(coded.Context) > 0 {
		keys := make([]string, 0, len(coded.Context))
		for k := range coded.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts = append(parts, "Context:")
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("  %s: %v", k, coded.Context[k]))
		}
	}
	if coded.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", coded.Cause))
	}
	return strings.Join(parts, "\n")
}

// AsError converts any error to *Error. InternalError values use Transform,
// coded errors anywhere in the chain are returned as-is, anything else is
// wrapped as common.internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if ie, ok := err.(InternalError); ok {
		return ie.Transform()
	}
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded
	}
	return New(CommonInternal, err.Error(), err)
}
