package errors

import (
	"fmt"
	"runtime"
	"time"
)

// Error carries a code, a human message, an optional cause and free-form
// string context.
type Error struct {
	Code      Code
	Message   string
	Cause     error
	Context   map[string]string
	Stack     []Frame
	Timestamp time.Time
}

// Frame represents a stack frame
type Frame struct {
	Function string
	File     string
	Line     int
}

// New builds an error. cause may be nil.
func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
		Stack:     captureStackTrace(),
	}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

func Wrap(code Code, err error, message string) *Error {
	return New(code, message, err)
}

func Wrapf(code Code, err error, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), err)
}

// WithAdditional copies cause and appends an additional_N context entry.
// Standard errors are wrapped as common.internal.
func WithAdditional(cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	coded, ok := cause.(*Error)
	if !ok {
		return New(CommonInternal, msg, cause).AddContext("additional_0", msg)
	}

	out := &Error{
		Code:      coded.Code,
		Message:   coded.Message,
		Cause:     coded.Cause,
		Context:   make(map[string]string, len(coded.Context)+1),
		Stack:     coded.Stack,
		Timestamp: coded.Timestamp,
	}
	for k, v := range coded.Context {
		out.Context[k] = v
	}

	next := 0
	for {
		if _, exists := out.Context[fmt.Sprintf("additional_%d", next)]; !exists {
			break
		}
		next++
	}
	out.Context[fmt.Sprintf("additional_%d", next)] = msg
	return out
}

func (e *Error) AddContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func captureStackTrace() []Frame {
	var frames []Frame
	for i := 2; i < 12; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		name := ""
		if fn := runtime.FuncForPC(pc); fn != nil {
			name = fn.Name()
		}
		frames = append(frames, Frame{
			Function: name,
			File:     file,
			Line:     line,
		})
	}
	return frames
}
