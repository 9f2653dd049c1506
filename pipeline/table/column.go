package table

import (
	"fmt"
	"time"
)

// Kind is the value type held by a Column
type Kind int

const (
	KindString Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Column is a named, typed vector. Only the slice matching Kind is populated.
// Valid[i] == false means row i has no value; the typed slot is then the zero
// value.
type Column struct {
	Name    string
	Kind    Kind
	Strings []string
	Ints    []int64
	Floats  []float64
	Bools   []bool
	Times   []time.Time
	Valid   []bool
}

// NewStringColumn builds a string column. A nil valid marks every row present.
func NewStringColumn(name string, values []string, valid []bool) *Column {
	return &Column{Name: name, Kind: KindString, Strings: values, Valid: fillValid(valid, len(values))}
}

func NewInt64Column(name string, values []int64, valid []bool) *Column {
	return &Column{Name: name, Kind: KindInt64, Ints: values, Valid: fillValid(valid, len(values))}
}

func NewFloat64Column(name string, values []float64, valid []bool) *Column {
	return &Column{Name: name, Kind: KindFloat64, Floats: values, Valid: fillValid(valid, len(values))}
}

func NewBoolColumn(name string, values []bool, valid []bool) *Column {
	return &Column{Name: name, Kind: KindBool, Bools: values, Valid: fillValid(valid, len(values))}
}

func NewTimestampColumn(name string, values []time.Time, valid []bool) *Column {
	return &Column{Name: name, Kind: KindTimestamp, Times: values, Valid: fillValid(valid, len(values))}
}

func fillValid(valid []bool, n int) []bool {
	if valid != nil {
		return valid
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func (c *Column) Len() int {
	return len(c.Valid)
}

func (c *Column) IsNull(i int) bool {
	return !c.Valid[i]
}

func (c *Column) NullCount() int {
	n := 0
	for _, ok := range c.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// AllNull reports whether no row holds a value. An empty column is all null.
func (c *Column) AllNull() bool {
	for _, ok := range c.Valid {
		if ok {
			return false
		}
	}
	return true
}

// Renamed returns a shallow copy under a new name. Value slices are shared.
func (c *Column) Renamed(name string) *Column {
	cp := *c
	cp.Name = name
	return &cp
}

// Text returns the value at row i rendered as text, and false when absent.
func (c *Column) Text(i int) (string, bool) {
	if !c.Valid[i] {
		return "", false
	}
	switch c.Kind {
	case KindString:
		return c.Strings[i], true
	case KindInt64:
		return fmt.Sprintf("%d", c.Ints[i]), true
	case KindFloat64:
		return fmt.Sprintf("%g", c.Floats[i]), true
	case KindBool:
		return fmt.Sprintf("%t", c.Bools[i]), true
	case KindTimestamp:
		return c.Times[i].Format(time.RFC3339Nano), true
	}
	return "", false
}
