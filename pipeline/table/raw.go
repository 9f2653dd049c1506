package table

import (
	"strings"
)

// Raw is a table exactly as read from Bronze: a header and string records.
type Raw struct {
	Name    string
	Source  string
	Header  []string
	Records [][]string
}

func (r *Raw) Rows() int {
	return len(r.Records)
}

// NullSet decides which cell values mean "no value"
type NullSet map[string]struct{}

func NewNullSet(tokens []string) NullSet {
	s := make(NullSet, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

// IsNull trims surrounding whitespace before matching. A blank cell is
// always null.
func (s NullSet) IsNull(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	_, ok := s[v]
	return ok
}

// FromRaw turns records into string columns. Cells matching nulls are marked
// absent. Records are assumed to have len(Header) fields.
func FromRaw(raw *Raw, nulls NullSet) (*Frame, error) {
	rows := len(raw.Records)
	cols := make([]*Column, len(raw.Header))
	for j, name := range raw.Header {
		values := make([]string, rows)
		valid := make([]bool, rows)
		for i, rec := range raw.Records {
			if j >= len(rec) || nulls.IsNull(rec[j]) {
				continue
			}
			values[i] = rec[j]
			valid[i] = true
		}
		cols[j] = NewStringColumn(strings.TrimSpace(name), values, valid)
	}
	return NewFrame(raw.Name, rows, cols...)
}
