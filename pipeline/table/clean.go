package table

// DropReport lists columns removed because every value was absent
type DropReport struct {
	Columns []string
}

func (d DropReport) Len() int {
	return len(d.Columns)
}

// ColumnCoercion counts what happened to one column during coercion
type ColumnCoercion struct {
	Column  string
	Kind    Kind
	Parsed  int
	Absent  int
	Invalid int
}

// CoercionReport holds one entry per coerced column, in frame order
type CoercionReport struct {
	Columns []ColumnCoercion
}

// Invalid sums values that were present but could not be parsed
func (r CoercionReport) Invalid() int {
	n := 0
	for _, c := range r.Columns {
		n += c.Invalid
	}
	return n
}

func (r CoercionReport) Lookup(column string) (ColumnCoercion, bool) {
	for _, c := range r.Columns {
		if c.Column == column {
			return c, true
		}
	}
	return ColumnCoercion{}, false
}

// Clean is a typed table ready to be persisted
type Clean struct {
	Frame    *Frame
	Dropped  DropReport
	Coercion CoercionReport
}

func (c *Clean) Rows() int {
	return c.Frame.Rows()
}
