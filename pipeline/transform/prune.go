package transform

import (
	"github.com/gear6io/wwi-etl/pipeline/table"
)

// Pruner removes columns that hold no value in any row
type Pruner struct{}

func (Pruner) Apply(f *table.Frame) (*table.Frame, table.DropReport) {
	var report table.DropReport
	for _, c := range f.Columns() {
		if c.AllNull() {
			report.Columns = append(report.Columns, c.Name)
		}
	}
	if report.Len() == 0 {
		return f, report
	}
	return f.Drop(report.Columns...), report
}
