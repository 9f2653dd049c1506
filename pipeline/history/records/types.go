package records

import (
	"time"

	"github.com/uptrace/bun"
)

// Run is one row of the runs ledger
type Run struct {
	bun.BaseModel `bun:"table:runs"`

	ID         string    `bun:"id,pk,type:text" json:"id"`
	StartedAt  time.Time `bun:"started_at,notnull" json:"started_at"`
	FinishedAt time.Time `bun:"finished_at,notnull" json:"finished_at"`
	Succeeded  int       `bun:"succeeded,notnull,default:0" json:"succeeded"`
	Failed     int       `bun:"failed,notnull,default:0" json:"failed"`
	ExitCode   int       `bun:"exit_code,notnull" json:"exit_code"`

	Tables []*TableRun `bun:"rel:has-many,join:id=run_id" json:"tables"`
}

func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// TableRun records the outcome of one table within a run
type TableRun struct {
	bun.BaseModel `bun:"table:run_tables"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	RunID      string `bun:"run_id,notnull" json:"run_id"`
	Position   int    `bun:"position,notnull" json:"position"`
	Name       string `bun:"name,notnull" json:"name"`
	Domain     string `bun:"domain" json:"domain"`
	Status     string `bun:"status,notnull" json:"status"`
	Stage      string `bun:"stage,notnull" json:"stage"`
	Code       string `bun:"code" json:"code,omitempty"`
	Reason     string `bun:"reason" json:"reason,omitempty"`
	Rows       int    `bun:"rows,notnull,default:0" json:"rows"`
	Columns    int    `bun:"columns,notnull,default:0" json:"columns"`
	Invalid    int    `bun:"invalid,notnull,default:0" json:"invalid"`
	Dropped    string `bun:"dropped" json:"dropped,omitempty"` // comma separated
	Output     string `bun:"output" json:"output,omitempty"`
	Bytes      int64  `bun:"bytes,notnull,default:0" json:"bytes"`
	Checksum   string `bun:"checksum" json:"checksum,omitempty"`
	DurationMs int64  `bun:"duration_ms,notnull,default:0" json:"duration_ms"`
}
