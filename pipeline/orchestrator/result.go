package orchestrator

import (
	"time"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Stage names the step a table was in when it finished
type Stage string

const (
	StageLookup    Stage = "lookup"
	StageLoad      Stage = "load"
	StageTransform Stage = "transform"
	StageSave      Stage = "save"
	StageDone      Stage = "done"
)

// TableResult is the outcome of one table in a run
type TableResult struct {
	Name   string
	Domain string
	Status Status
	Stage  Stage
	// Code and Reason are set for failures
	Code   string
	Reason string

	Rows     int
	Columns  int
	Dropped  []string
	Invalid  int
	Output   string
	Bytes    int64
	Checksum string
	Duration time.Duration
}

func (t TableResult) Succeeded() bool {
	return t.Status == StatusSucceeded
}

// RunResult lists table outcomes in the order they were requested
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Tables     []TableResult
}

func (r *RunResult) Succeeded() []TableResult {
	return r.filter(StatusSucceeded)
}

func (r *RunResult) Failed() []TableResult {
	return r.filter(StatusFailed)
}

func (r *RunResult) filter(s Status) []TableResult {
	var out []TableResult
	for _, t := range r.Tables {
		if t.Status == s {
			out = append(out, t)
		}
	}
	return out
}

func (r *RunResult) HasFailures() bool {
	for _, t := range r.Tables {
		if t.Status != StatusSucceeded {
			return true
		}
	}
	return false
}

// ExitCode is 0 when every table succeeded and 1 otherwise
func (r *RunResult) ExitCode() int {
	if r.HasFailures() {
		return 1
	}
	return 0
}

func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Lookup returns the result for the named table
func (r *RunResult) Lookup(name string) (TableResult, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableResult{}, false
}
