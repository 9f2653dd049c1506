// Package orchestrator drives every requested table through load, transform
// and save, and collects a RunResult. A failing table never stops the others.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/silver"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pipeline/transform"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/gear6io/wwi-etl/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Loader reads the Bronze file of a table
type Loader interface {
	Load(ctx context.Context, spec schema.TableSpec) (*table.Raw, error)
}

// Persister stores a cleaned table
type Persister interface {
	Write(ctx context.Context, spec schema.TableSpec, clean *table.Clean) (silver.Output, error)
}

type Orchestrator struct {
	Registry   *schema.Registry
	Reader     Loader
	Writer     Persister
	NullTokens []string
	// Workers above 1 runs that many tables at once
	Workers int
	Logger  zerolog.Logger

	mu   sync.Mutex
	done int
}

func New(registry *schema.Registry, reader Loader, writer Persister, nullTokens []string, workers int, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		Registry:   registry,
		Reader:     reader,
		Writer:     writer,
		NullTokens: nullTokens,
		Workers:    workers,
		Logger:     logger,
	}
}

// Run processes names, or every registered table when names is empty
func (o *Orchestrator) Run(ctx context.Context, names ...string) *RunResult {
	if len(names) == 0 {
		names = o.Registry.Names()
	}
	names = dedupe(names)

	res := &RunResult{
		RunID:     utils.NewRunID(),
		StartedAt: time.Now().UTC(),
		Tables:    make([]TableResult, len(names)),
	}
	runLog := o.Logger.With().Str("run_id", res.RunID).Logger()
	log := runLog.With().Str("component", "orchestrator").Logger()
	log.Info().Str("stage", "run").Int("tables", len(names)).Int("workers", o.workers()).Msg("Starting run")

	o.sweep(log)

	o.mu.Lock()
	o.done = 0
	o.mu.Unlock()

	if o.workers() <= 1 {
		for i, name := range names {
			res.Tables[i] = o.runTable(ctx, runLog, name, len(names))
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.workers())
		for i, name := range names {
			g.Go(func() error {
				res.Tables[i] = o.runTable(ctx, runLog, name, len(names))
				return nil
			})
		}
		g.Wait()
	}

	res.FinishedAt = time.Now().UTC()
	ev := log.Info()
	if res.HasFailures() {
		ev = log.Warn()
	}
	ev.Str("stage", "run").
		Int("succeeded", len(res.Succeeded())).
		Int("failed", len(res.Failed())).
		Dur("duration", res.Duration()).
		Msg("Run finished")
	return res
}

func (o *Orchestrator) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

func (o *Orchestrator) sweep(log zerolog.Logger) {
	s, ok := o.Writer.(silver.Sweeper)
	if !ok {
		return
	}
	if _, err := s.Sweep(); err != nil {
		log.Warn().Err(err).Msg("Failed to sweep stale temp files")
	}
}

// runTable never panics; a panic inside any stage becomes a failed result.
// runLog carries only the run id so stage components can tag themselves.
func (o *Orchestrator) runTable(ctx context.Context, runLog zerolog.Logger, name string, total int) (result TableResult) {
	start := time.Now()
	result = TableResult{Name: name, Stage: StageLookup}
	tlog := runLog.With().Str("component", "orchestrator").Str("table", name).Logger()

	defer func() {
		if r := recover(); r != nil {
			result = o.fail(tlog, result, errors.New(errors.CommonInternal, fmt.Sprintf("panic: %v", r), nil))
		}
		result.Duration = time.Since(start)
		o.progress(tlog, result, total)
	}()

	spec, err := o.Registry.Lookup(name)
	if err != nil {
		return o.fail(tlog, result, err)
	}
	result.Domain = string(spec.Domain)

	result.Stage = StageLoad
	if err := ctx.Err(); err != nil {
		return o.fail(tlog, result, errors.New(errors.CommonTimeout, "run cancelled before table started", err))
	}
	raw, err := o.Reader.Load(ctx, spec)
	if err != nil {
		return o.fail(tlog, result, err)
	}

	result.Stage = StageTransform
	clean, err := transform.New(spec, o.NullTokens, runLog).Transform(ctx, raw)
	if err != nil {
		return o.fail(tlog, result, err)
	}
	result.Rows = clean.Rows()
	result.Columns = clean.Frame.NumColumns()
	result.Dropped = clean.Dropped.Columns
	result.Invalid = clean.Coercion.Invalid()

	result.Stage = StageSave
	out, err := o.Writer.Write(ctx, spec, clean)
	if err != nil {
		return o.fail(tlog, result, err)
	}
	result.Output = out.Key
	result.Bytes = out.Bytes
	result.Checksum = out.Checksum

	result.Stage = StageDone
	result.Status = StatusSucceeded
	return result
}

func (o *Orchestrator) fail(log zerolog.Logger, result TableResult, err error) TableResult {
	coded := errors.AsError(err)
	result.Status = StatusFailed
	result.Code = coded.Code.String()
	result.Reason = coded.Error()

	log.Error().
		Str("stage", string(result.Stage)).
		Str("code", result.Code).
		Fields(contextFields(coded)).
		Msg(coded.Message)
	return result
}

func (o *Orchestrator) progress(log zerolog.Logger, result TableResult, total int) {
	o.mu.Lock()
	o.done++
	n := o.done
	o.mu.Unlock()

	if result.Succeeded() {
		log.Info().
			Str("stage", "run").
			Int("rows", result.Rows).
			Int("columns", result.Columns).
			Str("output", result.Output).
			Dur("duration", result.Duration).
			Msgf("Table %d/%d done", n, total)
	}
}

func contextFields(e *errors.Error) map[string]interface{} {
	out := make(map[string]interface{}, len(e.Context))
	for k, v := range e.Context {
		if k == "table" || k == "stage" {
			continue
		}
		out[k] = v
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
