package transform

import (
	"context"
	"time"

	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
)

// Transformer cleans one table according to its spec. The same type serves
// bespoke and generic dimension tables; only Spec.Rules differ.
type Transformer struct {
	Spec       schema.TableSpec
	Nulls      table.NullSet
	Normalizer Normalizer
	Coercer    *Coercer
	Pruner     Pruner
	logger     zerolog.Logger
}

// New builds a transformer. nullTokens are the cell values read as absent.
func New(spec schema.TableSpec, nullTokens []string, logger zerolog.Logger) *Transformer {
	return &Transformer{
		Spec:    spec,
		Nulls:   table.NewNullSet(nullTokens),
		Coercer: NewCoercer(),
		logger:  logger.With().Str("component", "transform").Str("table", spec.Name).Logger(),
	}
}

// Transform runs normalize, rules, coerce, prune and the null audit over raw.
// raw is not modified.
func (t *Transformer) Transform(ctx context.Context, raw *table.Raw) (*table.Clean, error) {
	start := time.Now()
	t.logger.Info().Str("stage", "transform").Int("rows", raw.Rows()).Int("columns", len(raw.Header)).Msg("Starting transform")

	frame, err := table.FromRaw(raw, t.Nulls)
	if err != nil {
		return nil, errors.New(errors.PipelineSchemaMismatch, "malformed bronze table", err).AddContext("table", t.Spec.Name)
	}

	if frame, err = t.Normalizer.Apply(frame, t.Spec); err != nil {
		return nil, err
	}
	t.logger.Debug().Str("stage", "transform").Strs("columns", frame.Names()).Msg("Renamed columns")

	for _, rule := range t.Spec.Rules {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.CommonTimeout, "transform cancelled", err).AddContext("table", t.Spec.Name)
		}
		if frame, err = rule.Apply(frame); err != nil {
			return nil, errors.AsError(err).AddContext("table", t.Spec.Name)
		}
		t.logger.Debug().Str("stage", "transform").Str("rule", rule.Name).Msg("Applied rule")
	}

	frame, coercion, err := t.Coercer.Apply(frame, t.Spec)
	if err != nil {
		return nil, err
	}
	for _, c := range coercion.Columns {
		if c.Invalid > 0 {
			t.logger.Warn().Str("stage", "transform").Str("column", c.Column).Str("kind", c.Kind.String()).
				Int("invalid", c.Invalid).Msg("Unparseable values set to null")
		}
	}

	frame, dropped := t.Pruner.Apply(frame)
	if dropped.Len() > 0 {
		t.logger.Info().Str("stage", "transform").Strs("dropped", dropped.Columns).Int("remaining", frame.NumColumns()).Msg("Dropped empty columns")
	}

	AuditNulls(frame, t.Spec, t.logger)
	if err := CheckPrimaryKey(frame, t.Spec); err != nil {
		return nil, err
	}

	t.logger.Info().Str("stage", "transform").
		Int("rows", frame.Rows()).
		Int("columns", frame.NumColumns()).
		Dur("took", time.Since(start)).
		Msg("Transform complete")
	return &table.Clean{Frame: frame, Dropped: dropped, Coercion: coercion}, nil
}
