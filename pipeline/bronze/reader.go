// Package bronze decodes raw delimited exports into table.Raw values.
package bronze

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"io"
	"strconv"
	"strings"

	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/storage"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var BronzeReadFailed = errors.MustNewCode("bronze.read_failed")

// Options controls CSV decoding
type Options struct {
	Delimiter  rune
	LazyQuotes bool
	// TrimSpace trims leading whitespace of unquoted fields
	TrimSpace bool
}

func DefaultOptions() Options {
	return Options{Delimiter: ','}
}

// Reader loads Bronze files from a storage.Source
type Reader struct {
	source storage.Source
	opts   Options
	logger zerolog.Logger
}

func NewReader(source storage.Source, opts Options, logger zerolog.Logger) *Reader {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Reader{
		source: source,
		opts:   opts,
		logger: logger.With().Str("component", "bronze").Logger(),
	}
}

// Load reads the Bronze file of spec. A missing, empty or header-only file
// fails with pipeline.missing_source and a ragged row with
// pipeline.schema_mismatch.
func (r *Reader) Load(ctx context.Context, spec schema.TableSpec) (*table.Raw, error) {
	key := spec.BronzeKey()
	rc, err := r.source.Open(ctx, key)
	if err != nil {
		return nil, errors.AsError(err).AddContext("table", spec.Name)
	}
	defer rc.Close()

	raw, err := r.decode(ctx, rc)
	if err != nil {
		return nil, errors.AsError(err).AddContext("table", spec.Name).AddContext("source", key)
	}
	raw.Name = spec.Name
	raw.Source = key

	r.logger.Debug().
		Str("table", spec.Name).
		Str("stage", "load").
		Str("source", key).
		Int("rows", raw.Rows()).
		Int("columns", len(raw.Header)).
		Msg("Loaded bronze file")
	return raw, nil
}

func (r *Reader) decode(ctx context.Context, in io.Reader) (*table.Raw, error) {
	// BOMOverride strips a UTF-8 BOM and decodes UTF-16 when its BOM is present
	dec := transform.NewReader(in, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(dec)
	cr.Comma = r.opts.Delimiter
	cr.LazyQuotes = r.opts.LazyQuotes
	cr.TrimLeadingSpace = r.opts.TrimSpace
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.PipelineMissingSource, "no data: file is empty", nil)
	}
	if err != nil {
		return nil, wrapParse(err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var records [][]string
	for {
		if len(records)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.New(errors.CommonTimeout, "load cancelled", err)
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapParse(err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errors.New(errors.PipelineMissingSource, "no data: file has a header only", nil)
	}
	return &table.Raw{Header: header, Records: records}, nil
}

func checkHeader(header []string) error {
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			return errors.New(errors.PipelineSchemaMismatch, "header has an empty column name", nil).
				AddContext("position", strconv.Itoa(i+1))
		}
		if prev, dup := seen[h]; dup {
			return errors.Newf(errors.PipelineSchemaMismatch, "header repeats column %q", h).
				AddContext("position", strconv.Itoa(i+1)).
				AddContext("first", strconv.Itoa(prev+1))
		}
		seen[h] = i
	}
	return nil
}

// wrapParse maps encoding/csv failures. Field count errors are schema
// mismatches; anything else is a read failure.
func wrapParse(err error) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		code := BronzeReadFailed
		if pe.Err == csv.ErrFieldCount {
			code = errors.PipelineSchemaMismatch
		}
		return errors.New(code, "malformed bronze row", err).
			AddContext("line", strconv.Itoa(pe.Line))
	}
	return errors.New(BronzeReadFailed, "failed to read bronze file", err)
}
