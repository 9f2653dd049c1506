// Package silver persists cleaned tables as parquet files.
package silver

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/storage"
	"github.com/gear6io/wwi-etl/pipeline/table"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"
)

// CreatedBy is written into every file footer. It is fixed so identical input
// produces identical bytes.
const CreatedBy = "wwi-etl"

// Options controls the parquet encoding
type Options struct {
	Compression      string
	CompressionLevel int
}

// Output describes one persisted Silver file
type Output struct {
	Key      string
	Rows     int
	Columns  int
	Bytes    int64
	Checksum string
}

// Sweeper is implemented by sinks that can leave in-flight files behind
type Sweeper interface {
	Sweep() (int, error)
}

// Writer encodes frames to parquet and puts them into a Sink
type Writer struct {
	sink   storage.Sink
	opts   Options
	mem    memory.Allocator
	logger zerolog.Logger
}

func NewWriter(sink storage.Sink, opts Options, logger zerolog.Logger) (*Writer, error) {
	if _, err := GetCompressionCodec(opts.Compression); err != nil {
		return nil, err
	}
	if err := ValidateCompressionLevel(opts.Compression, opts.CompressionLevel); err != nil {
		return nil, err
	}
	return &Writer{
		sink:   sink,
		opts:   opts,
		mem:    memory.NewGoAllocator(),
		logger: logger.With().Str("component", "silver").Logger(),
	}, nil
}

// Sweep removes in-flight files left by an interrupted run when the sink
// supports it.
func (w *Writer) Sweep() (int, error) {
	s, ok := w.sink.(Sweeper)
	if !ok {
		return 0, nil
	}
	n, err := s.Sweep()
	if n > 0 {
		w.logger.Warn().Int("removed", n).Msg("Removed stale temp files from an interrupted run")
	}
	return n, err
}

// Write encodes clean and stores it under spec.SilverKey(). The previous file,
// if any, is replaced only when the new one is complete.
func (w *Writer) Write(ctx context.Context, spec schema.TableSpec, clean *table.Clean) (Output, error) {
	key := spec.SilverKey()
	start := time.Now()

	data, err := w.Encode(clean.Frame)
	if err != nil {
		return Output{}, errors.AsError(err).AddContext("table", spec.Name).AddContext("key", key)
	}
	if err := ctx.Err(); err != nil {
		return Output{}, errors.New(errors.CommonTimeout, "write cancelled", err).AddContext("table", spec.Name)
	}
	if err := w.sink.Put(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return Output{}, errors.AsError(err).AddContext("table", spec.Name)
	}

	out := Output{
		Key:      key,
		Rows:     clean.Frame.Rows(),
		Columns:  clean.Frame.NumColumns(),
		Bytes:    int64(len(data)),
		Checksum: Checksum(data),
	}
	w.logger.Debug().
		Str("table", spec.Name).
		Str("stage", "save").
		Str("key", key).
		Int64("bytes", out.Bytes).
		Str("checksum", out.Checksum).
		Dur("duration", time.Since(start)).
		Msg("Wrote silver file")
	return out, nil
}

// Encode renders f as a complete parquet file in memory
func (w *Writer) Encode(f *table.Frame) ([]byte, error) {
	if f.NumColumns() == 0 {
		return nil, errors.New(errors.PipelineWriteFailed, "table has no columns left to write", nil)
	}
	codec, _ := GetCompressionCodec(w.opts.Compression)
	props := []parquet.WriterProperty{
		parquet.WithCompression(codec),
		parquet.WithCreatedBy(CreatedBy),
	}
	if w.opts.CompressionLevel > 0 {
		props = append(props, parquet.WithCompressionLevel(w.opts.CompressionLevel))
	}

	rec, err := Record(w.mem, f)
	if err != nil {
		return nil, errors.AsError(err)
	}
	defer rec.Release()

	var buf bytes.Buffer
	fw, err := pqarrow.NewFileWriter(rec.Schema(), &buf,
		parquet.NewWriterProperties(props...),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return nil, errors.New(errors.PipelineWriteFailed, "failed to create parquet writer", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return nil, errors.New(errors.PipelineWriteFailed, "failed to write parquet record", err)
	}
	if err := fw.Close(); err != nil {
		return nil, errors.New(errors.PipelineWriteFailed, "failed to finish parquet file", err)
	}
	return buf.Bytes(), nil
}

// Checksum is the hex xxh3 hash of data
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}
