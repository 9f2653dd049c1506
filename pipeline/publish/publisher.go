// Package publish uploads Silver files to an object store.
package publish

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gear6io/wwi-etl/pipeline/storage"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
)

var PublishListFailed = errors.MustNewCode("publish.list_failed")

// DatePlaceholder in a prefix is replaced by the UTC date of the run
const DatePlaceholder = "{date}"

// Local is where Silver files are read from
type Local interface {
	storage.Source
	storage.Lister
}

type Publisher struct {
	Local Local
	Sink  storage.Sink
	// Prefix is prepended to every uploaded key
	Prefix string
	// Pattern filters base names, "*.parquet" when empty
	Pattern string
	Logger  zerolog.Logger

	now func() time.Time
}

func New(local Local, sink storage.Sink, prefix string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		Local:  local,
		Sink:   sink,
		Prefix: prefix,
		Logger: logger.With().Str("component", "publish").Logger(),
		now:    time.Now,
	}
}

// Failure records one file that could not be uploaded
type Failure struct {
	Key    string
	Code   string
	Reason string
}

type Summary struct {
	Prefix   string
	Uploaded []string
	Failed   []Failure
	Total    int
	Bytes    int64
}

// ResolvePrefix expands DatePlaceholder
func ResolvePrefix(prefix string, now time.Time) string {
	return strings.ReplaceAll(prefix, DatePlaceholder, now.UTC().Format("2006-01-02"))
}

// Run uploads every matching file. A failed file is recorded in the summary
// and the remaining files are still uploaded.
func (p *Publisher) Run(ctx context.Context) (Summary, error) {
	now := time.Now
	if p.now != nil {
		now = p.now
	}
	summary := Summary{Prefix: ResolvePrefix(p.Prefix, now())}

	keys, err := p.Local.List(ctx, "")
	if err != nil {
		return summary, errors.New(PublishListFailed, "failed to list silver files", err)
	}
	pattern := p.Pattern
	if pattern == "" {
		pattern = "*.parquet"
	}

	for _, key := range keys {
		if ok, _ := path.Match(pattern, path.Base(key)); !ok {
			continue
		}
		summary.Total++
		if err := ctx.Err(); err != nil {
			return summary, errors.New(errors.CommonTimeout, "publish cancelled", err)
		}

		dest := storage.JoinKey(summary.Prefix, key)
		n, err := p.upload(ctx, key, dest)
		if err != nil {
			coded := errors.AsError(err)
			summary.Failed = append(summary.Failed, Failure{Key: key, Code: coded.Code.String(), Reason: coded.Error()})
			p.Logger.Error().Err(err).Str("key", key).Str("dest", dest).Msg("Failed to upload silver file")
			continue
		}
		summary.Uploaded = append(summary.Uploaded, dest)
		summary.Bytes += n
		p.Logger.Debug().Str("key", key).Str("dest", dest).Int64("bytes", n).Msg("Uploaded silver file")
	}

	p.Logger.Info().
		Str("prefix", summary.Prefix).
		Int("uploaded", len(summary.Uploaded)).
		Int("failed", len(summary.Failed)).
		Int("total", summary.Total).
		Msg("Publish finished")
	return summary, nil
}

func (p *Publisher) upload(ctx context.Context, key, dest string) (int64, error) {
	rc, err := p.Local.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	// S3 needs the object size up front for a single-part upload
	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, errors.New(errors.PipelineWriteFailed, "failed to read silver file", err).AddContext("key", key)
	}
	if err := p.Sink.Put(ctx, dest, bytes.NewReader(data), int64(len(data))); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
