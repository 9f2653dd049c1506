// Package pipeline wires configuration into a runnable Bronze to Silver
// pipeline.
package pipeline

import (
	"context"

	"github.com/gear6io/wwi-etl/pipeline/bronze"
	"github.com/gear6io/wwi-etl/pipeline/config"
	"github.com/gear6io/wwi-etl/pipeline/history"
	"github.com/gear6io/wwi-etl/pipeline/orchestrator"
	"github.com/gear6io/wwi-etl/pipeline/publish"
	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/gear6io/wwi-etl/pipeline/silver"
	"github.com/gear6io/wwi-etl/pipeline/storage"
	"github.com/gear6io/wwi-etl/pipeline/storage/filesystem"
	s3store "github.com/gear6io/wwi-etl/pipeline/storage/minio"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
)

var PipelineHistoryFailed = errors.MustNewCode("pipeline.history_failed")

type Pipeline struct {
	Config       *config.Config
	Registry     *schema.Registry
	Bronze       storage.Source
	Silver       *filesystem.Store
	Reader       *bronze.Reader
	Writer       *silver.Writer
	Orchestrator *orchestrator.Orchestrator

	logger zerolog.Logger
}

// New builds every component named by cfg. Nothing is read or written yet.
func New(cfg *config.Config, logger zerolog.Logger) (*Pipeline, error) {
	dims, err := schema.LoadDimensionsFile(cfg.Dimensions.File)
	if err != nil {
		return nil, err
	}
	registry, err := schema.NewDefaultRegistry(dims)
	if err != nil {
		return nil, err
	}

	source, err := bronzeSource(cfg)
	if err != nil {
		return nil, err
	}
	reader := bronze.NewReader(source, bronze.Options{
		Delimiter: cfg.DelimiterRune(),
	}, logger)

	sink := filesystem.New(cfg.Paths.SilverDir)
	writer, err := silver.NewWriter(sink, silver.Options{
		Compression:      cfg.Silver.Compression,
		CompressionLevel: cfg.Silver.CompressionLevel,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Config:       cfg,
		Registry:     registry,
		Bronze:       source,
		Silver:       sink,
		Reader:       reader,
		Writer:       writer,
		Orchestrator: orchestrator.New(registry, reader, writer, cfg.Bronze.NullTokens, cfg.Runtime.Workers, logger),
		logger:       logger,
	}, nil
}

func bronzeSource(cfg *config.Config) (storage.Source, error) {
	switch cfg.Bronze.Kind {
	case config.SourceS3:
		return s3store.New(s3store.Options{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.Bronze.Bucket,
			Prefix:    cfg.Bronze.Prefix,
		})
	case config.SourceFilesystem, "":
		return filesystem.New(cfg.Paths.BronzeDir), nil
	}
	return nil, errors.Newf(errors.CommonUnsupported, "unknown bronze kind %q", cfg.Bronze.Kind)
}

// Run executes the named tables, or all of them, and records the result in
// the history ledger when enabled. The RunResult is returned even when
// recording fails.
func (p *Pipeline) Run(ctx context.Context, names []string, record bool) (*orchestrator.RunResult, error) {
	res := p.Orchestrator.Run(ctx, names...)
	if !record || !p.Config.History.Enabled {
		return res, nil
	}

	store, err := p.OpenHistory(ctx)
	if err != nil {
		return res, err
	}
	defer store.Close()
	if err := store.Record(ctx, res); err != nil {
		return res, errors.New(PipelineHistoryFailed, "failed to record run history", err)
	}
	return res, nil
}

func (p *Pipeline) OpenHistory(ctx context.Context) (*history.Store, error) {
	store, err := history.Open(ctx, p.Config.History.Path, p.logger)
	if err != nil {
		return nil, errors.New(PipelineHistoryFailed, "failed to open run history", err)
	}
	return store, nil
}

// Publisher uploads the Silver tree to the configured bucket. An empty prefix
// falls back to s3.prefix.
func (p *Pipeline) Publisher(ctx context.Context, prefix string) (*publish.Publisher, error) {
	if err := p.Config.S3.Validate(); err != nil {
		return nil, errors.New(config.ErrS3ValidationFailed, "s3 is not configured", err)
	}
	bucket, err := s3store.New(s3store.Options{
		Endpoint:  p.Config.S3.Endpoint,
		Region:    p.Config.S3.Region,
		AccessKey: p.Config.S3.AccessKey,
		SecretKey: p.Config.S3.SecretKey,
		UseSSL:    p.Config.S3.UseSSL,
		Bucket:    p.Config.S3.Bucket,
	})
	if err != nil {
		return nil, err
	}
	if err := bucket.EnsureBucket(ctx, p.Config.S3.Region); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = p.Config.S3.Prefix
	}
	return publish.New(p.Silver, bucket, prefix, p.logger), nil
}
