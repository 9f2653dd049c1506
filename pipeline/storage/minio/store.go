// Package minio stores objects in an S3-compatible bucket.
package minio

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/gear6io/wwi-etl/pipeline/storage"
	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Package-specific error codes for the S3 store
var (
	S3ClientFailed = errors.MustNewCode("s3.client_failed")
	S3BucketFailed = errors.MustNewCode("s3.bucket_failed")
	S3OpenFailed   = errors.MustNewCode("s3.open_failed")
	S3ListFailed   = errors.MustNewCode("s3.list_failed")
)

// Options configures the client and the key namespace
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Prefix is prepended to every key
	Prefix string
}

// Store reads and writes objects under Prefix in Bucket
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

func New(opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New(errors.CommonValidation, "bucket is required", nil)
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       opts.UseSSL,
		Region:       opts.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, errors.New(S3ClientFailed, "failed to create s3 client", err).AddContext("endpoint", opts.Endpoint)
	}
	return &Store{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

// Bucket returns the bucket objects are stored in
func (s *Store) Bucket() string { return s.bucket }

// EnsureBucket creates the bucket when it does not exist yet
func (s *Store) EnsureBucket(ctx context.Context, region string) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.New(S3BucketFailed, "failed to check bucket", err).AddContext("bucket", s.bucket)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return errors.New(S3BucketFailed, "failed to create bucket", err).AddContext("bucket", s.bucket)
	}
	return nil
}

func (s *Store) objectKey(key string) (string, error) {
	k, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	return storage.JoinKey(s.prefix, k), nil
}

// Open stats the object first so a missing key is reported up front rather
// than on the first Read.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, k, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, errors.New(errors.PipelineMissingSource, "object not found", err).
				AddContext("bucket", s.bucket).AddContext("key", k)
		}
		return nil, errors.New(S3OpenFailed, "failed to stat object", err).AddContext("key", k)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, k, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.New(S3OpenFailed, "failed to get object", err).AddContext("key", k)
	}
	return obj, nil
}

// Put uploads r as a single object. S3 makes the object visible only once the
// upload completes.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, k, r, size, minio.PutObjectOptions{
		ContentType:          contentType(k),
		DisableContentSha256: !strings.HasPrefix(s.client.EndpointURL().Scheme, "https"),
	})
	if err != nil {
		return errors.New(errors.PipelineWriteFailed, "failed to upload object", err).
			AddContext("bucket", s.bucket).AddContext("key", k)
	}
	return nil
}

// List returns keys relative to the store prefix
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	full := storage.JoinKey(s.prefix, prefix)
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: full, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.New(S3ListFailed, "failed to list objects", obj.Err).AddContext("prefix", full)
		}
		key := obj.Key
		if s.prefix != "" {
			key = strings.TrimPrefix(key, s.prefix+"/")
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return false
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".parquet"):
		return "application/vnd.apache.parquet"
	case strings.HasSuffix(key, ".csv"):
		return "text/csv"
	}
	return "application/octet-stream"
}
