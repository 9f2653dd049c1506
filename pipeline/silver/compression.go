package silver

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/gear6io/wwi-etl/pkg/errors"
)

// Package-specific error codes for parquet compression
var (
	SilverCompressionUnsupported  = errors.MustNewCode("silver.compression_unsupported")
	SilverCompressionInvalidLevel = errors.MustNewCode("silver.compression_invalid_level")
)

// GetCompressionCodec converts a compression name to a parquet codec
func GetCompressionCodec(compression string) (compress.Compression, error) {
	switch strings.ToLower(compression) {
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip", "gz":
		return compress.Codecs.Gzip, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	default:
		return compress.Codecs.Uncompressed, errors.New(SilverCompressionUnsupported, "unsupported compression type", nil).
			AddContext("compression", compression)
	}
}

// ValidateCompressionLevel checks level against the codec's range. Zero means
// the codec default and codecs without levels accept anything.
func ValidateCompressionLevel(compression string, level int) error {
	if level == 0 {
		return nil
	}
	var max int
	switch strings.ToLower(compression) {
	case "gzip", "gz":
		max = 9
	case "brotli":
		max = 11
	case "zstd":
		max = 22
	default:
		return nil
	}
	if level < 1 || level > max {
		return errors.Newf(SilverCompressionInvalidLevel, "%s compression level must be between 1 and %d", compression, max).
			AddContext("level", strconv.Itoa(level))
	}
	return nil
}
