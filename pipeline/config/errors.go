package config

import "github.com/gear6io/wwi-etl/pkg/errors"

// Config-specific error codes
var (
	ErrConfigFileReadFailed    = errors.MustNewCode("config.file_read_failed")
	ErrConfigFileParseFailed   = errors.MustNewCode("config.file_parse_failed")
	ErrConfigValidationFailed  = errors.MustNewCode("config.validation_failed")
	ErrConfigFileMarshalFailed = errors.MustNewCode("config.file_marshal_failed")
	ErrConfigFileWriteFailed   = errors.MustNewCode("config.file_write_failed")
	ErrPathsValidationFailed   = errors.MustNewCode("config.paths_validation_failed")
	ErrBronzeValidationFailed  = errors.MustNewCode("config.bronze_validation_failed")
	ErrSilverValidationFailed  = errors.MustNewCode("config.silver_validation_failed")
	ErrS3ValidationFailed      = errors.MustNewCode("config.s3_validation_failed")
	ErrRuntimeValidationFailed = errors.MustNewCode("config.runtime_validation_failed")

	// Logging-specific error codes
	ErrLogDirectoryCreationFailed = errors.MustNewCode("config.log_directory_creation_failed")
	ErrLogFileOpenFailed          = errors.MustNewCode("config.log_file_open_failed")
	ErrLogFilePathRequired        = errors.MustNewCode("config.log_file_path_required")
	ErrLogFileStatFailed          = errors.MustNewCode("config.log_file_stat_failed")
	ErrLogRotationFailed          = errors.MustNewCode("config.log_rotation_failed")
	ErrLogBackupReadFailed        = errors.MustNewCode("config.log_backup_read_failed")
	ErrLogBackupRemoveFailed      = errors.MustNewCode("config.log_backup_remove_failed")
	ErrLogFormatUnsupported       = errors.MustNewCode("config.log_format_unsupported")
)
