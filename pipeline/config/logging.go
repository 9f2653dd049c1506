package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gear6io/wwi-etl/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// LogManager owns the log file and rotates it by size on open
type LogManager struct {
	config *LogConfig
	file   *os.File
	now    func() time.Time
}

func NewLogManager(cfg *LogConfig) *LogManager {
	return &LogManager{config: cfg, now: time.Now}
}

// Open returns the log file, rotating the previous one first if it grew past
// MaxSize.
func (lm *LogManager) Open() (io.Writer, error) {
	if lm.config.FilePath == "" {
		return nil, errors.New(ErrLogFilePathRequired, "no log file path specified", nil)
	}

	if err := os.MkdirAll(filepath.Dir(lm.config.FilePath), 0755); err != nil {
		return nil, errors.New(ErrLogDirectoryCreationFailed, "failed to create log directory", err)
	}
	if err := lm.rotateIfNeeded(); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(lm.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.New(ErrLogFileOpenFailed, "failed to open log file", err).AddContext("path", lm.config.FilePath)
	}
	lm.file = file
	return file, nil
}

func (lm *LogManager) rotateIfNeeded() error {
	if lm.config.MaxSize <= 0 {
		return nil
	}

	info, err := os.Stat(lm.config.FilePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.New(ErrLogFileStatFailed, "failed to stat log file", err)
	}
	if info.Size() < int64(lm.config.MaxSize)*1024*1024 {
		return nil
	}

	backup := fmt.Sprintf("%s.%s", lm.config.FilePath, lm.now().Format("2006-01-02-15-04-05"))
	if err := os.Rename(lm.config.FilePath, backup); err != nil {
		return errors.New(ErrLogRotationFailed, "failed to rotate log file", err)
	}
	return lm.pruneBackups()
}

// pruneBackups removes rotated files beyond MaxBackups and older than MaxAge
func (lm *LogManager) pruneBackups() error {
	if lm.config.MaxBackups <= 0 && lm.config.MaxAge <= 0 {
		return nil
	}

	dir := filepath.Dir(lm.config.FilePath)
	base := filepath.Base(lm.config.FilePath) + "."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.New(ErrLogBackupReadFailed, "failed to read log directory", err)
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	var backups []backup
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), base) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: filepath.Join(dir, entry.Name()), modTime: info.ModTime()})
	}
	// newest first
	sort.Slice(backups, func(i, j int) bool { return backups[i].modTime.After(backups[j].modTime) })

	cutoff := lm.now().AddDate(0, 0, -lm.config.MaxAge)
	for i, b := range backups {
		tooMany := lm.config.MaxBackups > 0 && i >= lm.config.MaxBackups
		tooOld := lm.config.MaxAge > 0 && b.modTime.Before(cutoff)
		if !tooMany && !tooOld {
			continue
		}
		if err := os.Remove(b.path); err != nil {
			return errors.New(ErrLogBackupRemoveFailed, "failed to remove old backup", err).AddContext("backup_path", b.path)
		}
	}
	return nil
}

func (lm *LogManager) Close() error {
	if lm.file == nil {
		return nil
	}
	err := lm.file.Close()
	lm.file = nil
	return err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogger builds the process logger. The returned closer releases the log
// file, if one was opened.
func SetupLogger(cfg *Config) (zerolog.Logger, io.Closer, error) {
	return setupLogger(cfg, os.Stderr)
}

func setupLogger(cfg *Config, console *os.File) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	if cfg.Log.Console {
		w, err := consoleWriter(cfg.Log.Format, console)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, w)
	}

	var closer io.Closer = nopCloser{}
	if cfg.Log.FilePath != "" {
		lm := NewLogManager(&cfg.Log)
		fw, err := lm.Open()
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, fw)
		closer = lm
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", "wwi-etl").
		Logger()
	return logger, closer, nil
}

// consoleWriter picks human output for terminals when format is "auto"
func consoleWriter(format string, f *os.File) (io.Writer, error) {
	switch strings.ToLower(format) {
	case "json":
		return f, nil
	case "console":
		return zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}, nil
	case "", "auto":
		if term.IsTerminal(int(f.Fd())) {
			return zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}, nil
		}
		return f, nil
	}
	return nil, errors.Newf(ErrLogFormatUnsupported, "unsupported log format %q", format)
}
