package cli

import (
	"context"
	"io"
	"strconv"

	"github.com/gear6io/wwi-etl/pipeline"
	"github.com/gear6io/wwi-etl/pipeline/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Context key types to avoid collisions
type contextKey string

const (
	loggerKey contextKey = "logger"
	appKey    contextKey = "app"
)

// ExitError carries a process exit code without a message; the command has
// already reported the failure.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

var rootCmd = &cobra.Command{
	Use:   "wwi-etl",
	Short: "Clean Wide World Importers Bronze exports into Silver parquet files",
	Long: `wwi-etl reads the raw Bronze exports of the Wide World Importers
database, normalizes column names, coerces types, drops empty columns and
writes one parquet file per table to the Silver layer.

Every table is processed independently; a failing table is reported and the
remaining tables still run.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if a := appFrom(cmd); a != nil {
			a.close()
		}
	},
}

var rootOpts = struct {
	configPath string
	verbose    bool
}{}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.configPath, "config", "c", "wwi-etl.yml", "configuration file (defaults are used when it does not exist)")
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.verbose, "verbose", "v", false, "verbose output")
}

// app is what subcommands share once configuration is loaded
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
}

func (a *app) close() {
	if a.closer != nil {
		a.closer.Close()
	}
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	return pipeline.New(a.cfg, a.logger)
}

// WithLogger stores the bootstrap logger used before configuration is loaded
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// loggerFrom returns the bootstrap logger, or a disabled one when none is set
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return &logger
	}
	nop := zerolog.Nop()
	return &nop
}

func appFrom(cmd *cobra.Command) *app {
	if a, ok := cmd.Context().Value(appKey).(*app); ok {
		return a
	}
	return nil
}

func setupApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(rootOpts.configPath)
	if err != nil {
		return err
	}
	if rootOpts.verbose {
		cfg.Log.Level = "debug"
	}

	logger, closer, err := config.SetupLogger(cfg)
	if err != nil {
		return err
	}
	logger.Debug().Str("cmd", cmd.Name()).Str("config", rootOpts.configPath).Msg("Configuration loaded")

	cmd.SetContext(context.WithValue(cmd.Context(), appKey, &app{cfg: cfg, logger: logger, closer: closer}))
	return nil
}

// Execute runs the root command
func Execute() error {
	return ExecuteWithContext(context.Background())
}

// ExecuteWithContext runs the root command with a context carrying the
// bootstrap logger.
func ExecuteWithContext(ctx context.Context) error {
	loggerFrom(ctx).Debug().Str("cmd", "root").Msg("Executing root command")
	return rootCmd.ExecuteContext(ctx)
}
