package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Bronze to Silver pipeline",
	Long: `Run the pipeline for every registered table, or only for the tables
named with --table. A per-table summary is printed when the run finishes and
the command exits with status 1 if any table failed.

Examples:
  wwi-etl run
  wwi-etl run --table orders --table customers
  wwi-etl run --workers 4 --no-history`,
	RunE: runPipeline,
}

type runOptions struct {
	tables    []string
	workers   int
	noHistory bool
}

var runOpts = &runOptions{}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&runOpts.tables, "table", "t", nil, "table to run (repeatable)")
	runCmd.Flags().IntVarP(&runOpts.workers, "workers", "w", 0, "tables processed concurrently (overrides runtime.workers)")
	runCmd.Flags().BoolVar(&runOpts.noHistory, "no-history", false, "do not record the run in the history ledger")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	if runOpts.workers > 0 {
		a.cfg.Runtime.Workers = runOpts.workers
	}
	p, err := a.pipeline()
	if err != nil {
		return err
	}

	res, err := p.Run(cmd.Context(), runOpts.tables, !runOpts.noHistory)
	out, rerr := renderRun(res)
	if rerr != nil {
		return rerr
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if err != nil {
		a.logger.Error().Str("cmd", "run").Err(err).Msg("Failed to record run history")
	}
	if code := res.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return err
}
