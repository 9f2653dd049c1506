package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List registered tables",
	Long: `List every table the pipeline knows about in run order, with its
Bronze source, Silver target, primary key and business rules.`,
	Args: cobra.NoArgs,
	RunE: runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	p, err := appFrom(cmd).pipeline()
	if err != nil {
		return err
	}
	out, err := renderSpecs(p.Registry.Specs())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
