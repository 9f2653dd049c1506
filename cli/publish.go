package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload Silver files to the configured bucket",
	Long: `Upload every parquet file under the Silver directory to s3.bucket.
The prefix may contain {date}, which is replaced by today's UTC date.

Examples:
  wwi-etl publish
  wwi-etl publish --prefix "silver/{date}"`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

type publishOptions struct {
	prefix string
}

var publishOpts = &publishOptions{}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishOpts.prefix, "prefix", "", "key prefix in the bucket (defaults to s3.prefix)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	a := appFrom(cmd)
	p, err := a.pipeline()
	if err != nil {
		return err
	}
	pub, err := p.Publisher(cmd.Context(), publishOpts.prefix)
	if err != nil {
		return err
	}

	summary, err := pub.Run(cmd.Context())
	if err != nil {
		return err
	}
	out, err := renderPublish(summary)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	if len(summary.Failed) > 0 {
		return &ExitError{Code: 1}
	}
	return nil
}
