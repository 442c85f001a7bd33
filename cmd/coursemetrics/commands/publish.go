package commands

import (
	"fmt"

	"coursemetrics/services/report"
	"coursemetrics/services/staging"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Render the staged tables to the xlsx workbook and CSV exports.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := staging.Read(config.silverDir())
		if err != nil {
			return err
		}
		if err := report.NewPublisher(config.goldDir()).Publish(cmd.Context(), tables); err != nil {
			return err
		}
		fmt.Println(report.Summary(tables))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
