package commands

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: extract, transform, publish, load.",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, stage := range []*cobra.Command{extractCmd, transformCmd, publishCmd, loadCmd} {
			if err := stage.RunE(cmd, args); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
