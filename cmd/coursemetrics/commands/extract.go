package commands

import (
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetch every paginated resource into the page cache and consolidate it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newClient().FetchAll(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
