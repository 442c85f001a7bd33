package commands

import (
	"coursemetrics/lib/pagestore"
	"coursemetrics/services/staging"

	"github.com/spf13/cobra"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Build the staged dimension and fact tables from consolidated datasets.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := pagestore.NewStore(config.bronzeDir())
		tables, err := staging.NewTransformer(store, config.anonymize()).Transform(cmd.Context())
		if err != nil {
			return err
		}
		return tables.Write(config.silverDir())
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)
}
