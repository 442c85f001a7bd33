package commands

import (
	"database/sql"
	"os"
	"path/filepath"

	"coursemetrics/services/mart"
	"coursemetrics/services/mart/db"
	"coursemetrics/services/staging"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the staged tables into the sqlite mart.",
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := staging.Read(config.silverDir())
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(config.martPath()), 0755); err != nil {
			return err
		}
		database, err := sql.Open("sqlite", config.martPath())
		if err != nil {
			return err
		}
		defer database.Close()
		if _, err := database.ExecContext(cmd.Context(), db.Schema); err != nil {
			return err
		}

		return mart.NewStore(database).Load(cmd.Context(), tables)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
