package cli

import (
	"github.com/spf13/cobra"

	"github.com/javajoker/licensing-portal/internal/database"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the applications and events tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			_, db, closeDB, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDB()

			formatter.VerboseLog("running migrations on %s", db.Dialector.Name())
			if err := database.RunMigrations(db); err != nil {
				return WrapExitError(ExitCommandError, "migration failed", err)
			}
			return formatter.Success(map[string]string{"migrations": "applied"})
		},
	}
}
