package cli

import (
	"fmt"

	"github.com/ndrwsmyth/oxychat/internal/infrastructure/storage"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := storage.OpenDB(&cfg.Database)
		if err != nil {
			return err
		}
		db = conn

		version, err := storage.Migrate(conn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database %s at version %d\n", cfg.Database.ResolveDBPath(), version)
		return nil
	},
}
