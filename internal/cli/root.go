// Package cli oxyctl 运维命令行
package cli

import (
	"database/sql"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	applog "github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/storage"
	"github.com/spf13/cobra"
)

var (
	// Version 构建时注入
	Version = "0.1.0"

	verbose bool

	cfg *config.Config
	db  *sql.DB
)

var rootCmd = &cobra.Command{
	Use:   "oxyctl",
	Short: "Administration tool for the oxychat backend",
	Long: `oxyctl manages the oxychat database and document index.

It reads the same environment variables (and .env file) as the server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		_ = godotenv.Load()

		level := "warn"
		if verbose {
			level = "debug"
		}
		applog.Init(&applog.Config{Level: level, Format: "console", Output: "stdout"})

		var err error
		cfg, err = config.NewConfig()
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			_ = db.Close()
			db = nil
		}
	},
}

// openDB 打开数据库并执行迁移
func openDB() (*sql.DB, error) {
	if db != nil {
		return db, nil
	}
	conn, err := storage.OpenDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if _, err := storage.Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	db = conn
	return db, nil
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(documentsCmd)
}
