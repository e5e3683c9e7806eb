package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/provider"
	"github.com/spf13/cobra"
)

var modelsHealth bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured models and their context budgets",
	Long: `List the models from the model catalog.

Examples:
  oxyctl models
  oxyctl models --health`,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsHealth, "health", false, "check provider reachability")
}

func runModels(cmd *cobra.Command, args []string) error {
	catalog, err := config.NewModelCatalog(&cfg.Chat)
	if err != nil {
		return err
	}

	var health map[string]bool
	if modelsHealth {
		registry, err := provider.NewDefaultRegistry(&cfg.Providers, catalog)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		health = registry.HealthCheck(ctx)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	header := "ID\tPROVIDER\tAPI MODEL\tCONTEXT\tMENTIONS"
	if modelsHealth {
		header += "\tHEALTHY"
	}
	fmt.Fprintln(w, header)
	for _, m := range catalog.Models {
		limits := catalog.LimitsFor(m.ID)
		line := fmt.Sprintf("%s\t%s\t%s\t%d\t%d", m.ID, m.Provider, m.APIModel, limits.ContextLimit, limits.MaxMentions)
		if modelsHealth {
			line += fmt.Sprintf("\t%t", health[m.ID])
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}
