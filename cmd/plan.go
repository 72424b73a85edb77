package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/adscout/internal/model"
)

var planFlags struct {
	analysisID  string
	account     string
	user        string
	services    []string
	cities      []string
	dailyBudget float64
	hardCap     float64
	business    string
	phone       string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Derive a campaign plan from a stored analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Planner.Run(cmd.Context(), planFlags.analysisID, planFlags.account, planFlags.user, model.PlanSelections{
			Services:     planFlags.services,
			TargetCities: planFlags.cities,
			DailyBudget:  planFlags.dailyBudget,
			HardCap:      planFlags.hardCap,
			BusinessName: planFlags.business,
			Phone:        planFlags.phone,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	planCmd.Flags().StringVar(&planFlags.analysisID, "analysis", "", "source analysis id (required)")
	planCmd.Flags().StringVar(&planFlags.account, "account", "", "owning account id (required)")
	planCmd.Flags().StringVar(&planFlags.user, "user", "", "requesting user id")
	planCmd.Flags().StringSliceVar(&planFlags.services, "services", nil, "selected services (required)")
	planCmd.Flags().StringSliceVar(&planFlags.cities, "cities", nil, "selected target cities")
	planCmd.Flags().Float64Var(&planFlags.dailyBudget, "daily-budget", 0, "daily budget in USD (required)")
	planCmd.Flags().Float64Var(&planFlags.hardCap, "hard-cap", 0, "monthly hard cap in USD")
	planCmd.Flags().StringVar(&planFlags.business, "business", "", "business name for ad copy")
	planCmd.Flags().StringVar(&planFlags.phone, "phone", "", "business phone for ad copy")
	planCmd.MarkFlagRequired("analysis")     //nolint:errcheck
	planCmd.MarkFlagRequired("account")      //nolint:errcheck
	planCmd.MarkFlagRequired("services")     //nolint:errcheck
	planCmd.MarkFlagRequired("daily-budget") //nolint:errcheck
	rootCmd.AddCommand(planCmd)
}
