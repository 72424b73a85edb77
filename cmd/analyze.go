package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/adscout/internal/model"
)

var analyzeFlags struct {
	account  string
	user     string
	zip      string
	services []string
	cities   []string
	radius   int
	website  string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a market analysis for a service list and zip code",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Analyzer.Run(cmd.Context(), model.AnalysisRequest{
			AccountID:    analyzeFlags.account,
			UserID:       analyzeFlags.user,
			ZipCode:      analyzeFlags.zip,
			Services:     analyzeFlags.services,
			TargetCities: analyzeFlags.cities,
			RadiusMiles:  analyzeFlags.radius,
			WebsiteURL:   analyzeFlags.website,
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
	analyzeCmd.Flags().StringVar(&analyzeFlags.account, "account", "", "owning account id (required)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.user, "user", "", "requesting user id")
	analyzeCmd.Flags().StringVar(&analyzeFlags.zip, "zip", "", "zip code of the market (required)")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlags.services, "services", nil, "services offered (required)")
	analyzeCmd.Flags().StringSliceVar(&analyzeFlags.cities, "cities", nil, "target cities")
	analyzeCmd.Flags().IntVar(&analyzeFlags.radius, "radius", 0, "competitor search radius in miles (default 25)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.website, "website", "", "contractor website URL")
	analyzeCmd.MarkFlagRequired("account")  //nolint:errcheck
	analyzeCmd.MarkFlagRequired("zip")      //nolint:errcheck
	analyzeCmd.MarkFlagRequired("services") //nolint:errcheck
	rootCmd.AddCommand(analyzeCmd)
}
