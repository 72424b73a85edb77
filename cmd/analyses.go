package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/adscout/internal/store"
)

var analysesFlags struct {
	account string
	limit   int
	offset  int
}

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "List stored analyses for an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		results, err := st.ListAnalyses(cmd.Context(), store.AnalysisFilter{
			AccountID: analysesFlags.account,
			Limit:     analysesFlags.limit,
			Offset:    analysesFlags.offset,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	analysesCmd.Flags().StringVar(&analysesFlags.account, "account", "", "account id (required)")
	analysesCmd.Flags().IntVar(&analysesFlags.limit, "limit", 20, "max results")
	analysesCmd.Flags().IntVar(&analysesFlags.offset, "offset", 0, "results to skip")
	analysesCmd.MarkFlagRequired("account") //nolint:errcheck
	rootCmd.AddCommand(analysesCmd)
}
