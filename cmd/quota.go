package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var quotaAccount string

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show the account's usage for the current billing period",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		q := env.Gate.Quota(cmd.Context(), quotaAccount)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	},
}

func init() {
	quotaCmd.Flags().StringVar(&quotaAccount, "account", "", "account id (required)")
	quotaCmd.MarkFlagRequired("account") //nolint:errcheck
	rootCmd.AddCommand(quotaCmd)
}
