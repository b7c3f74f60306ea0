// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fgp/neon/internal/keychain"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command for clearing the stored API key.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the Neon API key from the OS keychain",
	Long: `The logout command removes the stored Neon API key from the OS keychain.
A NEON_API_KEY environment variable or a neonctl credentials file is not
touched; unset or delete those separately if present.

A running daemon keeps its already-resolved key until restarted.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system")
			return err
		}
		if err := km.ClearAPIKey(); err != nil {
			return err
		}
		pterm.Println("✅ Neon API key removed from keychain")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
