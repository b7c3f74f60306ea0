// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"fgp/neon/internal/config"
	"fgp/neon/internal/keychain"
	"fgp/neon/internal/logging"
	"fgp/neon/internal/neon"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var loginAPIKey string

// loginCmd represents the login command for storing the Neon API key.
// The key is verified against the Neon API before being written to the OS
// keychain, so a typo never ends up stored as the daemon's credential.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Store a Neon API key in the OS keychain",
	Long: `The login command stores a Neon API key in the OS keychain so the daemon
can authenticate against the control-plane API. Create a key in the Neon
console under Account settings → API keys.

The key can be passed with --api-key or entered interactively. It is
verified with a live API call before being saved. A running daemon picks the
new key up on its next restart.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey := strings.TrimSpace(loginAPIKey)
		if apiKey == "" {
			pterm.Print("Enter your Neon API key: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read API key: %w", err)
			}
			apiKey = strings.TrimSpace(line)
		}
		if apiKey == "" {
			return fmt.Errorf("no API key provided")
		}

		// Verify before storing.
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		spinner, _ := pterm.DefaultSpinner.Start("Verifying API key")
		api := neon.NewHTTP(cfg.Neon.BaseURL, apiKey, cfg.Neon.OrgID)
		ctx, cancel := cmdTimeout(cmd, 15*time.Second)
		defer cancel()
		user, err := api.GetUser(ctx)
		if err != nil {
			spinner.Fail("API key verification failed")
			// The error text may embed the key; mask before display.
			pterm.Println(logging.PresentError("verifying API key", err))
			return fmt.Errorf("API key verification failed")
		}
		spinner.Success("API key verified")

		km, err := keychain.GetManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system")
			pterm.Println("   Set the NEON_API_KEY environment variable instead")
			return err
		}
		if err := km.SaveAPIKey(apiKey); err != nil {
			return err
		}

		if email, ok := user["email"].(string); ok && email != "" {
			pterm.Printf("✅ Logged in as %s\n", email)
		} else {
			pterm.Println("✅ API key saved")
		}
		pterm.Println("   Restart the daemon to pick up the new key: fgp-neon stop && fgp-neon start")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVar(&loginAPIKey, "api-key", "", "Neon API key (prompted for when omitted)")
}
