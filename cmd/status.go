// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"time"

	"fgp/neon/internal/client"
	"fgp/neon/internal/neterrors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command for inspecting a running daemon.
// It reads the daemon's cached health snapshot, so it answers quickly even
// when the upstream API is slow or unreachable.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon health",
	Long: `The status command queries the running daemon's health endpoint and
displays uptime, version, and upstream reachability. The daemon answers from
a cached snapshot refreshed by a background probe, so this never blocks on
the Neon API.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		sock, err := resolveSocketPath()
		if err != nil {
			return err
		}

		c := client.New(sock, client.WithTimeout(3*time.Second))
		resp, err := c.Call(cmd.Context(), "health", nil)
		if err != nil {
			return neterrors.FormatSocketError(err, "querying daemon status")
		}
		if !resp.OK {
			return fmt.Errorf("daemon returned error: %s", resp.Error)
		}

		result, ok := resp.Result.(map[string]any)
		if !ok {
			return fmt.Errorf("unexpected health payload")
		}

		status := fmt.Sprint(result["status"])
		statusStyled := pterm.NewStyle(pterm.FgGreen, pterm.Bold).Sprint(status)
		if status != "healthy" {
			statusStyled = pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint(status)
		}

		rows := pterm.TableData{
			{"Status", statusStyled},
			{"Socket", sock},
			{"Version", fmt.Sprint(result["version"])},
			{"Started", fmt.Sprint(result["started_at"])},
			{"Uptime", formatUptime(result["uptime_seconds"])},
			{"Upstream reachable", fmt.Sprintf("%v", result["upstream_reachable"])},
		}
		if lc, ok := result["last_check"]; ok {
			rows = append(rows, []string{"Last upstream check", fmt.Sprint(lc)})
		}

		pterm.DefaultTable.WithData(rows).Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// formatUptime renders the uptime_seconds health field as a duration.
func formatUptime(v any) string {
	secs, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	return (time.Duration(secs) * time.Second).String()
}
