// Copyright (c) 2025 FGP Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"fgp/neon/internal/client"
	"fgp/neon/internal/neterrors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	callParams []string
	callJSON   string
)

// callCmd represents the call command for invoking an arbitrary daemon
// method. It is the debugging workhorse: any method the daemon exposes can
// be exercised without a dedicated subcommand.
var callCmd = &cobra.Command{
	Use:   "call <method>",
	Short: "Invoke a daemon method and print the result",
	Long: `The call command sends one request to the running daemon and prints the
JSON result. Parameters are passed either as repeated --param key=value pairs
or as a raw JSON object via --json.

Examples:
  fgp-neon call health
  fgp-neon call methods
  fgp-neon call neon.projects
  fgp-neon call neon.branches --param project_id=proj-123
  fgp-neon call neon.query --json '{"project_id":"proj-123","sql":"select 1"}'`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		method := args[0]

		params, err := buildParams(callParams, callJSON)
		if err != nil {
			return err
		}

		sock, err := resolveSocketPath()
		if err != nil {
			return err
		}

		c := client.New(sock)
		resp, err := c.Call(cmd.Context(), method, params)
		if err != nil {
			return neterrors.FormatSocketError(err, fmt.Sprintf("calling %s", method))
		}
		if !resp.OK {
			pterm.Printf("❌ %s\n", resp.Error)
			return fmt.Errorf("call failed: %s", resp.Error)
		}

		out, err := json.MarshalIndent(resp.Result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringArrayVar(&callParams, "param", nil, "Method parameter as key=value (repeatable)")
	callCmd.Flags().StringVar(&callJSON, "json", "", "Method parameters as a raw JSON object")
}

// buildParams merges --param pairs and --json into one parameter object.
// --param values win over the JSON object on key collisions.
func buildParams(pairs []string, rawJSON string) (any, error) {
	if len(pairs) == 0 && rawJSON == "" {
		return nil, nil
	}

	params := map[string]any{}
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &params); err != nil {
			return nil, fmt.Errorf("--json is not a valid JSON object: %w", err)
		}
	}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}
