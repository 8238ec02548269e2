package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joelklabo/foundry-bridge/internal/agents/threads"
	"github.com/joelklabo/foundry-bridge/internal/assets"
	"github.com/joelklabo/foundry-bridge/internal/bridge"
	"github.com/joelklabo/foundry-bridge/internal/check"
	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/credential"
	"github.com/joelklabo/foundry-bridge/internal/discover"
	"github.com/joelklabo/foundry-bridge/internal/upstream"
	"github.com/joelklabo/foundry-bridge/internal/wizard"
)

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	var (
		assistants bool
		versions   []string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the agents the upstream project exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Bridge.Endpoint == "" {
				return fmt.Errorf("no project endpoint: set bridge.endpoint or %s", config.EnvEndpoint)
			}
			tokens, err := bridge.Tokens(cfg.Auth)
			if err != nil {
				return err
			}
			up := bridge.NewUpstream(cfg, tokens)
			out := cmd.OutOrStdout()

			var found []discover.Agent
			if assistants {
				found, err = discover.Assistants(cmd.Context(), threads.NewClient(cfg.Bridge.Endpoint, up), 0)
				if err != nil {
					return err
				}
			} else {
				var attempts []discover.Attempt
				found, attempts, err = discover.Agents(cmd.Context(), up, cfg.Bridge.Endpoint, versions)
				for _, a := range attempts {
					if a.Err != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "api-version %s: %s\n", a.APIVersion, a.Err)
					}
				}
				if err != nil {
					return err
				}
			}

			if asJSON {
				return printJSON(out, map[string]any{"agents": found})
			}
			if len(found) == 0 {
				fmt.Fprintln(out, "No agents found.")
				return nil
			}
			for _, a := range found {
				fmt.Fprintf(out, "%-32s %-24s %s\n", a.ID, a.Name, a.Model)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&assistants, "assistants", false, "list through the assistants API instead of GET /agents")
	cmd.Flags().StringSliceVar(&versions, "api-version", nil, "api versions to try, in order (default: built-in list)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, credentials and upstream reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := opts.load()
			if err != nil {
				fmt.Fprintf(out, "❌ config — %v\n", err)
				return fmt.Errorf("config is not usable")
			}

			var (
				results []check.Result
				tokens  credential.Provider
				up      *upstream.Client
			)
			if cfg.NeedsUpstream() {
				tokens, err = bridge.Tokens(cfg.Auth)
				if err != nil {
					results = append(results, check.Result{Name: cfg.Auth.Mode, Type: "auth", Status: check.StatusMissing, Details: err.Error()})
				} else {
					up = bridge.NewUpstream(cfg, tokens)
				}
			}
			results = append(results, check.Doctor(cfg, tokens, up)...)
			printResults(out, results)

			if !check.OK(results) {
				return fmt.Errorf("required checks failed")
			}
			return nil
		},
	}
}

func printResults(w io.Writer, results []check.Result) {
	for _, res := range results {
		icon := "✅"
		switch res.Status {
		case check.StatusMissing:
			icon = "❌"
		case check.StatusWarn:
			icon = "⚠️ "
		}
		fmt.Fprintf(w, "%s %s (%s) — %s\n", icon, res.Name, res.Type, strings.TrimSpace(res.Details))
	}
}

func newConfigureCmd(opts *rootOptions) *cobra.Command {
	var example bool
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Interactively write a bridge config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if example {
				_, err := cmd.OutOrStdout().Write(assets.ConfigExample)
				return err
			}
			if _, err := config.LoadEnvFile(opts.envFile); err != nil {
				return err
			}
			path, err := wizard.Run(cmd.Context(), opts.configPath, nil, wizard.Options{Out: cmd.OutOrStdout()})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\nNext: bridge doctor --config %s\n", path, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&example, "example", false, "print an annotated example config and exit")
	return cmd
}
