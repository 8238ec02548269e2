package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelklabo/foundry-bridge/internal/client"
	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
)

// lookupTimeout bounds the read-only commands.
const lookupTimeout = 30 * time.Second

// remoteFlags are shared by the commands that talk to a running bridge.
type remoteFlags struct {
	url     string
	token   string
	timeout time.Duration
	json    bool
}

func (f *remoteFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "bridge URL (default $"+config.EnvServiceURL+" or "+client.DefaultURL+")")
	cmd.Flags().StringVar(&f.token, "token", "", "bearer token for a bridge with server.auth_token set")
	cmd.Flags().BoolVar(&f.json, "json", false, "print raw JSON")
}

// client builds a bridge client. With --timeout the HTTP limit is the flag plus
// pad; otherwise fallback applies, 0 leaving the server's own timeout in charge.
func (f *remoteFlags) client(pad, fallback time.Duration) *client.Client {
	u := f.url
	if u == "" {
		u = os.Getenv(config.EnvServiceURL)
	}
	opts := []client.Option{client.WithToken(f.token)}
	switch {
	case f.timeout > 0:
		opts = append(opts, client.WithTimeout(f.timeout+pad))
	case fallback > 0:
		opts = append(opts, client.WithTimeout(fallback))
	}
	return client.New(u, opts...)
}

func newInvokeCmd() *cobra.Command {
	f := &remoteFlags{}
	cmd := &cobra.Command{
		Use:   "invoke <agent-id> <prompt|->",
		Short: "Send a prompt to a running bridge",
		Long:  `Send a prompt to a running bridge. Use "-" as the prompt to read it from stdin.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := args[1]
			if prompt == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read prompt: %w", err)
				}
				prompt = strings.TrimSpace(string(data))
			}
			req := core.InvokeRequest{AgentID: args[0], Prompt: prompt, TimeoutMs: int(f.timeout.Milliseconds())}

			// The bridge enforces the invocation timeout; the client waits a little longer.
			resp, err := f.client(10*time.Second, 0).Invoke(cmd.Context(), req)
			if err != nil {
				return err
			}
			if f.json {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Response)
			fmt.Fprintf(cmd.ErrOrStderr(), "(%s in %dms)\n", resp.AgentID, resp.DurationMs)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "invocation timeout (default: the bridge's configured timeout)")
	return cmd
}

func newHealthCmd() *cobra.Command {
	f := &remoteFlags{}
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the health of a running bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := f.client(0, lookupTimeout).Health(cmd.Context())
			if err != nil {
				return err
			}
			if f.json {
				return printJSON(cmd.OutOrStdout(), h)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "status:   %s\n", h.Status)
			fmt.Fprintf(out, "mode:     %s\n", h.Mode)
			if h.Endpoint != "" {
				fmt.Fprintf(out, "endpoint: %s\n", h.Endpoint)
			}
			fmt.Fprintf(out, "agents:   %s\n", strings.Join(h.Agents, ", "))
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newAgentsCmd() *cobra.Command {
	f := &remoteFlags{}
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List the agents a running bridge serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := f.client(0, lookupTimeout).Agents(cmd.Context())
			if err != nil {
				return err
			}
			if f.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{"agents": list})
			}
			for _, a := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-10s %s\n", a.ID, a.Mode, a.Name)
			}
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newInvocationsCmd() *cobra.Command {
	f := &remoteFlags{}
	var limit int
	cmd := &cobra.Command{
		Use:   "invocations",
		Short: "Show recent invocations recorded by a running bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := f.client(0, lookupTimeout).Invocations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if f.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{"invocations": recs})
			}
			for _, r := range recs {
				line := fmt.Sprintf("%s  %-20s %-9s %-5s %6dms  %d→%d chars",
					r.At.Local().Format("2006-01-02 15:04:05"), r.AgentID, r.Mode, r.Status, r.DurationMs, r.PromptChars, r.ReplyChars)
				if r.Error != "" {
					line += "  " + r.Error
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
