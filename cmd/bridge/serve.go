package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joelklabo/foundry-bridge/internal/bridge"
	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/metrics"
	"github.com/joelklabo/foundry-bridge/internal/server"
	"github.com/joelklabo/foundry-bridge/internal/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr, mode string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if mode != "" {
				cfg.Bridge.Mode = strings.ToLower(mode)
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			logger := setupLogger(cfg)
			printBanner(cmd.OutOrStdout(), cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&mode, "mode", "", "default invocation mode (overrides bridge.mode)")
	return cmd
}

// serve runs the bridge until ctx is done.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := store.New(cfg.Storage.Path, cfg.Storage.MaxEntries)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close store", slog.String("err", err.Error()))
		}
	}()

	svc, err := bridge.Build(cfg, st, logger)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enable && cfg.Metrics.Listen != "" {
		if err := metrics.Start(ctx, cfg.Metrics.Listen, logger); err != nil {
			return err
		}
		logger.Info("metrics listening", slog.String("addr", cfg.Metrics.Listen))
	}

	logger.Info("foundry-bridge starting",
		slog.String("mode", cfg.Bridge.Mode),
		slog.String("endpoint", cfg.Bridge.Endpoint),
		slog.Any("agents", svc.Health().Agents))

	err = server.New(cfg, svc, logger).Start(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutdown requested")
		return nil
	}
	return err
}

func printBanner(out io.Writer, cfg *config.Config) {
	if !isTTY() {
		return
	}

	cyan := "\033[36m"
	mag := "\033[35m"
	gray := "\033[90m"
	reset := "\033[0m"

	endpoint := cfg.Bridge.Endpoint
	if endpoint == "" {
		endpoint = "(none)"
	}
	ids := make([]string, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		ids = append(ids, a.ID+"/"+cfg.ModeFor(a))
	}

	fmt.Fprintf(out, "%s╔══════════════════════════════════════════════════════╗%s\n", mag, reset)
	fmt.Fprintf(out, "%s║%s  foundry-bridge                                       %s║%s\n", mag, reset, mag, reset)
	fmt.Fprintf(out, "%s╠══════════════════════════════════════════════════════╣%s\n", mag, reset)
	fmt.Fprintf(out, "%s║%s listen    %s%s%s\n", mag, reset, cyan, cfg.Server.Addr, reset)
	fmt.Fprintf(out, "%s║%s mode      %s%s%s\n", mag, reset, cyan, cfg.Bridge.Mode, reset)
	fmt.Fprintf(out, "%s║%s endpoint  %s%s%s\n", mag, reset, cyan, endpoint, reset)
	fmt.Fprintf(out, "%s║%s agents    %s%s%s\n", mag, reset, cyan, strings.Join(ids, ", "), reset)
	fmt.Fprintf(out, "%s╚══════════════════════════════════════════════════════╝%s\n", mag, reset)
	fmt.Fprintf(out, "%sTip:%s run `bridge doctor` if invocations fail.\n%s\n", gray, reset, reset)
}

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
