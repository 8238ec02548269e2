package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joelklabo/foundry-bridge/internal/config"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const configFileName = "bridge.yaml"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "bridge",
		Short: "HTTP bridge relaying prompts to hosted AI agents",
		Long: `bridge forwards a prompt to a remote AI agent endpoint and relays back
the text of its reply. Run "bridge serve" to start the HTTP service.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $"+config.EnvConfig+", ./"+configFileName+" or ~/.config/foundry-bridge/"+configFileName+")")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded before the environment is read")

	root.SetVersionTemplate(`foundry-bridge {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	root.AddCommand(
		newServeCmd(opts),
		newInvokeCmd(),
		newHealthCmd(),
		newAgentsCmd(),
		newInvocationsCmd(),
		newDiscoverCmd(opts),
		newDoctorCmd(opts),
		newConfigureCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the env file, then the config file found by defaultConfigPath.
func (o *rootOptions) load() (*config.Config, error) {
	if _, err := config.LoadEnvFile(o.envFile); err != nil {
		return nil, err
	}
	path := o.configPath
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		if path == "" {
			return nil, fmt.Errorf("load config from environment: %w", err)
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// defaultConfigPath resolves the config file: env var, cwd, then the user
// config dir. Empty means defaults plus environment only.
func defaultConfigPath() string {
	if v := os.Getenv(config.EnvConfig); v != "" {
		return v
	}
	if fileExists(configFileName) {
		return configFileName
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "foundry-bridge", configFileName)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// setupLogger builds the process logger from the logging section. A log file,
// when set, receives output instead of stderr.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var w io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err == nil {
			if f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
				w = f
			}
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Logging.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "foundry-bridge %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		},
	}
}
