// ============================================================================
// Flight Server CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra command tree for the flight server
//
// Command Structure:
//   flight                         # Root command
//   ├── serve                      # Start the TCP server
//   │   ├── --host                 # Override server.host
//   │   ├── --port, -p             # Override server.port
//   │   └── --threads, -t          # Override pool.threads
//   ├── ping                       # Smoke-test a running server
//   │   └── --addr, -a             # Server address
//   ├── version                    # Display version information
//   └── --config, -c               # Config file (all commands)
//
// Configuration Management:
//   defaults → YAML file (--config) → command-line flags
//   An empty --config runs on defaults only.
//
// serve Command:
//   1. Load + validate config
//   2. Bind TCP listener (bind failure aborts startup)
//   3. Start metrics HTTP and admin gRPC health (if enabled)
//   4. Serve until SIGINT / SIGTERM, then shut everything down
//
//   Examples:
//     ./flight serve
//     ./flight serve -c configs/default.yaml -p 6000 -t 8
//
// ping Command:
//   Connects, reads the greeting, sends Ping + Disconnect and prints
//   every packet it sees until the server closes the connection.
//
//   Examples:
//     ./flight ping -a 127.0.0.1:5000
//
// ============================================================================

package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ChuLiYu/flight-server/internal/config"
)

// Version is reported by --version and the version command
const Version = "1.0.0"

type rootOptions struct {
	configFile string
}

func BuildCLI() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "flight",
		Short: "Flight: a multi-threaded TCP server with a binary packet protocol",
		Long: `Flight accepts TCP clients and handles each connection on a fixed
worker pool. Clients speak a versioned, length-prefixed packet format:
- 8-byte little-endian header (timestamp, version, payload size)
- protobuf-encoded message payload (Ping, Data, Disconnect, Chat)`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (defaults only when empty)")

	rootCmd.AddCommand(buildServeCommand(opts))
	rootCmd.AddCommand(buildPingCommand())
	rootCmd.AddCommand(buildVersionCommand())

	return rootCmd
}

func buildVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flight %s\n", Version)
		},
	}
}

// loadConfig reads the file then applies the serve flags the user set.
func loadConfig(path string, cmd *cobra.Command, host string, port, threads int) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("threads") {
		cfg.Pool.Threads = threads
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}

	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
