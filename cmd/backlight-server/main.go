// Backlight-server is a reference backlight daemon.
//
// It owns the colors of a fixed number of boards and serves them over an
// HTTP JSON API and a WebSocket endpoint. Colors can be persisted to a YAML
// state file, which is reloaded when edited by hand, and the daemon can
// announce itself over mDNS so backlight-cfg finds it without configuration.
//
// Usage:
//
//	backlight-server server [flags]
//
// See 'backlight-server server --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/server"
	"github.com/muurk/backlight/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "backlight-server",
	Short: "Backlight Reference Daemon",
	Long: `A standalone backlight daemon serving board colors over HTTP and WebSocket.

Use it to develop against without hardware, or as the daemon for boards
driven by another process reading its state file.

Note: To pick colors, use the separate 'backlight-cfg' utility.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}

// Server command and flags
var (
	host      string
	port      int
	boards    int
	statePath string
	advertise bool
	instance  string
	logLevel  string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the daemon",
	Long: `Start the backlight daemon.

Boards start black unless --state names a file holding their colors. The
file is rewritten on every change and reloaded when edited externally; its
board count wins over --boards.

Basic auth is enabled when BACKLIGHT_USERNAME and BACKLIGHT_PASSWORD are
set. /healthz stays open for probes.`,
	Example: `  # Two boards on the default port
  backlight-server server --boards 2

  # Persist colors and announce over mDNS
  backlight-server server --state ~/.local/state/backlight.yaml --advertise

  # Local only, verbose
  backlight-server server --host 127.0.0.1 --log-level debug`,
	RunE: runServer,
}

func init() {
	defaultLevel := os.Getenv(logging.LogLevelEnvVar)
	if defaultLevel == "" {
		defaultLevel = "info"
	}

	serverCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serverCmd.Flags().IntVar(&port, "port", daemon.DefaultPort, "Server port")
	serverCmd.Flags().IntVar(&boards, "boards", server.DefaultBoards, "Number of boards when no state file exists")
	serverCmd.Flags().StringVar(&statePath, "state", "", "YAML file to persist board colors (disabled if not specified)")
	serverCmd.Flags().BoolVar(&advertise, "advertise", false, "Announce the daemon over mDNS")
	serverCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name (default: backlight-<id>)")
	serverCmd.Flags().StringVar(&logLevel, "log-level", defaultLevel, "Log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	if boards < 1 {
		return fmt.Errorf("--boards must be at least 1")
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}

	username, password := daemon.Credentials()
	if (username == "") != (password == "") {
		return fmt.Errorf("both %s and %s must be set to enable auth", daemon.UsernameEnvVar, daemon.PasswordEnvVar)
	}

	config := &server.Config{
		Host:      host,
		Port:      port,
		Boards:    boards,
		StatePath: statePath,
		Advertise: advertise,
		Instance:  instance,
		LogLevel:  logLevel,
		Username:  username,
		Password:  password,
	}

	srv, err := server.New(config)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Banner("backlight-server"))
	},
}
