// Backlight-cfg controls the color of a backlight board.
//
// It hosts the interactive color palette in the terminal, and provides
// discovery and direct get/set commands against a backlight daemon over
// HTTP or WebSocket.
//
// Usage:
//
//	backlight-cfg [command] [flags]
//
// Running without arguments launches the interactive palette.
// See 'backlight-cfg --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// reportedError is an error already shown to the user as a result box.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:   "backlight-cfg",
	Short: "Backlight Palette Control",
	Long: `A terminal color palette for backlight boards.

Pick a swatch to set the board's color, add your own colors with the
picker, edit or remove them. The board is driven through a backlight
daemon found with mDNS or named with --daemon.

If no command is specified, the interactive palette will launch automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPalette,
}

func init() {
	// Assigned here rather than in the literal: the hook refers to rootCmd.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd == rootCmd {
			// The palette logs to a file once it knows the config dir.
			return nil
		}
		return logging.InitializeFromEnv()
	}

	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Banner("backlight-cfg"))
	},
}
