package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/config"
	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/discovery"
	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/palette"
	"github.com/muurk/backlight/internal/tui"
	"github.com/muurk/backlight/internal/ui"
)

// Command flags
var (
	scanTimeout int
	noVerify    bool
	retries     int
)

func init() {
	// Add subcommands directly to root
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(boardsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(replayCmd)
}

// logFileName is where the palette logs while it owns the screen.
const logFileName = "backlight-cfg.log"

// openTarget loads the registry and resolves the daemon from the flags.
func openTarget(cmd *cobra.Command) (*target, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	return connect(cmd.Context(), reg, connectOptions{
		ref:          daemonRef,
		transport:    transportFlag,
		transportSet: flags.Changed("transport"),
		board:        boardFlag,
		boardSet:     flags.Changed("board"),
		offline:      offline,
		out:          cmd.ErrOrStderr(),
		interactive:  ui.IsTerminal(os.Stderr),
	})
}

// report prints err as a failure box and marks it as shown.
func report(p *ui.Printer, title string, err error) error {
	p.PrintError(title, err)
	return &reportedError{err: err}
}

// runPalette launches the interactive palette
func runPalette(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal(os.Stdin) || !ui.IsTerminal(os.Stdout) {
		return fmt.Errorf("the palette needs a terminal; use get, set or replay instead")
	}

	logPath := ""
	if dir, err := config.GetConfigDir(); err == nil && os.MkdirAll(dir, 0700) == nil {
		logPath = filepath.Join(dir, logFileName)
	}
	if os.Getenv(logging.LogFileEnvVar) != "" {
		logPath = ""
	}
	if err := logging.InitializeWithOutput("", logPath); err != nil {
		return err
	}

	t, err := openTarget(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	opts := tui.Options{
		Device:   t.Facade(),
		Defaults: t.registry.Preferences.Palette(),
		Target:   t.Label(),
	}
	if ws, ok := t.daemon.(*daemon.WSClient); ok {
		board := t.board
		opts.Watch = func(notify func(color.RGB)) {
			ws.OnChanged = func(b int, c color.RGB) {
				if b == board {
					notify(c)
				}
			}
		}
	}

	return tui.Run(cmd.Context(), opts)
}

// scanCmd discovers daemons on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for backlight daemons on the network",
	Long: `Scan for backlight daemons using mDNS/DNS-SD discovery.

Every daemon found is remembered in the config file so it can be named
with --daemon afterwards.`,
	Example: `  # Scan with the configured timeout
  backlight-cfg scan

  # Longer scan for slow networks
  backlight-cfg scan --timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (default from config)")
}

func runScan(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	timeout := reg.Preferences.DiscoverDuration()
	if scanTimeout > 0 {
		timeout = time.Duration(scanTimeout) * time.Second
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Scan", "backlight-cfg scan",
		ui.Field{Key: "Service", Value: discovery.ServiceType},
		ui.Field{Key: "Timeout", Value: timeout.String()},
	)

	var devices []*discovery.Device
	err = ui.RunWithSpinner(cmd.ErrOrStderr(), ui.IsTerminal(os.Stderr), "Scanning...", func() error {
		var err error
		devices, err = scanFunc(cmd.Context(), timeout)
		return err
	})
	if err != nil {
		return report(p, "Scan failed", err)
	}

	if len(devices) == 0 {
		p.PrintWarning("No daemons found",
			ui.Field{Key: "Hint", Value: "check the daemon runs with --advertise"},
			ui.Field{Key: "Hint", Value: "try a longer --timeout"},
			ui.Field{Key: "Hint", Value: "use --daemon host:port if multicast is blocked"},
		)
		return nil
	}

	p.PrintDaemons(devices)
	rememberDevices(reg, devices)
	return nil
}

// boardsCmd lists the boards of a daemon
var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List the boards of a daemon",
	Example: `  backlight-cfg boards --daemon desk
  backlight-cfg boards --daemon 10.0.0.2:7878 --transport ws`,
	RunE: runBoards,
}

func runBoards(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())

	t, err := openTarget(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	lister, ok := t.daemon.(daemon.Lister)
	if !ok {
		return fmt.Errorf("daemon %s cannot list boards", t.name)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), t.registry.Preferences.SyncTimeout())
	defer cancel()

	boards, err := lister.Boards(ctx)
	if err != nil {
		return report(p, "Listing boards failed", err)
	}

	// Client-side labels fill in what the daemon leaves blank.
	if d := t.registry.GetDaemon(t.name); d != nil {
		for i := range boards {
			if boards[i].Label == "" {
				boards[i].Label = d.BoardLabels[boards[i].Index]
			}
		}
	}

	p.PrintHeader("Boards", "backlight-cfg boards", ui.Field{Key: "Daemon", Value: t.name})
	p.PrintBoards(boards, t.board)
	return nil
}

// getCmd prints the color of the board
var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the board's color",
	Long: `Print the current color of the board.

When stdout is not a terminal only the hex color is printed, for scripts.`,
	Example: `  backlight-cfg get --daemon desk --board 1
  COLOR=$(backlight-cfg get --daemon desk)`,
	Args: cobra.NoArgs,
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())

	t, err := openTarget(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	c, err := t.Facade().Read(cmd.Context())
	if err != nil {
		return report(p, "Reading "+t.Label()+" failed", err)
	}

	if !ui.IsTerminal(os.Stdout) {
		p.Println(c.Hex())
		return nil
	}
	p.PrintSuccess("Board "+strconv.Itoa(t.board),
		ui.Field{Key: "Daemon", Value: t.name},
		ui.Field{Key: "Color", Value: ui.RenderChip(c) + " " + c.Hex()},
	)
	return nil
}

// setCmd sets the color of the board
var setCmd = &cobra.Command{
	Use:   "set <color>",
	Short: "Set the board's color",
	Long: `Set the board's color directly, bypassing the palette.

Colors are hex, as #rgb or #rrggbb.`,
	Example: `  backlight-cfg set '#ff8800' --daemon desk
  backlight-cfg set 0f0 --daemon 10.0.0.2:7878 --board 1`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

func init() {
	setCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip reading the color back after setting it")
	setCmd.Flags().IntVar(&retries, "retries", 3, "Number of verification retries")
}

func runSet(cmd *cobra.Command, args []string) error {
	c, err := color.Parse(args[0])
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())

	t, err := openTarget(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	facade := t.Facade()
	details := []ui.Field{
		{Key: "Daemon", Value: t.name},
		{Key: "Color", Value: ui.RenderChip(c) + " " + c.Hex()},
	}

	if noVerify {
		if err := facade.Write(cmd.Context(), c); err != nil {
			return report(p, "Setting "+t.Label()+" failed", err)
		}
		p.PrintSuccess("Board "+strconv.Itoa(t.board)+" set (not verified)", details...)
		return nil
	}

	opts := daemon.DefaultVerificationOptions()
	opts.MaxRetries = retries
	result := facade.WriteAndVerify(cmd.Context(), c, opts)
	if !result.Success {
		return report(p, "Setting "+t.Label()+" failed", result.Error)
	}

	details = append(details, ui.Field{Key: "Verified", Value: fmt.Sprintf("%d attempt(s)", result.Attempts)})
	p.PrintSuccess("Board "+strconv.Itoa(t.board)+" set", details...)
	return nil
}

// replayCmd runs palette events without the terminal interface
var replayCmd = &cobra.Command{
	Use:   "replay <event>...",
	Short: "Run palette events against the board",
	Long: `Run a scripted sequence of palette interactions against the board,
exactly as the interactive palette would, and print the resulting palette.

Events:
  select=N     select the swatch at index N (0-based)
  add=COLOR    add a swatch; the picker answers COLOR
  add          add a swatch; the picker is cancelled
  edit=COLOR   edit the current swatch; the picker answers COLOR
  edit         edit the current swatch; the picker is cancelled
  remove       remove the current swatch

Failed daemon writes are reported but never undo palette changes.`,
	Example: `  # Select the red default, then add and select orange
  backlight-cfg replay select=2 add=#ff8800 select=5 --offline

  # Remove the white default; blue becomes current
  backlight-cfg replay select=0 remove --daemon desk`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	steps, err := parseReplay(args)
	if err != nil {
		return err
	}

	t, err := openTarget(cmd)
	if err != nil {
		return err
	}
	defer t.Close()

	facade := t.Facade()
	start, readErr := facade.ReadOr(cmd.Context(), color.Black)
	if readErr != nil {
		logging.Warn("Could not read device color, starting from black", zap.Error(readErr))
	}

	pal, err := palette.New(t.registry.Preferences.Palette(), start)
	if err != nil {
		return err
	}

	published := 0
	pal.Subscribe(func(c color.RGB) {
		published++
		logging.Debug("Published color", zap.String("color", c.Hex()))
	})

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Replay", "backlight-cfg replay",
		ui.Field{Key: "Target", Value: t.Label()},
		ui.Field{Key: "Events", Value: strconv.Itoa(len(steps))},
	)

	var syncErrs []error
	result, err := replay(cmd.Context(), pal, facade, steps, func(err error) {
		syncErrs = append(syncErrs, err)
	})
	if err != nil {
		return err
	}

	p.PrintPalette(result)
	p.Println(fmt.Sprintf("  %d color(s) published", published))
	if len(syncErrs) > 0 {
		p.PrintError(fmt.Sprintf("%d of the daemon writes failed", len(syncErrs)), syncErrs[len(syncErrs)-1])
	}
	return nil
}
