package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/config"
	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/discovery"
	"github.com/muurk/backlight/internal/logging"
	"github.com/muurk/backlight/internal/ui"
)

// Connection flags shared by every command
var (
	daemonRef     string
	transportFlag string
	boardFlag     int
	offline       bool
)

// offlineBoards is the minimum board count of the in-memory daemon.
const offlineBoards = 1

func init() {
	rootCmd.PersistentFlags().StringVar(&daemonRef, "daemon", "", "Daemon name, nickname or address (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&transportFlag, "transport", config.DefaultTransport, "Daemon transport (http, ws)")
	rootCmd.PersistentFlags().IntVar(&boardFlag, "board", 0, "Board to drive")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use an in-memory board instead of a daemon")
}

// target is the resolved daemon and board a command talks to.
type target struct {
	name      string
	address   string
	transport string
	board     int

	daemon   daemon.Daemon
	registry *config.Registry
}

// Label names the target for headers, e.g. "desk/0".
func (t *target) Label() string {
	return fmt.Sprintf("%s/%d", t.name, t.board)
}

// Facade binds the target board with the configured timeout.
func (t *target) Facade() *daemon.Facade {
	f := daemon.NewFacade(t.daemon, t.board)
	f.Timeout = t.registry.Preferences.SyncTimeout()
	return f
}

// Close releases a persistent transport.
func (t *target) Close() {
	if c, ok := t.daemon.(io.Closer); ok {
		_ = c.Close()
	}
}

// connectOptions carry the flag values and whether each was set explicitly,
// so stored preferences apply only to flags left at their defaults.
type connectOptions struct {
	ref          string
	transport    string
	transportSet bool
	board        int
	boardSet     bool
	offline      bool

	// out receives discovery progress; nil discards it.
	out io.Writer
	// interactive shows a spinner while discovering.
	interactive bool
}

// scanFunc is replaced in tests.
var scanFunc = discovery.Scan

// connect resolves the daemon to use: an explicit --daemon, the configured
// default daemon, then mDNS discovery when enabled.
func connect(ctx context.Context, reg *config.Registry, opts connectOptions) (*target, error) {
	prefs := reg.Preferences

	t := &target{
		transport: prefs.Transport,
		board:     prefs.Board,
		registry:  reg,
	}
	if opts.transportSet || t.transport == "" {
		t.transport = opts.transport
	}
	if opts.boardSet {
		t.board = opts.board
	}
	if t.board < 0 {
		return nil, fmt.Errorf("invalid board %d", t.board)
	}

	if opts.offline {
		t.name = "offline"
		t.daemon = daemon.NewMemory(max(offlineBoards, t.board+1), color.Black)
		return t, nil
	}

	ref := opts.ref
	if ref == "" {
		ref = prefs.DefaultDaemon
	}

	switch {
	case ref != "":
		name, d := reg.ResolveDaemon(ref)
		if d == nil {
			// Not in the registry: treat it as an address.
			t.name, t.address = ref, ref
			break
		}
		t.name, t.address = name, d.Address
		if d.Transport != "" && !opts.transportSet {
			t.transport = d.Transport
		}

	case prefs.AutoDiscover:
		device, err := discoverOne(ctx, reg, opts)
		if err != nil {
			return nil, err
		}
		t.name, t.address = device.Instance, device.Address()

	default:
		return nil, fmt.Errorf("no daemon specified: use --daemon or set preferences.default_daemon")
	}

	d, err := daemon.Dial(t.address, t.transport)
	if err != nil {
		return nil, err
	}
	t.daemon = d

	logging.Debug("Daemon resolved",
		zap.String("name", t.name),
		zap.String("address", t.address),
		zap.String("transport", t.transport),
		zap.Int("board", t.board),
	)
	return t, nil
}

// discoverOne scans for daemons and insists on exactly one.
func discoverOne(ctx context.Context, reg *config.Registry, opts connectOptions) (*discovery.Device, error) {
	out := opts.out
	if out == nil {
		out = io.Discard
	}

	var devices []*discovery.Device
	err := ui.RunWithSpinner(out, opts.interactive, "Discovering backlight daemons...", func() error {
		var err error
		devices, err = scanFunc(ctx, reg.Preferences.DiscoverDuration())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("no daemons found. Use --daemon to specify an address")
	case 1:
	default:
		names := make([]string, 0, len(devices))
		for _, d := range devices {
			names = append(names, fmt.Sprintf("%s (%s)", d.Instance, d.Address()))
		}
		return nil, fmt.Errorf("multiple daemons found: %s. Use --daemon to pick one", strings.Join(names, ", "))
	}

	device := devices[0]
	rememberDevices(reg, devices)
	return device, nil
}

// rememberDevices records discovered daemons in the registry and saves it.
// A failed save is logged, not fatal.
func rememberDevices(reg *config.Registry, devices []*discovery.Device) {
	for _, d := range devices {
		reg.UpdateDaemonLastSeen(d.Instance, d.Address(), d.ID)
	}
	if err := reg.Save(); err != nil {
		logging.Warn("Failed to save discovered daemons", zap.Error(err))
	}
}
