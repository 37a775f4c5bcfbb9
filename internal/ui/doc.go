// Package ui provides styled terminal output for the backlight-cfg CLI.
//
// These components follow a "render once and exit" pattern, unlike the
// interactive palette in the tui package:
//
//   - Header: command banner with the daemon and board in use
//   - Result: success, warning and failure boxes; failures carry
//     troubleshooting tips taken from the daemon error taxonomy
//   - Printer: board and daemon tables with color chips
//   - RunWithSpinner: a spinner around a slow operation such as an mDNS scan
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Boards", "backlight-cfg boards", ui.Field{Key: "Daemon", Value: addr})
//	p.PrintBoards(boards, 0)
//
// # Logging Integration
//
// This package expects logging to be controlled via the BACKLIGHT_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
