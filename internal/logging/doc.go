// Package logging provides structured logging for the backlight tools.
//
// This package wraps a global zap logger with convenience functions for the
// events the palette, the daemon client and the reference daemon report.
//
// # Log Levels
//
//   - Debug: palette transitions, successful syncs, WebSocket payloads
//   - Info: daemon requests, connections, discovery
//   - Warn: failed device syncs (never fatal to the palette)
//   - Error: startup failures, persistence failures
//
// # Configuration
//
// Logging is silent unless a level is given or BACKLIGHT_LOG_LEVEL is set:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// BACKLIGHT_LOG_FILE sends output to a file instead of stdout, which the
// interactive palette needs because it owns the terminal.
//
// # Device Sync
//
//	logging.LogDeviceSync("write", board, c.Hex(), err)
//
// A nil err logs at debug level; a non-nil err logs a warning carrying the
// error, and nothing else happens.
package logging
