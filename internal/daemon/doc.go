// Package daemon talks to the backlight daemon that owns the LED boards.
//
// Three implementations of Daemon are provided:
//   - Client: the HTTP API (reads retried with backoff, writes sent once)
//   - WSClient: the WebSocket API, messages from package protocol
//   - Memory: an in-process daemon for offline use and tests
//
// Facade binds a Daemon to one board and is what the palette pushes through.
// Its failures are *SyncError values: logged, reported, never retried.
//
// # Error Handling
//
// Transport failures are classified into *DeviceError values:
//
//	if err := client.SetColor(ctx, 0, c); err != nil {
//	    fmt.Println(daemon.GetShortErrorMessage(err))
//	    fmt.Println(daemon.GetTroubleshootingHint(err))
//	}
package daemon
