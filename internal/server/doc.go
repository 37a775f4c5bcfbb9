// Package server implements the backlight daemon.
//
// The daemon owns a fixed list of boards, each holding one backlight color,
// and serves them over two transports:
//
//   - HTTP: GET /api/boards, GET and PUT /api/boards/{board}/color and
//     GET /healthz. Errors are JSON bodies carrying a protocol error code.
//   - WebSocket at /ws: the JSON request/reply protocol from the protocol
//     package. Every successful write is broadcast to all connected clients
//     as a "changed" message, whichever transport made it.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Port:      7878,
//	    Boards:    2,
//	    StatePath: "/var/lib/backlight/state.yaml",
//	    Advertise: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until SIGINT/SIGTERM or a fatal error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # State File
//
// With a StatePath the board list is saved atomically after every change
// and reloaded when another process edits the file. Reloads broadcast
// "changed" for each board whose color moved.
//
// # Authentication
//
// Setting Username enables HTTP basic auth on every route except /healthz.
package server
