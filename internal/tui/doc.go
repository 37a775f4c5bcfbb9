// Package tui provides the interactive palette screen of backlight-cfg.
//
// # Overview
//
// The screen hosts a palette.Palette. It reads the board's color once at
// startup, seeds the palette with the configured defaults and then turns
// every key press into a palette event. The effects the palette returns are
// carried out here: picker requests open an inline hex picker and pushes
// are written to the daemon in the background.
//
// # Layout
//
//	┌──────────────────────────────────────────┐
//	│ BACKLIGHT v1.0.0  ████ #ff0000  desk/0    │  header with the published color
//	├──────────────────────────────────────────┤
//	│  [ ✓ ]  [     ]  [     ]                  │  swatches, three per row
//	│  [     ]  [ + ]                           │  trailing add cell
//	│  e Edit  x Remove                         │  actions for the current swatch
//	│  Set #ff0000                              │  status line
//	├──────────────────────────────────────────┤
//	│ enter select  a add  e edit  x remove     │
//	└──────────────────────────────────────────┘
//
// # Pushes
//
// Pushes run as Bubble Tea commands. They are serialized and a push that
// has been overtaken by a newer one is dropped, so the daemon ends on the
// last color chosen. A failed push only updates the status line; the
// palette never rolls back.
//
// # Picker
//
// The picker accepts #rgb or #rrggbb. While it is open every complete
// six-digit color typed is previewed on the daemon. Enter confirms, Esc
// cancels, and cancelling re-pushes the current swatch's color. Confirming
// a color that was never previewed, such as "#0f0", pushes it first.
//
// # Remote changes
//
// Over WebSocket, colors set by other clients are shown below the status
// line. The connection is only read while a request is in flight, so the
// notice is refreshed on the next push rather than live.
//
// # Usage
//
//	err := tui.Run(ctx, tui.Options{
//		Device:   daemon.NewFacade(d, 0),
//		Defaults: prefs.Palette(),
//		Target:   "desk/0",
//	})
package tui
