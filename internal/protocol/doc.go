// Package protocol implements the backlight daemon wire protocol.
//
// Messages are single JSON objects carried in WebSocket text frames. Every
// message shares one envelope:
//
//	{"id":"...","op":"...","board":0,"color":"#rrggbb","error":"...","boards":[...]}
//
// Fields that do not apply to an op are omitted.
//
// # Requests
//
// Clients send requests with a unique id (a UUID):
//   - get_color: read the color of "board"
//   - set_color: write "color" to "board"
//   - list_boards: enumerate boards
//
// # Replies
//
// The daemon answers each request with the request's id:
//   - color: carries "board" and "color" (answer to get_color)
//   - ok: the set_color was applied
//   - boards: carries "boards" (answer to list_boards)
//   - error: carries "error" and a machine-readable "code"
//
// # Broadcasts
//
// After a successful set_color the daemon sends "changed" (no id) to every
// connected client so other hosts can follow the new color.
//
// # Usage Example
//
//	req := protocol.NewSetColor(uuid.NewString(), 0, color.MustParse("#ff0000"))
//	data, err := protocol.Encode(req)
//	if err != nil {
//	    return err
//	}
//	// send data, read reply
//	reply, err := protocol.Decode(replyData)
//	if err != nil {
//	    return err
//	}
//	if reply.Op == protocol.OpError {
//	    return reply.Err()
//	}
package protocol
