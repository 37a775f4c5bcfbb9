// Package discovery finds backlight daemons on the local network over mDNS
// and lets a daemon advertise itself.
//
// Daemons register the "_backlight._tcp" service. TXT records carry the
// daemon's instance id, board count, version and WebSocket path.
//
// # Usage Example
//
//	devices, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Printf("%s at %s (%d boards)\n", d.Instance, d.Address(), d.Boards())
//	}
//
// Advertising from a daemon:
//
//	ad, err := discovery.Advertise("backlight-studio", id, 7878, 2, version.Version)
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
package discovery
