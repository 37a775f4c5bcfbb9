// Package version holds the build version shared by backlight-cfg and
// backlight-server. The daemon reports it in /healthz and its mDNS TXT
// record, so clients can tell which daemon build they talk to.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/backlight/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/backlight/internal/version.Commit=abc123"
//
// Unset values come from the module's VCS build info, then "dev-<time>" and
// "unknown".
var (
	Version = ""
	Commit  = ""
)

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info, time.Now())
}

// resolve fills in whatever ldflags left empty.
func resolve(version, commit string, info *debug.BuildInfo, now time.Time) (string, string) {
	if info != nil && (version == "" || commit == "") {
		settings := make(map[string]string, len(info.Settings))
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}

		if rev := settings["vcs.revision"]; commit == "" && rev != "" {
			commit = rev[:min(len(rev), 7)]
			if settings["vcs.modified"] == "true" {
				commit += "-dirty"
			}
		}

		// Build info carries no tags; date the dev build by its commit.
		if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); version == "" && err == nil {
			version = "dev-" + t.Format("20060102")
		}
	}

	if version == "" {
		version = "dev-" + now.Format("20060102-150405")
	}
	if commit == "" {
		commit = "unknown"
	}
	return version, commit
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Banner is the version line a binary prints, e.g.
// "backlight-server v1.2.0 (commit: abc1234)".
func Banner(program string) string {
	return program + " " + Full()
}
