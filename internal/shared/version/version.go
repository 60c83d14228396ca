// Package version reports the build version of the binary.
package version

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

// Set with -ldflags "-X kreltrack/internal/shared/version.Version=1.2.0".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Normalize adds the "v" prefix semver expects: "1.2.3" -> "v1.2.3".
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// IsRelease reports whether v is a tagged semver release rather than a dev build.
func IsRelease(v string) bool {
	n := Normalize(v)
	return semver.IsValid(n) && semver.Prerelease(n) == ""
}

// String renders the one-line banner printed by `kreltrack version`.
func String() string {
	v := Version
	if IsRelease(v) {
		v = semver.Canonical(Normalize(v))
	}
	return fmt.Sprintf("kreltrack %s (commit %s, built %s, %s)", v, Commit, BuildDate, runtime.Version())
}
