package build

import "fmt"

// Set at link time with -ldflags "-X".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// Info is the one-line description printed by the version command.
func Info() string {
	return fmt.Sprintf("fetchkit %s (built %s)", FullVersion(), BuildTime)
}
