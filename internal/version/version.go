// Package version holds build identification for the mashclust binary.
package version

// Overridden at build time:
// go build -ldflags "-X mashclust/internal/version.Version=1.0.0 -X mashclust/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns the version, with a short commit when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line form printed by `mashclust version`.
func Full() string {
	return "mashclust version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
