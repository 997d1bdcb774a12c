// Package misc holds build time information.
package misc

// Set by the linker: -X rcss/misc.version=... -X rcss/misc.gitHash=...
var (
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return "rcss"
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
