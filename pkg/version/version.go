package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Get returns the build version, without the trailing newline the
// embedded file carries.
func Get() string {
	return strings.TrimSpace(version)
}
