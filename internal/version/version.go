// Package version holds the build version.
package version

import "strings"

// version is set at build time via -ldflags "-X fleetwatch/internal/version.version=v1.2.3".
var version = "dev"

// String returns the build version without a leading "v".
func String() string {
	return normalize(version)
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimPrefix(v, "V")
	if v == "" {
		return "dev"
	}
	return v
}
