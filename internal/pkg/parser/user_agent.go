package parser

import "strings"

// IsHomeserver reports whether a User-Agent looks like a Matrix homeserver
// fetching media over federation. Used only to label view analytics.
func IsHomeserver(ua string) bool {
	uaLower := strings.ToLower(ua)
	for _, marker := range []string{"synapse", "dendrite", "conduit", "matrix"} {
		if strings.Contains(uaLower, marker) {
			return true
		}
	}
	return false
}

func ParseUserAgent(ua string) (os, client string) {
	uaLower := strings.ToLower(ua)

	if strings.Contains(uaLower, "windows") {
		os = "Windows"
	} else if strings.Contains(uaLower, "mac os") {
		os = "macOS"
	} else if strings.Contains(uaLower, "linux") {
		os = "Linux"
	} else if strings.Contains(uaLower, "android") {
		os = "Android"
	} else if strings.Contains(uaLower, "iphone") || strings.Contains(uaLower, "ipad") {
		os = "iOS"
	} else {
		os = "Unknown"
	}

	if IsHomeserver(ua) {
		client = "Homeserver"
	} else if strings.Contains(uaLower, "chrome") && !strings.Contains(uaLower, "edge") {
		client = "Chrome"
	} else if strings.Contains(uaLower, "safari") && !strings.Contains(uaLower, "chrome") {
		client = "Safari"
	} else if strings.Contains(uaLower, "firefox") {
		client = "Firefox"
	} else if strings.Contains(uaLower, "edge") {
		client = "Edge"
	} else {
		client = "Unknown"
	}

	return os, client
}
