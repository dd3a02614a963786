package session

import "strings"

// DeviceType is a coarse device class derived from the user agent
type DeviceType string

const (
	DeviceMobile  DeviceType = "Mobile"
	DeviceTablet  DeviceType = "Tablet"
	DeviceDesktop DeviceType = "Desktop"
	DeviceUnknown DeviceType = "Unknown"
)

// ClassifyUserAgent maps a user agent to a DeviceType by substring.
// Tablets are checked first since Android tablets omit "mobile".
func ClassifyUserAgent(userAgent string) DeviceType {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return DeviceTablet
	case strings.Contains(ua, "mobile"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "android"):
		return DeviceMobile
	case strings.Contains(ua, "windows"),
		strings.Contains(ua, "macintosh"),
		strings.Contains(ua, "linux"),
		strings.Contains(ua, "x11"):
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

// CountIdentities returns the number of distinct device identities in sessions
func CountIdentities(sessions []DeviceSession) int {
	seen := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		seen[s.DeviceIdentity] = struct{}{}
	}
	return len(seen)
}
