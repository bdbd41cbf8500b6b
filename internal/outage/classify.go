package outage

import "strings"

// IsOutageMessage reports whether text looks like an outage announcement:
// it must mention an outage keyword and carry at least one time range.
func IsOutageMessage(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return hasOutageKeyword(text) && hasTimeRange(text)
}

func hasOutageKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range outageKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
