package telegram

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var channelNameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

// UnsupportedInputError reports a channel reference that cannot be turned into a public page.
type UnsupportedInputError struct {
	Input string
	Hint  string
}

func (e *UnsupportedInputError) Error() string {
	if e == nil {
		return "unsupported channel"
	}
	if e.Hint != "" {
		return fmt.Sprintf("unsupported channel %q: %s", e.Input, e.Hint)
	}
	return fmt.Sprintf("unsupported channel %q", e.Input)
}

// ChannelName normalizes "@name", "name", "t.me/name" and "https://t.me/s/name" to "name".
func ChannelName(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", &UnsupportedInputError{Input: input, Hint: "channel is empty"}
	}
	name := strings.TrimPrefix(trimmed, "@")
	if strings.Contains(name, "/") {
		raw := name
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			return "", &UnsupportedInputError{Input: input, Hint: "invalid URL"}
		}
		if !telegramHost(u.Hostname()) {
			return "", &UnsupportedInputError{Input: input, Hint: "expected a t.me link"}
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) > 0 && parts[0] == "s" {
			parts = parts[1:]
		}
		if len(parts) == 0 || parts[0] == "" {
			return "", &UnsupportedInputError{Input: input, Hint: "link has no channel"}
		}
		name = parts[0]
	}
	if !channelNameRE.MatchString(name) {
		return "", &UnsupportedInputError{Input: input, Hint: "channel name is invalid"}
	}
	return name, nil
}

func telegramHost(host string) bool {
	host = strings.ToLower(host)
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		domain = host
	}
	return domain == "t.me" || domain == "telegram.me"
}

// PageURL is the public preview page of a channel, optionally before a post id.
func PageURL(base, channel string, before int64) string {
	u := strings.TrimRight(base, "/") + "/s/" + url.PathEscape(channel)
	if before > 0 {
		u += fmt.Sprintf("?before=%d", before)
	}
	return u
}
