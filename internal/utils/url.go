package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>]+|\b(?:discord\.gg|discord\.com/invite)/[^\s<>]+`)

// ExtractURLs returns every URL-looking token in the content, including
// bare invite links without a scheme.
func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// ExtractHost parses a raw URL and returns its lowercase, punycode
// normalized host. It never panics on malformed input; an empty host and
// false are returned instead.
func ExtractHost(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", false
	}
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	return host, true
}

// IsInvite reports whether the URL points at a Discord invite.
func IsInvite(raw string) bool {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "discord.gg" {
		return true
	}
	if (host == "discord.com" || host == "discordapp.com") && strings.HasPrefix(parsed.Path, "/invite/") {
		return true
	}
	return false
}
