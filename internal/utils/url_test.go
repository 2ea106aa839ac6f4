package utils

import "testing"

func TestExtractHost(t *testing.T) {
	host, ok := ExtractHost("https://Example.com/path?x=1")
	if !ok || host != "example.com" {
		t.Fatalf("unexpected host: %q ok=%t", host, ok)
	}
}

func TestExtractHostMalformed(t *testing.T) {
	cases := []string{"http://", "https://%zz", "http:///nohost", "://broken", ""}
	for _, raw := range cases {
		if host, ok := ExtractHost(raw); ok && host == "" {
			t.Fatalf("malformed %q returned ok with empty host", raw)
		}
	}
}

func TestExtractURLsBareInvite(t *testing.T) {
	urls := ExtractURLs("join discord.gg/abc123 now")
	if len(urls) != 1 || urls[0] != "discord.gg/abc123" {
		t.Fatalf("unexpected urls: %v", urls)
	}
}

func TestIsInvite(t *testing.T) {
	if !IsInvite("https://discord.gg/abc") {
		t.Fatalf("discord.gg should be an invite")
	}
	if !IsInvite("discord.com/invite/abc") {
		t.Fatalf("discord.com/invite should be an invite")
	}
	if IsInvite("https://example.com/invite/abc") {
		t.Fatalf("example.com is not an invite")
	}
}
