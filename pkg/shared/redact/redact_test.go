package redact

import "testing"

func TestHeaderValue(t *testing.T) {
	cases := []struct {
		name, value, want string
	}{
		{"Authorization", "Bearer secret", "***"},
		{"AUTHORIZATION", "Basic xyz", "***"},
		{"Cookie", "session=abc", "***"},
		{"Set-Cookie", "session=abc", "***"},
		{"X-Api-Key", "k-123", "***"},
		{"Content-Type", "text/html", "text/html"},
		{"Accept", "*/*", "*/*"},
	}
	for _, c := range cases {
		if got := HeaderValue(c.name, c.value); got != c.want {
			t.Errorf("HeaderValue(%q, %q) = %q, want %q", c.name, c.value, got, c.want)
		}
	}
}

func TestIsSensitive(t *testing.T) {
	if !IsSensitive("proxy-authorization") {
		t.Error("proxy-authorization should be sensitive")
	}
	if IsSensitive("user-agent") {
		t.Error("user-agent should not be sensitive")
	}
}
