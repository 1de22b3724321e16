package redact

import "strings"

var sensitiveNames = []string{
	"authorization",
	"proxy-authorization",
	"cookie",
	"set-cookie",
	"x-api-key",
	"x-auth-token",
}

// HeaderValue masks the value of a sensitive header, leaving everything else
// untouched. Masking happens at intake, before the digest is computed, so the
// recorded archive never holds the secret.
func HeaderValue(name, value string) string {
	if IsSensitive(name) {
		return "***"
	}
	return value
}

func IsSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, s := range sensitiveNames {
		if name == s {
			return true
		}
	}
	return false
}
