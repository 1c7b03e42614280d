package session

import "strings"

// providerMessageMap remaps known provider error phrases to friendlier text.
// Matching is by substring; this table is the only place such matching
// happens.
var providerMessageMap = []struct {
	contains string
	friendly string
}{
	{"Email not confirmed", "Please confirm your email using the link we sent you, then sign in again."},
	{"Invalid login credentials", "Invalid email or password."},
}

// friendlyProviderMessage returns the remapped message for a known phrase,
// or the provider's own message unchanged.
func friendlyProviderMessage(msg string) string {
	for _, entry := range providerMessageMap {
		if strings.Contains(msg, entry.contains) {
			return entry.friendly
		}
	}
	return msg
}
