package form

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizePasses bounds the strip/decode loop in SanitizeText.
const sanitizePasses = 4

// SanitizeText strips markup from a free-text value. Entities the policy
// escapes are decoded again so the stored text is what the user typed, and
// the pair repeats until stable so encoded markup cannot decode into tags.
// Surrounding spaces are kept; the field may still be mid-edit.
func SanitizeText(raw string) string {
	if raw == "" || !strings.ContainsAny(raw, "<>&") {
		return raw
	}
	policy := textSanitizer()
	s := raw
	for range sanitizePasses {
		clean := html.UnescapeString(policy.Sanitize(s))
		if clean == s {
			return clean
		}
		s = clean
	}
	// Not stable: keep the escaped form.
	return policy.Sanitize(s)
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
