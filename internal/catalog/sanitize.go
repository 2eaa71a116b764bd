package catalog

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	markupPolicyOnce sync.Once
	markupPolicy     *bluemonday.Policy
	plainPolicy      = bluemonday.StrictPolicy()
)

// SanitizeMarkup keeps the inline emphasis tags allowed in advisory text and
// drops everything else.
func SanitizeMarkup(raw string) string {
	return strings.TrimSpace(markupSanitizer().Sanitize(strings.TrimSpace(raw)))
}

// PlainText strips all markup, for terminal output.
func PlainText(raw string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(raw))
}

func markupSanitizer() *bluemonday.Policy {
	markupPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("strong", "em", "b", "i", "br", "span")
		policy.AllowAttrs("class").OnElements("span")
		markupPolicy = policy
	})
	return markupPolicy
}
