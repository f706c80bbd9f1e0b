package notify

import (
	"fmt"
	"strings"

	"github.com/sipca-labs/aquasentry/pkg/alert"
)

// markdownEscaper covers the characters Telegram's legacy Markdown mode
// treats as markup. Unbalanced markup makes the API reject the whole
// message instead of degrading, so untrusted text must pass through
// EscapeMarkdown before interpolation.
var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown neutralises Markdown control characters in text that did
// not originate from this program.
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// FormatAlert renders an alert event as the operator-facing page.
func FormatAlert(event alert.Event) string {
	return fmt.Sprintf(
		"🚨 *WATER QUALITY ALERT*\n\n"+
			"*Reasons:* %s\n"+
			"*Sample:* pH %.1f",
		strings.Join(event.Reasons, ", "), event.Sample.PH)
}
