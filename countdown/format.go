package countdown

import (
	"fmt"
	"strings"
)

// Pluralize picks the singular form only when count is exactly one.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// singularMinuteText derives the singular phrase from the configured
// plural one, e.g. "minutes remaining" -> "minute remaining". Phrases
// without the word "minutes" are used as-is.
func singularMinuteText(minuteText string) string {
	return strings.Replace(minuteText, "minutes", "minute", 1)
}

// minutePhrase builds the spoken text for a minute boundary.
func minutePhrase(m int, minuteText string) string {
	return fmt.Sprintf("%d %s", m, Pluralize(m, singularMinuteText(minuteText), minuteText))
}
