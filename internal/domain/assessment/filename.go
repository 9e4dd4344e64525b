package assessment

import (
	"strings"
	"unicode"
)

const (
	reportSuffix     = "_report.pdf"
	fallbackBaseName = "patient"
)

// ReportFilename derives a download name from a free-text patient name:
// trimmed, spaces to underscores, suffixed with "_report.pdf".
// Path separators, control characters and shell/filesystem reserved characters
// also become underscores; an empty name falls back to "patient".
func ReportFilename(name string) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = fallbackBaseName
	}

	base = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case unicode.IsControl(r):
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, base)

	return base + reportSuffix
}
