package sanitizer

import (
	"strings"
	"unicode"
)

const (
	MaxMessageRunes = 2000
	MaxNameRunes    = 60
	MaxBioRunes     = 280
)

// TrimAndNormalize trims and collapses every whitespace run, newlines
// included, into a single space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return Pipeline{stripControl, TrimAndNormalize, truncateRunes(MaxNameRunes)}.Apply(name)
}

func NormalizeBio(bio string) string {
	return Pipeline{stripControl, TrimAndNormalize, truncateRunes(MaxBioRunes)}.Apply(bio)
}

// NormalizeMessageText keeps line breaks but drops trailing spaces on each
// line and collapses runs of blank lines to one.
func NormalizeMessageText(text string) string {
	return Pipeline{stripControl, normalizeLines, truncateRunes(MaxMessageRunes)}.Apply(text)
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func NormalizeCity(city string) string {
	return TrimAndNormalize(stripControl(city))
}
