package services

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

// TextNormalizer canonicalizes extracted text before segmentation. It is
// pure and never fails: on an internal error the input comes back as is.
type TextNormalizer struct {
	logger *slog.Logger
}

func NewTextNormalizer(logger *slog.Logger) *TextNormalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextNormalizer{logger: logger}
}

const maxNormalizePasses = 4

// Normalize applies every step until the text stops changing, which keeps
// the result idempotent.
func (n *TextNormalizer) Normalize(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("normalization failed, returning input unchanged", "panic", r)
			out = text
		}
	}()

	out = normalizePass(text)
	for i := 0; i < maxNormalizePasses; i++ {
		next := normalizePass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizePass(text string) string {
	text = stripControl(text)
	text = canonicalizeGlyphs(text)
	text = canonicalizeWhitespace(text)
	text = leadingMarkerRe.ReplaceAllString(text, "- ")
	text = canonicalizeDates(text)
	text = brokenWordRe.ReplaceAllString(text, "$1$2")
	text = dropRepeatedLines(text)
	return strings.TrimSpace(text)
}

func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}

const bulletGlyphs = "•●▪■◦○◆◇►▶➢➤✓✔❖∙‣⁃·"

var (
	lineBulletRe = regexp.MustCompile(`(?m)^[ \t]*[` + bulletGlyphs + `][ \t]*`)
	midBulletRe  = regexp.MustCompile(`[` + bulletGlyphs + `]`)
)

func canonicalizeGlyphs(text string) string {
	text = lineBulletRe.ReplaceAllString(text, "- ")
	text = midBulletRe.ReplaceAllString(text, "-")

	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u00a0' || r == '\u202f' || (r >= '\u2000' && r <= '\u200a'):
			return ' '
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\u2060' || r == '\ufeff' || r == '\ufe0f':
			return -1
		case isDecorative(r):
			return -1
		}
		return r
	}, text)
}

// isDecorative covers emoji, pictographs, dingbats and misc symbols.
func isDecorative(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r >= 0xE000 && r <= 0xF8FF:
		return true
	}
	return false
}

var (
	spaceRunRe      = regexp.MustCompile(`[ \t]{2,}`)
	trailingSpaceRe = regexp.MustCompile(`(?m)[ \t]+$`)
	blankRunRe      = regexp.MustCompile(`\n{4,}`)
	leadingMarkerRe = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\(\d{1,2}\)|\d{1,2}\))[ \t]+`)
	brokenWordRe    = regexp.MustCompile(`(\p{L}+)-\n(\p{Ll}+)`)
)

func canonicalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = trailingSpaceRe.ReplaceAllString(text, "")
	return blankRunRe.ReplaceAllString(text, "\n\n\n")
}

var monthAbbr = map[string]string{
	"january":   "Jan",
	"february":  "Feb",
	"march":     "Mar",
	"april":     "Apr",
	"may":       "May",
	"june":      "Jun",
	"july":      "Jul",
	"august":    "Aug",
	"september": "Sep",
	"sept":      "Sep",
	"october":   "Oct",
	"november":  "Nov",
	"december":  "Dec",
}

var monthByNumber = []string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var (
	fullMonthRe    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|sept|october|november|december)\b[ \t]*,?[ \t]*(\d{4})\b`)
	numericMonthRe = regexp.MustCompile(`(^|[^\d/.])(0?[1-9]|1[0-2])[/-](\d{4})\b`)
	// present/current only become "Present" as the open end of a range
	presentRe = regexp.MustCompile(`(?i)((?:[-‐‑‒–—―]|\bto\b|\btill\b|\buntil\b)[ \t]*)(present|current)\b`)
	dashRunRe = regexp.MustCompile(`[ \t]+[-‐‑‒–—―]+[ \t]+`)
)

func canonicalizeDates(text string) string {
	text = fullMonthRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := fullMonthRe.FindStringSubmatch(m)
		return monthAbbr[strings.ToLower(sub[1])] + " " + sub[2]
	})
	text = numericMonthRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := numericMonthRe.FindStringSubmatch(m)
		month := 0
		for _, c := range sub[2] {
			month = month*10 + int(c-'0')
		}
		return sub[1] + monthByNumber[month] + " " + sub[3]
	})
	text = presentRe.ReplaceAllString(text, "${1}Present")
	return dashRunRe.ReplaceAllString(text, " – ")
}

func dropRepeatedLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	prev := ""
	for i, line := range lines {
		if i > 0 && line != "" && line == prev {
			continue
		}
		out = append(out, line)
		prev = line
	}
	return strings.Join(out, "\n")
}
