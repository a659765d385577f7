package services

import (
	"regexp"
	"strings"
)

// extractionArtifacts maps glyphs that PDF and Word producers leave behind
// to their plain text form. Bullets are only mapped to "•" here; the
// normalizer decides how they render.
var extractionArtifacts = strings.NewReplacer(
	"\uf0b7", "•",
	"\uf0a7", "•",
	"\uf076", "•",
	"\uf0d8", "•",
	"\uf0fc", "•",
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"\u00ad", "",
	"\ufeff", "",
	"\f", "\n\n",
	"â€™", "’",
	"â€˜", "‘",
	"â€œ", "“",
	"â€\u009d", "”",
	"â€“", "–",
	"â€”", "—",
	"â€¢", "•",
	"Ã©", "é",
	"Ã¨", "è",
	"Ã¡", "á",
	"Ã³", "ó",
	"Ã±", "ñ",
	"Ã¼", "ü",
	"Ã¶", "ö",
)

// Layout engines sometimes wrap the tail of a phone number onto the next
// line. A wrapped head carries fewer digits than a complete number.
var splitPhoneRe = regexp.MustCompile(`(?m)(\+?\(?\d[\d ().-]{4,}[\d-])[ \t]*\n[ \t]*(\d{2,4})[ \t]*$`)

// CleanExtractedText removes backend artifacts from raw extracted text
// before the text is measured against the minimum length.
func CleanExtractedText(text string) string {
	text = extractionArtifacts.Replace(text)
	return splitPhoneRe.ReplaceAllStringFunc(text, joinSplitPhone)
}

func joinSplitPhone(match string) string {
	m := splitPhoneRe.FindStringSubmatch(match)
	head, tail := strings.TrimRight(m[1], " "), m[2]

	headDigits := len(digitsOnly(head))
	total := headDigits + len(tail)
	if headDigits < 6 || headDigits >= 10 || total < 10 || total > 15 || looksLikeYears(head) {
		return match
	}
	if strings.HasSuffix(head, "-") {
		return head + tail
	}
	return head + " " + tail
}
