package services

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"alfredoptarigan/cv-parser/internal/models"
)

const (
	nameScanLines      = 15
	locationScanLines  = 20
	locationScanChars  = 1000
	maxOrganizations   = 10
	maxDates           = 20
	maxInstitutions    = 5
	maxJobTitles       = 10
	minNameLetterRatio = 0.7
	minNameCapsRatio   = 0.7
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Tried in order; international forms first.
	phoneRes = []*regexp.Regexp{
		regexp.MustCompile(`\+\d{1,3}[ .-]?\(?\d{1,4}\)?(?:[ .-]?\d{2,4}){2,4}`),
		regexp.MustCompile(`\(?\d{3}\)?[ .-]?\d{3}[ .-]?\d{4}`),
		regexp.MustCompile(`\d{3,4}[ .-]\d{3,4}[ .-]\d{3,4}`),
		regexp.MustCompile(`\b\d{10,13}\b`),
	}

	phoneLikeLineRe = regexp.MustCompile(`\d[\d()+\-. ]{8,}\d`)
	yearRe          = regexp.MustCompile(`^(?:19|20)\d{2}$`)
	locationLabelRe = regexp.MustCompile(`(?i)\blocation\s*:\s*([^|\n]+)`)
	cityRegionRe    = regexp.MustCompile(`\b([A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+){0,2}), ?([A-Z]{2}|[A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)?)\b`)
	segmentSplitRe  = regexp.MustCompile(`\s+[–—|]\s+|\s*\|\s*|,\s+|\s+at\s+`)
)

type termMatcher struct {
	display string
	re      *regexp.Regexp
}

// EntityExtractor pulls contact fields and keyword entities out of
// normalized text. It never fails; anything it cannot find stays empty.
type EntityExtractor struct {
	vocab        *Vocabulary
	headers      *HeaderClassifier
	caps         Capabilities
	skills       []termMatcher
	skillTerms   map[string]bool
	institutions *regexp.Regexp
	titles       *regexp.Regexp
	logger       *slog.Logger
}

func NewEntityExtractor(vocab *Vocabulary, caps Capabilities, logger *slog.Logger) *EntityExtractor {
	if logger == nil {
		logger = slog.Default()
	}

	e := &EntityExtractor{
		vocab:        vocab,
		headers:      NewHeaderClassifier(vocab.SectionSynonyms, vocab.SectionPriority),
		caps:         caps.withDefaults(),
		skillTerms:   make(map[string]bool),
		institutions: keywordRe(vocab.InstitutionKeywords),
		titles:       keywordRe(vocab.TitleKeywords),
		logger:       logger,
	}

	title := cases.Title(language.English)
	for _, term := range vocab.Skills {
		display, ok := vocab.DisplayNames[term]
		if !ok {
			display = title.String(term)
		}
		e.skills = append(e.skills, termMatcher{display: display, re: termRe(term, true)})
		e.skillTerms[strings.ToLower(term)] = true
	}
	for _, term := range vocab.CaseSensitiveSkills {
		e.skills = append(e.skills, termMatcher{display: term, re: termRe(term, false)})
	}

	return e
}

// termRe matches a vocabulary term as a whole word. Word boundaries treat
// '+', '#' and '.' as word characters so "c++" and ".net" match cleanly.
func termRe(term string, fold bool) *regexp.Regexp {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	pattern := `(?:^|[^\p{L}\p{N}+#.])(` + strings.Join(words, `[ \t]+`) + `)(?:$|[^\p{L}\p{N}+#])`
	if fold {
		pattern = `(?i)` + pattern
	}
	return regexp.MustCompile(pattern)
}

func keywordRe(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return regexp.MustCompile(`$^`)
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Extract builds an EntityBag. Cheap exact matches run first so the
// statistical pass only fills what they left empty.
func (e *EntityExtractor) Extract(text string) (bag *models.EntityBag) {
	bag = &models.EntityBag{
		Organizations:         []string{},
		Dates:                 []string{},
		Skills:                []string{},
		EducationInstitutions: []string{},
		JobTitles:             []string{},
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("entity extraction aborted", "panic", r)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return bag
	}

	lines := strings.Split(text, "\n")

	bag.Email = emailRe.FindString(text)
	bag.Phone = e.extractPhone(text)
	bag.Name = e.extractName(lines)
	bag.Location = e.extractLocation(lines, text)

	if e.caps.NER.Available() {
		e.applyEntities(bag, e.caps.NER.Entities(text))
	}

	bag.Skills = e.extractSkills(text)
	bag.EducationInstitutions = e.scanLines(lines, e.institutions, 5, 150, 12, maxInstitutions)
	bag.JobTitles = e.scanLines(lines, e.titles, 3, 100, 8, maxJobTitles)

	return bag
}

func (e *EntityExtractor) applyEntities(bag *models.EntityBag, entities []Entity) {
	for _, ent := range entities {
		text := strings.TrimSpace(ent.Text)
		if text == "" {
			continue
		}
		switch ent.Label {
		case EntityPerson:
			if bag.Name == "" {
				bag.Name = text
			}
		case EntityGPE:
			if bag.Location == "" {
				bag.Location = text
			}
		case EntityOrg:
			if len(bag.Organizations) < maxOrganizations {
				bag.Organizations = append(bag.Organizations, text)
			}
		case EntityDate:
			if len(bag.Dates) < maxDates {
				bag.Dates = append(bag.Dates, text)
			}
		}
	}
}

func phoneCandidates(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, re := range phoneRes {
		for _, m := range re.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			if m == "" || seen[m] || looksLikeYears(m) {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// looksLikeYears rejects runs such as "2018 2019 2020" that are shaped
// like a phone number.
func looksLikeYears(candidate string) bool {
	groups := strings.FieldsFunc(candidate, func(r rune) bool { return r < '0' || r > '9' })
	if len(groups) < 2 {
		return false
	}
	for _, g := range groups {
		if !yearRe.MatchString(g) {
			return false
		}
	}
	return true
}

func (e *EntityExtractor) extractPhone(text string) string {
	candidates := phoneCandidates(text)
	if len(candidates) == 0 {
		return ""
	}

	if e.caps.Phone.Available() {
		for _, c := range candidates {
			if formatted, ok := e.caps.Phone.Validate(c); ok {
				return formatted
			}
		}
	}

	// Longest candidate by characters among those with a full number.
	best, bestLen := "", 0
	for _, c := range candidates {
		if len(digitsOnly(c)) < 10 {
			continue
		}
		if n := utf8.RuneCountInString(c); n > bestLen {
			best, bestLen = c, n
		}
	}
	if best != "" {
		return best
	}
	return candidates[0]
}

func (e *EntityExtractor) extractName(lines []string) string {
	seen := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		seen++
		if seen > nameScanLines {
			break
		}

		if strings.HasPrefix(line, "#") {
			if _, ok := e.headers.Classify(line); ok {
				continue
			}
			line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		}

		lower := strings.ToLower(line)
		if strings.Contains(line, "@") ||
			strings.Contains(line, "|") ||
			strings.Contains(lower, "email:") ||
			strings.Contains(lower, "phone:") ||
			strings.Contains(lower, "location:") {
			continue
		}
		if phoneLikeLineRe.MatchString(line) {
			continue
		}
		if _, ok := e.headers.Classify(line); ok {
			continue
		}
		if looksLikeName(line) {
			return line
		}
	}
	return ""
}

func looksLikeName(line string) bool {
	words := strings.Fields(line)
	if len(words) < 1 || len(words) > 4 {
		return false
	}

	letters, nonSpace := 0, 0
	for _, r := range line {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if nonSpace == 0 || float64(letters)/float64(nonSpace) <= minNameLetterRatio {
		return false
	}

	capitalized := 0
	for _, w := range words {
		if r, _ := utf8.DecodeRuneInString(w); unicode.IsUpper(r) {
			capitalized++
		}
	}
	return float64(capitalized)/float64(len(words)) >= minNameCapsRatio
}

func (e *EntityExtractor) extractLocation(lines []string, text string) string {
	for i, line := range lines {
		if i >= locationScanLines {
			break
		}
		if m := locationLabelRe.FindStringSubmatch(line); m != nil {
			if loc := strings.TrimSpace(m[1]); loc != "" {
				return loc
			}
		}
	}

	head := text
	if len(head) > locationScanChars {
		head = head[:locationScanChars]
	}
	for _, m := range cityRegionRe.FindAllStringSubmatch(head, -1) {
		if e.plausiblePlace(m[1]) && e.plausiblePlace(m[2]) {
			return m[1] + ", " + m[2]
		}
	}
	return ""
}

// plausiblePlace filters out skill lists and headers that happen to look
// like "City, REGION".
func (e *EntityExtractor) plausiblePlace(part string) bool {
	lower := strings.ToLower(part)
	if e.skillTerms[lower] {
		return false
	}
	for _, term := range e.vocab.CaseSensitiveSkills {
		if part == term {
			return false
		}
	}
	if _, ok := monthAbbr[lower]; ok {
		return false
	}
	_, isHeader := e.headers.Classify(part)
	return !isHeader
}

func (e *EntityExtractor) extractSkills(text string) []string {
	found := make(map[string]bool)
	for _, m := range e.skills {
		if m.re.MatchString(text) {
			found[m.display] = true
		}
	}

	out := make([]string, 0, len(found))
	for s := range found {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// scanLines collects the part of each line that carries a keyword, within
// length and word-count bounds, in first-seen order.
func (e *EntityExtractor) scanLines(lines []string, keyword *regexp.Regexp, minLen, maxLen, maxWords, limit int) []string {
	out := []string{}
	seen := make(map[string]bool)

	for _, raw := range lines {
		line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "- "))
		if line == "" || strings.Contains(line, "@") || !keyword.MatchString(line) {
			continue
		}
		if _, ok := e.headers.Classify(line); ok {
			continue
		}

		for _, part := range segmentSplitRe.Split(line, -1) {
			part = strings.Trim(strings.TrimSpace(part), ",;:.")
			if !keyword.MatchString(part) {
				continue
			}
			n := utf8.RuneCountInString(part)
			if n < minLen || n > maxLen || len(strings.Fields(part)) > maxWords {
				break
			}
			key := strings.ToLower(part)
			if !seen[key] {
				seen[key] = true
				out = append(out, part)
			}
			break
		}

		if len(out) >= limit {
			break
		}
	}
	return out
}
