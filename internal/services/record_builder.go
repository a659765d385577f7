package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"alfredoptarigan/cv-parser/internal/models"
)

const (
	maxCertificationLen = 150
	maxCertifications   = 10
	maxSkillItemLen     = 40
)

var (
	dateRangeRe   = regexp.MustCompile(`\b((?:[A-Z][a-z]{2} )?(?:19|20)\d{2})[ \t]*(?:–|-|to)[ \t]*((?:[A-Z][a-z]{2} )?(?:19|20)\d{2}|Present)\b`)
	singleDateRe  = regexp.MustCompile(`\b(?:[A-Z][a-z]{2} )?(?:19|20)\d{2}\b`)
	yearOnlyRe    = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	categoryRe    = regexp.MustCompile(`^([A-Za-z][A-Za-z &/+-]{1,40}):[ \t]*(.+)$`)
	listSplitRe   = regexp.MustCompile(`[,;|]|[ \t]+–[ \t]+`)
	emptyHeaderRe = regexp.MustCompile(`^[\s–|,-]*$`)
)

// RecordBuilder assembles the structured résumé from the entity bag and
// the segmented sections.
type RecordBuilder struct {
	vocab   *Vocabulary
	titles  *regexp.Regexp
	schools *regexp.Regexp
	degrees *regexp.Regexp
	certs   *regexp.Regexp
}

func NewRecordBuilder(vocab *Vocabulary) *RecordBuilder {
	return &RecordBuilder{
		vocab:   vocab,
		titles:  keywordRe(vocab.TitleKeywords),
		schools: keywordRe(vocab.InstitutionKeywords),
		degrees: degreeRe(vocab.DegreeKeywords),
		certs:   keywordRe(vocab.CertificationKeywords),
	}
}

// degree keywords often end in '.', which defeats a trailing \b.
func degreeRe(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return regexp.MustCompile(`$^`)
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}])`)
}

// Build assembles the record. text is the normalized document; it is only
// read when no section headers were found.
func (b *RecordBuilder) Build(bag *models.EntityBag, sections *models.SectionMap, text string) *models.Resume {
	if bag == nil {
		bag = &models.EntityBag{}
	}

	r := &models.Resume{
		Name:           bag.Name,
		Email:          bag.Email,
		Phone:          bag.Phone,
		Location:       bag.Location,
		Skills:         append([]string{}, bag.Skills...),
		Experience:     []models.Experience{},
		Education:      []models.Education{},
		Organizations:  append([]string{}, bag.Organizations...),
		Dates:          append([]string{}, bag.Dates...),
		Certifications: []string{},
	}

	if body, ok := sections.Get(models.SectionSummary); ok {
		r.Summary = strings.Join(strings.Fields(body), " ")
	}

	if body, ok := sections.Get(models.SectionSkills); ok {
		r.SkillCategories = skillCategories(body)
		if len(r.Skills) == 0 {
			r.Skills = skillItems(body)
		}
	}

	if body, ok := sections.Get(models.SectionExperience); ok {
		r.Experience = b.experience(body)
	}
	if len(r.Experience) == 0 {
		for _, title := range bag.JobTitles {
			r.Experience = append(r.Experience, models.Experience{Title: title})
		}
	}

	if body, ok := sections.Get(models.SectionEducation); ok {
		r.Education = b.education(body)
	}
	if len(r.Education) == 0 {
		for _, inst := range bag.EducationInstitutions {
			r.Education = append(r.Education, models.Education{Institution: inst})
		}
	}

	if body, ok := sections.Get(models.SectionCertifications); ok {
		r.Certifications = listLines(body, maxCertificationLen)
	} else if sections.Len() == 0 {
		r.Certifications = b.certificationLines(text)
	}

	return r
}

// skillCategories reads "Category: a, b, c" lines. It returns nil when the
// section is a flat list.
func skillCategories(body string) map[string][]string {
	var out map[string][]string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		m := categoryRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		items := splitItems(m[2])
		if len(items) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string][]string)
		}
		name := strings.TrimSpace(m[1])
		out[name] = append(out[name], items...)
	}
	return out
}

func skillItems(body string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if m := categoryRe.FindStringSubmatch(line); m != nil {
			line = m[2]
		}
		for _, item := range splitItems(line) {
			if key := strings.ToLower(item); !seen[key] {
				seen[key] = true
				out = append(out, item)
			}
		}
	}
	return out
}

func splitItems(s string) []string {
	var out []string
	for _, item := range listSplitRe.Split(s, -1) {
		item = strings.Trim(strings.TrimSpace(item), ".")
		if n := utf8.RuneCountInString(item); n >= 1 && n <= maxSkillItemLen {
			out = append(out, item)
		}
	}
	return out
}

func listLines(body string, maxLen int) []string {
	out := []string{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line != "" && utf8.RuneCountInString(line) <= maxLen {
			out = append(out, line)
		}
	}
	return out
}

// certificationLines picks lines naming a certification out of text that
// has no section structure.
func (b *RecordBuilder) certificationLines(text string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, line := range listLines(text, maxCertificationLen) {
		line = strings.TrimSpace(strings.TrimLeft(line, "•*"))
		if line == "" || !b.certs.MatchString(line) || seen[strings.ToLower(line)] {
			continue
		}
		seen[strings.ToLower(line)] = true
		out = append(out, line)
		if len(out) == maxCertifications {
			break
		}
	}
	return out
}

type entryBlock struct {
	header []string
	detail []string
}

// entryBlocks splits a section into entries. An entry starts at a blank
// line or at a plain line that follows bullet lines.
func entryBlocks(body string) []entryBlock {
	var blocks []entryBlock
	var cur entryBlock
	inDetail := false

	flush := func() {
		if len(cur.header) > 0 || len(cur.detail) > 0 {
			blocks = append(blocks, cur)
		}
		cur = entryBlock{}
		inDetail = false
	}

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "- "):
			cur.detail = append(cur.detail, strings.TrimSpace(line[2:]))
			inDetail = true
		case inDetail:
			flush()
			cur.header = append(cur.header, line)
		default:
			cur.header = append(cur.header, line)
		}
	}
	flush()
	return blocks
}

func (b *RecordBuilder) experience(body string) []models.Experience {
	out := []models.Experience{}
	for _, blk := range entryBlocks(body) {
		var exp models.Experience
		var parts []string

		for _, line := range blk.header {
			if exp.Dates == "" {
				if m := dateRangeRe.FindString(line); m != "" {
					exp.Dates = m
					line = strings.Replace(line, m, "", 1)
				} else if m := singleDateRe.FindString(line); m != "" && strings.TrimSpace(line) == m {
					exp.Dates = m
					continue
				}
			}
			if emptyHeaderRe.MatchString(line) {
				continue
			}
			for _, p := range segmentSplitRe.Split(line, -1) {
				if p = strings.Trim(strings.TrimSpace(p), "–-|,()"); p != "" {
					parts = append(parts, p)
				}
			}
		}

		for i, p := range parts {
			if b.titles.MatchString(p) {
				exp.Title = p
				parts = append(parts[:i:i], parts[i+1:]...)
				break
			}
		}
		if len(parts) > 0 {
			if exp.Title == "" && len(blk.detail) > 0 {
				exp.Title, parts = parts[0], parts[1:]
			}
			if len(parts) > 0 {
				exp.Company = parts[0]
			}
		}

		exp.Description = strings.Join(blk.detail, "\n")
		if exp.Title == "" && exp.Company == "" {
			// a stray bullet list continues the previous entry
			if n := len(out); n > 0 && exp.Description != "" {
				out[n-1].Description = strings.TrimSpace(out[n-1].Description + "\n" + exp.Description)
			}
			continue
		}
		out = append(out, exp)
	}
	return out
}

func (b *RecordBuilder) education(body string) []models.Education {
	out := []models.Education{}
	for _, blk := range entryBlocks(body) {
		var edu models.Education
		lines := append(append([]string{}, blk.header...), blk.detail...)

		for _, line := range lines {
			if years := yearOnlyRe.FindAllString(line, -1); len(years) > 0 {
				edu.Year = years[len(years)-1]
			}
			for _, p := range segmentSplitRe.Split(line, -1) {
				p = strings.TrimSpace(yearOnlyRe.ReplaceAllString(p, ""))
				p = strings.Trim(p, "–-|,() ")
				switch {
				case p == "":
				case edu.Institution == "" && b.schools.MatchString(p):
					edu.Institution = p
				case edu.Degree == "" && b.degrees.MatchString(p):
					edu.Degree = p
				}
			}
		}

		if edu.Degree != "" || edu.Institution != "" {
			out = append(out, edu)
		}
	}
	return out
}
