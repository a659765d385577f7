package services

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
)

// maxNERInput bounds the text handed to the tagger; résumés longer than
// this are almost always extraction noise.
const maxNERInput = 20000

// prose's default model only tags PERSON and GPE, and often tags companies
// as either. Organizations and dates come from these patterns instead.
var (
	orgSuffixRe = regexp.MustCompile(`\b([A-Z][\w&'-]*(?: [A-Z][\w&'-]*){0,3} (?:Inc|Corp|Corporation|Company|LLC|Ltd|Limited|GmbH|PLC|Group|Technologies|Labs|Bank|Solutions|Systems|Consulting)\b\.?)`)
	orgAtRe     = regexp.MustCompile(`(?:\bat|@)[ \t]+([A-Z][\w&'.-]*(?: (?:[A-Z][\w&'.-]*|&|of)){0,4})`)
	dateEntRe   = regexp.MustCompile(`\b(?:(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec)\.? (?:19|20)\d{2}|(?:0?[1-9]|1[0-2])/(?:19|20)\d{2}|(?:19|20)\d{2})\b`)
)

// ProseModel is the process-wide handle to prose's NER model. The model is
// loaded on first use and shared; a load failure is remembered.
type ProseModel struct {
	once   sync.Once
	model  *prose.Model
	err    error
	logger *slog.Logger
}

func NewProseModel(logger *slog.Logger) *ProseModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProseModel{logger: logger}
}

func (m *ProseModel) Acquire() (*prose.Model, error) {
	m.once.Do(m.load)
	return m.model, m.err
}

func (m *ProseModel) load() {
	defer func() {
		if r := recover(); r != nil {
			m.model, m.err = nil, fmt.Errorf("prose model panicked: %v", r)
		}
		if m.err != nil {
			m.logger.Warn("⚠️ NER model unavailable, entity recognition disabled", "error", m.err)
			return
		}
		m.logger.Info("✅ NER model loaded")
	}()

	doc, err := prose.NewDocument("Jane Doe lives in Boston.", prose.WithSegmentation(false))
	if err != nil {
		m.err = err
		return
	}
	if doc.Model == nil {
		m.err = fmt.Errorf("prose returned no model")
		return
	}
	m.model = doc.Model
}

type proseNER struct {
	handle *ProseModel
	logger *slog.Logger
}

func NewProseNER(handle *ProseModel, logger *slog.Logger) NamedEntityRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &proseNER{handle: handle, logger: logger}
}

func (p *proseNER) Available() bool {
	_, err := p.handle.Acquire()
	return err == nil
}

func (p *proseNER) Entities(text string) (out []Entity) {
	model, err := p.handle.Acquire()
	if err != nil || text == "" {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("entity recognition panicked", "panic", r)
			out = nil
		}
	}()

	if len(text) > maxNERInput {
		text = text[:maxNERInput]
	}

	doc, err := prose.NewDocument(text, prose.UsingModel(model))
	if err != nil {
		p.logger.Debug("entity recognition failed", "error", err)
		return nil
	}

	for _, ent := range doc.Entities() {
		out = append(out, Entity{Text: ent.Text, Label: ent.Label})
	}
	return supplementEntities(text, out)
}

// supplementEntities relabels tagged chunks that are organizations and
// appends the organizations and dates found by pattern, in text order.
func supplementEntities(text string, tagged []Entity) []Entity {
	orgs := patternOrgs(text)
	isOrg := make(map[string]bool, len(orgs))
	for _, o := range orgs {
		isOrg[strings.ToLower(o)] = true
	}

	out := make([]Entity, 0, len(tagged)+len(orgs))
	taggedOrg := make(map[string]bool)
	for _, ent := range tagged {
		key := strings.ToLower(strings.TrimSpace(ent.Text))
		if isOrg[key] || orgSuffixRe.MatchString(ent.Text) {
			ent.Label = EntityOrg
			taggedOrg[key] = true
		}
		out = append(out, ent)
	}
	for _, o := range orgs {
		if !taggedOrg[strings.ToLower(o)] {
			out = append(out, Entity{Text: o, Label: EntityOrg})
		}
	}

	// phone digits are not years
	scrubbed := text
	for _, c := range phoneCandidates(text) {
		scrubbed = strings.ReplaceAll(scrubbed, c, " ")
	}
	for _, d := range dateEntRe.FindAllString(scrubbed, -1) {
		out = append(out, Entity{Text: d, Label: EntityDate})
	}
	return out
}

// patternOrgs returns every organization mention; overlapping matches of
// the two patterns count once.
func patternOrgs(text string) []string {
	type hit struct {
		start, end int
		text       string
	}
	var hits []hit
	for _, re := range []*regexp.Regexp{orgSuffixRe, orgAtRe} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			name := strings.TrimRight(text[m[2]:m[3]], ".,;:")
			name = strings.TrimSuffix(strings.TrimSuffix(name, " of"), " &")
			if name != "" {
				hits = append(hits, hit{start: m[2], end: m[3], text: name})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	var out []string
	lastEnd := -1
	for _, h := range hits {
		if h.start < lastEnd {
			continue
		}
		out = append(out, h.text)
		lastEnd = h.end
	}
	return out
}
