package models

type SectionName string

const (
	SectionSummary        SectionName = "summary"
	SectionExperience     SectionName = "experience"
	SectionEducation      SectionName = "education"
	SectionSkills         SectionName = "skills"
	SectionCertifications SectionName = "certifications"
	SectionProjects       SectionName = "projects"
	SectionAwards         SectionName = "awards"
	SectionLanguages      SectionName = "languages"
)

// SectionMap keeps section bodies in document order.
type SectionMap struct {
	order  []SectionName
	bodies map[SectionName]string
}

func NewSectionMap() *SectionMap {
	return &SectionMap{bodies: make(map[SectionName]string)}
}

// Set appends a body; a name seen again keeps its first position and the
// bodies are joined by a blank line.
func (m *SectionMap) Set(name SectionName, body string) {
	if prev, ok := m.bodies[name]; ok {
		m.bodies[name] = prev + "\n\n" + body
		return
	}
	m.order = append(m.order, name)
	m.bodies[name] = body
}

func (m *SectionMap) Get(name SectionName) (string, bool) {
	if m == nil {
		return "", false
	}
	body, ok := m.bodies[name]
	return body, ok
}

func (m *SectionMap) Names() []SectionName {
	if m == nil {
		return nil
	}
	return append([]SectionName(nil), m.order...)
}

func (m *SectionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.order)
}

// EntityBag holds fields recovered from normalized text. Empty means absent.
type EntityBag struct {
	Name                  string   `json:"name,omitempty"`
	Email                 string   `json:"email,omitempty"`
	Phone                 string   `json:"phone,omitempty"`
	Location              string   `json:"location,omitempty"`
	Organizations         []string `json:"organizations"`
	Dates                 []string `json:"dates"`
	Skills                []string `json:"skills"`
	EducationInstitutions []string `json:"education_institutions"`
	JobTitles             []string `json:"job_titles"`
}
