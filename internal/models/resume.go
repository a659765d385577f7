package models

// Resume is the structured record handed to scoring and rendering collaborators.
type Resume struct {
	Name            string              `json:"name"`
	Email           string              `json:"email"`
	Phone           string              `json:"phone"`
	Location        string              `json:"location"`
	Summary         string              `json:"summary"`
	Skills          []string            `json:"skills"`
	SkillCategories map[string][]string `json:"skill_categories,omitempty"`
	Experience      []Experience        `json:"experience"`
	Education       []Education         `json:"education"`
	Organizations   []string            `json:"organizations"`
	Dates           []string            `json:"dates"`
	Certifications  []string            `json:"certifications"`
}

type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Position    string `json:"position,omitempty"`
	Dates       string `json:"dates"`
	Description string `json:"description"`
}

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	School      string `json:"school,omitempty"`
	Year        string `json:"year"`
}

// Clone returns a deep copy so merges never alias the caller's slices.
func (r *Resume) Clone() *Resume {
	if r == nil {
		return &Resume{}
	}

	out := *r
	out.Skills = append([]string(nil), r.Skills...)
	out.Experience = append([]Experience(nil), r.Experience...)
	out.Education = append([]Education(nil), r.Education...)
	out.Organizations = append([]string(nil), r.Organizations...)
	out.Dates = append([]string(nil), r.Dates...)
	out.Certifications = append([]string(nil), r.Certifications...)

	if r.SkillCategories != nil {
		out.SkillCategories = make(map[string][]string, len(r.SkillCategories))
		for k, v := range r.SkillCategories {
			out.SkillCategories[k] = append([]string(nil), v...)
		}
	}

	return &out
}
