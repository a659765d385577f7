package models

const (
	FieldName           = "name"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldLocation       = "location"
	FieldSummary        = "summary"
	FieldSkills         = "skills"
	FieldExperience     = "experience"
	FieldEducation      = "education"
	FieldCertifications = "certifications"
)

var (
	CriticalFields  = []string{FieldName, FieldEmail, FieldPhone}
	ImportantFields = []string{FieldSkills, FieldExperience, FieldEducation}
)

type ValidationReport struct {
	IsComplete        bool     `json:"is_complete"`
	NeedsFallback     bool     `json:"needs_ai_fallback"`
	MissingCritical   []string `json:"missing_critical"`
	MissingImportant  []string `json:"missing_important"`
	CompletenessScore float64  `json:"completeness_score"`
}

// MissingFields lists critical gaps first, then important ones.
func (v *ValidationReport) MissingFields() []string {
	out := make([]string, 0, len(v.MissingCritical)+len(v.MissingImportant))
	out = append(out, v.MissingCritical...)
	return append(out, v.MissingImportant...)
}
