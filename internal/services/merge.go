package services

import (
	"alfredoptarigan/cv-parser/internal/models"
)

// MergePolicy fills gaps in an extracted record from a supplemental one.
// It only adds: a field is taken from the supplement when it was reported
// missing and the supplement has a value. Summary and certifications are
// also taken whenever the original has none.
type MergePolicy struct{}

func NewMergePolicy() *MergePolicy {
	return &MergePolicy{}
}

func (m *MergePolicy) Merge(original, supplemental *models.Resume, missingFields []string) *models.Resume {
	merged := original.Clone()
	if supplemental == nil {
		return merged
	}
	sup := supplemental.Clone()

	fields := append([]string{}, missingFields...)
	if !nonBlank(merged.Summary) {
		fields = append(fields, models.FieldSummary)
	}
	if len(merged.Certifications) == 0 {
		fields = append(fields, models.FieldCertifications)
	}

	for _, field := range fields {
		switch field {
		case models.FieldName:
			if nonBlank(sup.Name) {
				merged.Name = sup.Name
			}
		case models.FieldEmail:
			if nonBlank(sup.Email) {
				merged.Email = sup.Email
			}
		case models.FieldPhone:
			if nonBlank(sup.Phone) {
				merged.Phone = sup.Phone
			}
		case models.FieldLocation:
			if nonBlank(sup.Location) {
				merged.Location = sup.Location
			}
		case models.FieldSkills:
			if hasSkills(sup) {
				merged.Skills = sup.Skills
				merged.SkillCategories = sup.SkillCategories
			}
		case models.FieldExperience:
			if hasExperience(sup) {
				merged.Experience = sup.Experience
			}
		case models.FieldEducation:
			if hasEducation(sup) {
				merged.Education = sup.Education
			}
		case models.FieldSummary:
			if nonBlank(sup.Summary) {
				merged.Summary = sup.Summary
			}
		case models.FieldCertifications:
			if len(sup.Certifications) > 0 {
				merged.Certifications = sup.Certifications
			}
		}
	}

	return merged
}
