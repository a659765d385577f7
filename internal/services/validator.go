package services

import (
	"math"
	"strings"

	"alfredoptarigan/cv-parser/internal/models"
)

// CompletenessValidator scores a record against the critical and important
// field sets. Only critical gaps ask for enrichment; important gaps are
// reported and tolerated.
type CompletenessValidator struct{}

func NewCompletenessValidator() *CompletenessValidator {
	return &CompletenessValidator{}
}

func (v *CompletenessValidator) Validate(r *models.Resume) *models.ValidationReport {
	if r == nil {
		r = &models.Resume{}
	}

	report := &models.ValidationReport{
		MissingCritical:  []string{},
		MissingImportant: []string{},
	}

	critical := map[string]string{
		models.FieldName:  r.Name,
		models.FieldEmail: r.Email,
		models.FieldPhone: r.Phone,
	}
	for _, field := range models.CriticalFields {
		if strings.TrimSpace(critical[field]) == "" {
			report.MissingCritical = append(report.MissingCritical, field)
		}
	}

	important := map[string]bool{
		models.FieldSkills:     hasSkills(r),
		models.FieldExperience: hasExperience(r),
		models.FieldEducation:  hasEducation(r),
	}
	for _, field := range models.ImportantFields {
		if !important[field] {
			report.MissingImportant = append(report.MissingImportant, field)
		}
	}

	total := len(models.CriticalFields) + len(models.ImportantFields)
	missing := len(report.MissingCritical) + len(report.MissingImportant)

	report.NeedsFallback = len(report.MissingCritical) > 0
	report.IsComplete = !report.NeedsFallback
	report.CompletenessScore = math.Round(1000*float64(total-missing)/float64(total)) / 10

	return report
}

// hasSkills prefers the grouped form when the record has one.
func hasSkills(r *models.Resume) bool {
	if len(r.SkillCategories) > 0 {
		for _, items := range r.SkillCategories {
			if len(items) > 0 {
				return true
			}
		}
		return false
	}
	return len(r.Skills) > 0
}

func hasExperience(r *models.Resume) bool {
	for _, e := range r.Experience {
		if nonBlank(e.Title) || nonBlank(e.Company) || nonBlank(e.Position) {
			return true
		}
	}
	return false
}

func hasEducation(r *models.Resume) bool {
	for _, e := range r.Education {
		if nonBlank(e.Degree) || nonBlank(e.Institution) || nonBlank(e.School) {
			return true
		}
	}
	return false
}

func nonBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
