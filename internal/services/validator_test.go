package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-parser/internal/models"
)

func TestValidateMissingPhoneAndSections(t *testing.T) {
	report := NewCompletenessValidator().Validate(&models.Resume{
		Name:  "Jane Doe",
		Email: "j@x.com",
	})

	require.Equal(t, []string{models.FieldPhone}, report.MissingCritical)
	require.Equal(t, []string{models.FieldSkills, models.FieldExperience, models.FieldEducation}, report.MissingImportant)
	require.True(t, report.NeedsFallback)
	require.False(t, report.IsComplete)
	require.Equal(t, 33.3, report.CompletenessScore)
}

func TestValidateOnlyImportantGaps(t *testing.T) {
	report := NewCompletenessValidator().Validate(&models.Resume{
		Name:   "Jane Doe",
		Email:  "j@x.com",
		Phone:  "+1 415 555 2671",
		Skills: []string{"Go"},
		Experience: []models.Experience{
			{Title: "Engineer", Company: "Acme"},
		},
	})

	require.Empty(t, report.MissingCritical)
	require.Equal(t, []string{models.FieldEducation}, report.MissingImportant)
	require.False(t, report.NeedsFallback)
	require.True(t, report.IsComplete)
	require.Equal(t, 83.3, report.CompletenessScore)
}

func TestValidateFullRecord(t *testing.T) {
	report := NewCompletenessValidator().Validate(&models.Resume{
		Name:            "Jane Doe",
		Email:           "j@x.com",
		Phone:           "+1 415 555 2671",
		SkillCategories: map[string][]string{"Languages": {"Go"}},
		Experience:      []models.Experience{{Position: "Engineer"}},
		Education:       []models.Education{{School: "MIT"}},
	})

	require.Empty(t, report.MissingFields())
	require.Equal(t, 100.0, report.CompletenessScore)
}

func TestValidateBlankValuesCountAsMissing(t *testing.T) {
	report := NewCompletenessValidator().Validate(&models.Resume{
		Name:            "  ",
		SkillCategories: map[string][]string{"Languages": {}},
		Skills:          []string{"Go"},
		Experience:      []models.Experience{{Dates: "2020"}},
	})

	require.Equal(t, []string{models.FieldName, models.FieldEmail, models.FieldPhone}, report.MissingCritical)
	require.Contains(t, report.MissingImportant, models.FieldSkills)
	require.Contains(t, report.MissingImportant, models.FieldExperience)
	require.Equal(t, 0.0, report.CompletenessScore)
}

func TestValidateNilRecord(t *testing.T) {
	report := NewCompletenessValidator().Validate(nil)

	require.Len(t, report.MissingFields(), 6)
	require.True(t, report.NeedsFallback)
}
