package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDates(t *testing.T) {
	n := NewTextNormalizer(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"full month", "January 2020", "Jan 2020"},
		{"full month with comma", "September, 2018", "Sep 2018"},
		{"numeric month", "03/2021", "Mar 2021"},
		{"numeric month with dash", "11-2019", "Nov 2019"},
		{"open range", "2019 - current", "2019 – Present"},
		{"range with to", "Jan 2020 to present", "Jan 2020 to Present"},
		{"range", "January 2020 - March 2021", "Jan 2020 – Mar 2021"},
		{"em dash", "2018 — 2020", "2018 – 2020"},
		{"current outside range", "My current role", "My current role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, n.Normalize(tt.input))
		})
	}
}

func TestNormalizeBullets(t *testing.T) {
	n := NewTextNormalizer(nil)

	for _, input := range []string{
		"• Led a team of 5",
		"- Led a team of 5",
		"▪ Led a team of 5",
		"* Led a team of 5",
		"  ●   Led a team of 5",
		"1) Led a team of 5",
	} {
		t.Run(input, func(t *testing.T) {
			require.Equal(t, "- Led a team of 5", n.Normalize(input))
		})
	}
}

func TestNormalizeWhitespaceAndGlyphs(t *testing.T) {
	n := NewTextNormalizer(nil)

	require.Equal(t, "Jane Doe", n.Normalize("Jane\u00a0Doe"))
	require.Equal(t, "Jane Doe", n.Normalize("Jane \t  Doe"))
	require.Equal(t, "Jane Doe", n.Normalize("Jane\u200b Doe\x00"))
	require.Equal(t, "a\nb", n.Normalize("a\r\nb"))
	require.Equal(t, "a\n\n\nb", n.Normalize("a\n\n\n\n\n\nb"))
	require.Equal(t, "Contact: jane@example.com", n.Normalize("Contact: \U0001F4E7jane@example.com"))
}

func TestNormalizeJoinsHyphenatedWords(t *testing.T) {
	n := NewTextNormalizer(nil)

	require.Equal(t, "project management tools", n.Normalize("project manage-\nment tools"))
	// a capitalised continuation is a new line, not a broken word
	require.Equal(t, "Full-\nStack", n.Normalize("Full-\nStack"))
}

func TestNormalizeDropsRepeatedLines(t *testing.T) {
	n := NewTextNormalizer(nil)

	require.Equal(t, "Skills\nGo, Python", n.Normalize("Skills\nSkills\nGo, Python"))
	require.Equal(t, "a\n\nb", n.Normalize("a\n\nb"))
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewTextNormalizer(nil)

	inputs := []string{
		"",
		"JANE DOE\n• Engineer  at  Acme\n\n\n\n\nJanuary 2020 -- current\n",
		"Experience\nExperience\n03/2021 - 12/2022\n▪ Built APIs · Go\nmanage-\nment",
		"Name:\tJane\r\nPhone: +1 555 123 4567\r\n\U0001F680 Projects",
		"1) first\n(2) second\n+ third",
	}

	for _, input := range inputs {
		once := n.Normalize(input)
		require.Equal(t, once, n.Normalize(once), "input %q", input)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	require.Equal(t, "", NewTextNormalizer(nil).Normalize(""))
	require.Equal(t, "", NewTextNormalizer(nil).Normalize(" \n\t\n "))
}
