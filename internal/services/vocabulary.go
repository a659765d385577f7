package services

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/cv-parser/internal/models"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Vocabulary holds the keyword tables that drive segmentation and entity
// extraction. SectionPriority breaks ties when two sections claim a line.
type Vocabulary struct {
	SectionPriority       []models.SectionName            `yaml:"section_priority"`
	SectionSynonyms       map[models.SectionName][]string `yaml:"section_synonyms"`
	InstitutionKeywords   []string                        `yaml:"institution_keywords"`
	DegreeKeywords        []string                        `yaml:"degree_keywords"`
	TitleKeywords         []string                        `yaml:"title_keywords"`
	CertificationKeywords []string                        `yaml:"certification_keywords"`
	Skills                []string                        `yaml:"skills"`
	CaseSensitiveSkills   []string                        `yaml:"case_sensitive_skills"`
	DisplayNames          map[string]string               `yaml:"display_names"`
}

// DefaultVocabulary returns the embedded tables.
func DefaultVocabulary() *Vocabulary {
	v, err := parseVocabulary(defaultVocabulary, nil)
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary is invalid: %v", err))
	}
	return v
}

// LoadVocabulary reads an override file on top of the embedded tables.
// An empty path yields the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	base := DefaultVocabulary()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	return parseVocabulary(data, base)
}

func parseVocabulary(data []byte, base *Vocabulary) (*Vocabulary, error) {
	v := &Vocabulary{}
	if base != nil {
		*v = *base
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vocabulary) validate() error {
	seen := make(map[models.SectionName]bool, len(v.SectionPriority))
	for _, name := range v.SectionPriority {
		if len(v.SectionSynonyms[name]) == 0 {
			return fmt.Errorf("section %q has no synonyms", name)
		}
		seen[name] = true
	}
	for name := range v.SectionSynonyms {
		if !seen[name] {
			return fmt.Errorf("section %q is missing from section_priority", name)
		}
	}
	return nil
}
