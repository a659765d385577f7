package services

// Entity labels produced by the named-entity recognizer.
const (
	EntityPerson = "PERSON"
	EntityGPE    = "GPE"
	EntityOrg    = "ORG"
	EntityDate   = "DATE"
)

type Entity struct {
	Text  string
	Label string
}

// NamedEntityRecognizer is an optional capability. When unavailable,
// Entities returns nothing and callers skip the statistical steps.
type NamedEntityRecognizer interface {
	Available() bool
	Entities(text string) []Entity
}

// PhoneValidator is an optional capability that checks a phone-shaped
// candidate and returns it in international format.
type PhoneValidator interface {
	Available() bool
	Validate(candidate string) (string, bool)
}

// Capabilities are built once per process and shared by every parse.
type Capabilities struct {
	NER   NamedEntityRecognizer
	Phone PhoneValidator
}

func (c Capabilities) withDefaults() Capabilities {
	if c.NER == nil {
		c.NER = NoNER{}
	}
	if c.Phone == nil {
		c.Phone = NoPhoneValidator{}
	}
	return c
}

type NoNER struct{}

func (NoNER) Available() bool          { return false }
func (NoNER) Entities(string) []Entity { return nil }

type NoPhoneValidator struct{}

func (NoPhoneValidator) Available() bool                { return false }
func (NoPhoneValidator) Validate(string) (string, bool) { return "", false }
