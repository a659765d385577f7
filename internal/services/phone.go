package services

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

type libPhoneValidator struct {
	region string
}

// NewPhoneValidator validates numbers with libphonenumber metadata. Numbers
// without a country code are read in the default region.
func NewPhoneValidator(defaultRegion string) PhoneValidator {
	if defaultRegion == "" {
		defaultRegion = "US"
	}
	return &libPhoneValidator{region: strings.ToUpper(defaultRegion)}
}

func (v *libPhoneValidator) Available() bool { return true }

// Validate tries the candidate as a national number first, then as an
// international one with a leading "+".
func (v *libPhoneValidator) Validate(candidate string) (string, bool) {
	if num, err := phonenumbers.Parse(candidate, v.region); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.INTERNATIONAL), true
	}

	digits := digitsOnly(candidate)
	if digits == "" {
		return "", false
	}
	if num, err := phonenumbers.Parse("+"+digits, ""); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.INTERNATIONAL), true
	}
	return "", false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
