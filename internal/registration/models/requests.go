package models

import (
	"regexp"
	"strings"
	"time"

	dErrors "gemnet/pkg/domain-errors"
)

// PersonalInfo is the payload for the first registration step. Field names
// mirror the gateway's register contract.
type PersonalInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
	DateOfBirth string `json:"dateOfBirth"` // 2006-01-02
	NICNumber   string `json:"nicNumber"`
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+94[0-9]{9}$`)
	// Sri Lankan NIC: old format is 9 digits plus a V/X suffix, new format
	// is 12 digits.
	nicOldPattern = regexp.MustCompile(`^[0-9]{9}[vVxX]$`)
	nicNewPattern = regexp.MustCompile(`^[0-9]{12}$`)

	hasUpper = regexp.MustCompile(`[A-Z]`)
	hasLower = regexp.MustCompile(`[a-z]`)
	hasDigit = regexp.MustCompile(`[0-9]`)
)

const (
	minAge = 18
	maxAge = 100
)

// Validate checks all fields client-side. It runs before any network call so
// a malformed submission never leaves the machine.
func (p PersonalInfo) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return dErrors.New(dErrors.CodeValidation, "first name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return dErrors.New(dErrors.CodeValidation, "last name is required")
	}
	if strings.TrimSpace(p.Address) == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if !emailPattern.MatchString(p.Email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	if err := validatePassword(p.Password); err != nil {
		return err
	}
	if !phonePattern.MatchString(p.PhoneNumber) {
		return dErrors.New(dErrors.CodeValidation, "invalid phone number, expected +94xxxxxxxxx")
	}
	if !nicOldPattern.MatchString(p.NICNumber) && !nicNewPattern.MatchString(p.NICNumber) {
		return dErrors.New(dErrors.CodeValidation, "invalid NIC number (123456789V or 123456789012)")
	}
	return validateDateOfBirth(p.DateOfBirth)
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if !hasUpper.MatchString(password) || !hasLower.MatchString(password) || !hasDigit.MatchString(password) {
		return dErrors.New(dErrors.CodeValidation, "password must contain upper, lower, and digit")
	}
	return nil
}

func validateDateOfBirth(dob string) error {
	birth, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid date of birth, expected YYYY-MM-DD")
	}

	age := ageAt(birth, time.Now())
	if age < minAge {
		return dErrors.New(dErrors.CodeValidation, "you must be at least 18 years old")
	}
	if age > maxAge {
		return dErrors.New(dErrors.CodeValidation, "invalid date of birth")
	}
	return nil
}

// ageAt computes whole years between birth and now, accounting for whether
// the birthday has passed this year.
func ageAt(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	anniversary := birth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
