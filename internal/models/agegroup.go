package models

import (
	"strings"
	"time"
)

// Age group labels
const (
	AgeGroupChildren       = "Children (0-12)"
	AgeGroupYouth          = "Youth (13-17)"
	AgeGroupYoungAdults18  = "Young Adults (18-25)"
	AgeGroupYoungMarried18 = "Young Married (18-25)"
	AgeGroupYoungAdults26  = "Young Adults (26-39)"
	AgeGroupYoungMarried26 = "Young Married (26-39)"
	AgeGroupMiddleAdults   = "Middle Adults (40-59)"
	AgeGroupSeniorAdults   = "Senior Adults (60+)"
)

// AgeGroups lists every label in ascending age order
var AgeGroups = []string{
	AgeGroupChildren,
	AgeGroupYouth,
	AgeGroupYoungAdults18,
	AgeGroupYoungMarried18,
	AgeGroupYoungAdults26,
	AgeGroupYoungMarried26,
	AgeGroupMiddleAdults,
	AgeGroupSeniorAdults,
}

// AgeOn returns the age in whole years on the given date.
func AgeOn(birth, on time.Time) int {
	age := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		age--
	}
	return age
}

// AgeGroupFor derives the age group from a YYYY-MM-DD birth date and marital status.
// Returns "" when the birth date is empty or unparseable.
func AgeGroupFor(dateOfBirth, maritalStatus string, now time.Time) string {
	birth, err := time.Parse("2006-01-02", dateOfBirth)
	if err != nil {
		return ""
	}
	married := strings.EqualFold(strings.TrimSpace(maritalStatus), "married")

	age := AgeOn(birth, now)
	switch {
	case age < 13:
		return AgeGroupChildren
	case age <= 17:
		return AgeGroupYouth
	case age <= 25:
		if married {
			return AgeGroupYoungMarried18
		}
		return AgeGroupYoungAdults18
	case age <= 39:
		if married {
			return AgeGroupYoungMarried26
		}
		return AgeGroupYoungAdults26
	case age <= 59:
		return AgeGroupMiddleAdults
	default:
		return AgeGroupSeniorAdults
	}
}
