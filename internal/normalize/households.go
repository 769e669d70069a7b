package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jpcc/flock/internal/models"
)

var householdItem = regexp.MustCompile(`^(.*?)(?:\s+-\s+(.*?))?\s*(?:\(([^()]*)\))?$`)

// ParseHouseholds accepts a JSON array of {name, relationship, date_of_birth}
// objects or the display form "Ana - Daughter (2015-03-02); Ben - Son".
// Dates are normalized; an unreadable date is dropped rather than failing the entry.
func ParseHouseholds(value string) ([]models.HouseholdMember, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "[]" || strings.EqualFold(value, "null") {
		return nil, nil
	}
	if strings.HasPrefix(value, "[") {
		return parseHouseholdArray(value)
	}

	var out []models.HouseholdMember
	for _, item := range strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == '\n' }) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		m := householdItem.FindStringSubmatch(item)
		if m == nil || strings.TrimSpace(m[1]) == "" {
			continue
		}
		out = append(out, models.HouseholdMember{
			Name:         CleanText(m[1]),
			Relationship: CleanText(m[2]),
			DateOfBirth:  lenientDate(m[3]),
		})
	}
	return out, nil
}

func parseHouseholdArray(value string) ([]models.HouseholdMember, error) {
	var items []map[string]any
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil, fmt.Errorf("parse households: %w", err)
	}
	var out []models.HouseholdMember
	for _, item := range items {
		name := firstString(item, "name", "fullName", "full_name")
		if name == "" {
			continue
		}
		out = append(out, models.HouseholdMember{
			Name:         CleanText(name),
			Relationship: CleanText(firstString(item, "relationship", "relation")),
			DateOfBirth:  lenientDate(firstString(item, "date_of_birth", "dateOfBirth", "dob", "birthday")),
		})
	}
	return out, nil
}

// CleanHouseholds trims entries and drops those without a name.
func CleanHouseholds(in []models.HouseholdMember) []models.HouseholdMember {
	var out []models.HouseholdMember
	for _, h := range in {
		h.Name = CleanText(h.Name)
		if h.Name == "" {
			continue
		}
		h.Relationship = CleanText(h.Relationship)
		h.DateOfBirth = lenientDate(h.DateOfBirth)
		out = append(out, h)
	}
	return out
}

// FormatHouseholds renders the display form, e.g. "Ana - Daughter (2015-03-02); Ben - Son".
func FormatHouseholds(households []models.HouseholdMember) string {
	parts := make([]string, 0, len(households))
	for _, h := range households {
		s := h.Name
		if h.Relationship != "" {
			s += " - " + h.Relationship
		}
		if h.DateOfBirth != "" {
			s += " (" + h.DateOfBirth + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

func lenientDate(s string) string {
	d, err := ParseDate(s)
	if err != nil {
		return ""
	}
	return d
}
