package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

var trueWords = map[string]bool{
	"yes": true, "y": true, "true": true, "t": true, "1": true,
	"x": true, "checked": true, "✓": true, "✔": true, "on": true,
}

var falseWords = map[string]bool{
	"no": true, "n": true, "false": true, "f": true, "0": true,
	"": true, "none": true, "n/a": true, "na": true, "off": true, "-": true,
}

// ParseBool interprets yes/no style answers as found in spreadsheets and forms.
func ParseBool(input string) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if trueWords[s] {
		return true, nil
	}
	if falseWords[s] {
		return false, nil
	}
	return false, fmt.Errorf("not a yes/no value: %q", input)
}

// FormatBool renders a boolean for reports.
func FormatBool(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

var ministrySep = regexp.MustCompile(`\s*(?:,|;|\s-\s)\s*`)

// SplitMinistries splits a ministry cell into distinct, trimmed names.
func SplitMinistries(value string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range ministrySep.Split(value, -1) {
		part = strings.TrimSpace(part)
		key := strings.ToLower(part)
		if part == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, part)
	}
	return out
}

// JoinMinistries is the stored and displayed form of a ministry list.
func JoinMinistries(ministries []string) string {
	return strings.Join(SplitMinistries(strings.Join(ministries, ",")), ", ")
}

// CleanText trims surrounding whitespace and collapses internal runs of spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
