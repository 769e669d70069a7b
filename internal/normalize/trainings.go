package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jpcc/flock/internal/models"
)

// CanonicalTraining maps spelling variants to the standard training names.
// Unknown names are returned trimmed.
func CanonicalTraining(name string) string {
	name = CleanText(name)
	key := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(name))
	switch key {
	case "lifeclass":
		return models.TrainingLifeClass
	case "sol1":
		return models.TrainingSOL1
	case "sol2":
		return models.TrainingSOL2
	case "sol3":
		return models.TrainingSOL3
	}
	return name
}

var trainingItem = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)$`)

// ParseTrainings accepts the JSON object form ({"LifeClass":true,"LifeClassYear":2021}),
// the JSON array form ([{"training_type":"SOL 1","year":2022}]) and the display form
// ("Life Class (2021), SOL 1"). Empty input yields nil.
func ParseTrainings(value string) ([]models.SpiritualTraining, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "" || value == "{}" || value == "[]" || strings.EqualFold(value, "null"):
		return nil, nil
	case strings.HasPrefix(value, "{"):
		return parseTrainingObject(value)
	case strings.HasPrefix(value, "["):
		return parseTrainingArray(value)
	}

	var out []models.SpiritualTraining
	for _, item := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		t := models.SpiritualTraining{TrainingType: item}
		if m := trainingItem.FindStringSubmatch(item); m != nil {
			t.TrainingType = m[1]
			y, _ := strconv.Atoi(m[2])
			t.Year = &y
		}
		out = append(out, t)
	}
	return DedupeTrainings(out), nil
}

func parseTrainingObject(value string) ([]models.SpiritualTraining, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(value), &obj); err != nil {
		return nil, fmt.Errorf("parse trainings: %w", err)
	}

	years := make(map[string]*int)
	var names []string
	for k, v := range obj {
		// the web form keeps its willing-to-train checkbox in the same object
		if strings.EqualFold(k, "willing_training") {
			continue
		}
		if strings.HasSuffix(strings.ToLower(k), "year") {
			years[CanonicalTraining(k[:len(k)-4])] = yearOf(v)
			continue
		}
		if truthy(v) {
			names = append(names, CanonicalTraining(k))
		}
	}

	sort.Strings(names)
	var out []models.SpiritualTraining
	for _, n := range names {
		out = append(out, models.SpiritualTraining{TrainingType: n, Year: years[n]})
	}
	return DedupeTrainings(out), nil
}

func parseTrainingArray(value string) ([]models.SpiritualTraining, error) {
	var items []any
	if err := json.Unmarshal([]byte(value), &items); err != nil {
		return nil, fmt.Errorf("parse trainings: %w", err)
	}

	var out []models.SpiritualTraining
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, models.SpiritualTraining{TrainingType: v})
		case map[string]any:
			name := firstString(v, "training_type", "trainingType", "type", "name")
			if name == "" {
				continue
			}
			out = append(out, models.SpiritualTraining{TrainingType: name, Year: yearOf(v["year"])})
		}
	}
	return DedupeTrainings(out), nil
}

// DedupeTrainings canonicalizes names, collapses duplicates (keeping any known year)
// and orders standard trainings first.
func DedupeTrainings(in []models.SpiritualTraining) []models.SpiritualTraining {
	if len(in) == 0 {
		return nil
	}
	byName := make(map[string]int)
	var out []models.SpiritualTraining
	for _, t := range in {
		t.TrainingType = CanonicalTraining(t.TrainingType)
		if t.TrainingType == "" {
			continue
		}
		if i, ok := byName[t.TrainingType]; ok {
			if out[i].Year == nil {
				out[i].Year = t.Year
			}
			continue
		}
		byName[t.TrainingType] = len(out)
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return trainingRank(out[i].TrainingType) < trainingRank(out[j].TrainingType)
	})
	return out
}

func trainingRank(name string) int {
	for i, s := range models.StandardTrainings {
		if s == name {
			return i
		}
	}
	return len(models.StandardTrainings)
}

// FormatTrainings renders the display form, e.g. "Life Class (2021), SOL 1".
func FormatTrainings(trainings []models.SpiritualTraining) string {
	parts := make([]string, 0, len(trainings))
	for _, t := range trainings {
		if t.Year != nil {
			parts = append(parts, fmt.Sprintf("%s (%d)", t.TrainingType, *t.Year))
		} else {
			parts = append(parts, t.TrainingType)
		}
	}
	return strings.Join(parts, ", ")
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		b, err := ParseBool(x)
		return err == nil && b
	}
	return false
}

func yearOf(v any) *int {
	var y int
	switch x := v.(type) {
	case float64:
		y = int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return nil
		}
		y = n
	default:
		return nil
	}
	if y <= 0 {
		return nil
	}
	return &y
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
