package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/normalize"
	"github.com/jpcc/flock/internal/store"
)

// memberRequest is the body of POST and PUT /api/members. The web client
// sends trainings as its checkbox object or as display text, ministries as
// a comma list, households with camelCase keys, and booleans in whatever
// shape the form held; the raw fields below absorb all of those.
type memberRequest struct {
	models.MemberInput

	ChurchMinistry json.RawMessage `json:"church_ministry"`
	Trainings      json.RawMessage `json:"spiritual_trainings"`
	TrainingsText  json.RawMessage `json:"trainings"`
	Households     json.RawMessage `json:"household_members"`
	HouseholdsText json.RawMessage `json:"households"`

	PrevChurchAttendee json.RawMessage `json:"prev_church_attendee"`
	AttendingCellGroup json.RawMessage `json:"attending_cell_group"`
	WaterBaptized      json.RawMessage `json:"water_baptized"`
	WillingTraining    json.RawMessage `json:"willing_training"`
}

// input converts the request into a store input. Child lists stay nil
// when neither their structured nor their display field was sent.
func (req *memberRequest) input() (models.MemberInput, error) {
	in := req.MemberInput
	var err error

	if in.ChurchMinistry, err = decodeMinistries(req.ChurchMinistry); err != nil {
		return in, &store.ValidationError{Field: "church_ministry", Msg: err.Error()}
	}

	trainings := req.Trainings
	if isNullJSON(trainings) {
		trainings = req.TrainingsText
	}
	if in.Trainings, err = decodeTrainings(trainings); err != nil {
		return in, &store.ValidationError{Field: "spiritual_trainings", Msg: err.Error()}
	}

	households := req.Households
	if isNullJSON(households) {
		households = req.HouseholdsText
	}
	if in.Households, err = decodeHouseholds(households); err != nil {
		return in, &store.ValidationError{Field: "household_members", Msg: err.Error()}
	}

	flags := []struct {
		field string
		raw   json.RawMessage
		dst   *bool
	}{
		{"prev_church_attendee", req.PrevChurchAttendee, &in.PrevChurchAttendee},
		{"attending_cell_group", req.AttendingCellGroup, &in.AttendingCellGroup},
		{"water_baptized", req.WaterBaptized, &in.WaterBaptized},
		{"willing_training", req.WillingTraining, &in.WillingTraining},
	}
	for _, f := range flags {
		if *f.dst, err = decodeFlag(f.raw); err != nil {
			return in, &store.ValidationError{Field: f.field, Msg: err.Error()}
		}
	}
	return in, nil
}

func isNullJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// jsonText returns a JSON string's value, or the raw JSON text for any other
// value. Both normalize parsers take either form.
func jsonText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(raw), nil
}

func decodeMinistries(raw json.RawMessage) ([]string, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("want a list of names or a comma separated string")
		}
		return normalize.SplitMinistries(strings.Join(list, ",")), nil
	}
	text, err := jsonText(raw)
	if err != nil {
		return nil, err
	}
	return normalize.SplitMinistries(text), nil
}

func decodeTrainings(raw json.RawMessage) ([]models.SpiritualTraining, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	text, err := jsonText(raw)
	if err != nil {
		return nil, err
	}
	ts, err := normalize.ParseTrainings(text)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		ts = []models.SpiritualTraining{}
	}
	return ts, nil
}

func decodeHouseholds(raw json.RawMessage) ([]models.HouseholdMember, error) {
	if isNullJSON(raw) {
		return nil, nil
	}
	text, err := jsonText(raw)
	if err != nil {
		return nil, err
	}
	hs, err := normalize.ParseHouseholds(text)
	if err != nil {
		return nil, err
	}
	if hs == nil {
		hs = []models.HouseholdMember{}
	}
	return hs, nil
}

// decodeFlag accepts JSON booleans, 0/1 and the spreadsheet words (Yes, No, ...).
func decodeFlag(raw json.RawMessage) (bool, error) {
	if isNullJSON(raw) {
		return false, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case float64:
		return x != 0, nil
	case string:
		return normalize.ParseBool(x)
	}
	return false, fmt.Errorf("want true or false")
}

// memberResponse adds the display forms the web client lists and edits from.
type memberResponse struct {
	*models.Member
	TrainingsText  string `json:"trainings"`
	HouseholdsText string `json:"households"`
}

func newMemberResponse(m *models.Member) memberResponse {
	return memberResponse{
		Member:         m,
		TrainingsText:  normalize.FormatTrainings(m.Trainings),
		HouseholdsText: normalize.FormatHouseholds(m.Households),
	}
}

func newMemberResponses(members []*models.Member) []memberResponse {
	out := make([]memberResponse, len(members))
	for i, m := range members {
		out[i] = newMemberResponse(m)
	}
	return out
}
