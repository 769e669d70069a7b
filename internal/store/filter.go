package store

import (
	"math"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// MemberFilter narrows member listings. Zero values mean "no filter".
type MemberFilter struct {
	Search        string `json:"search"`
	Gender        string `json:"gender"`
	MaritalStatus string `json:"marital_status"`
	AgeGroup      string `json:"age_group"`
	MemberStatus  string `json:"member_status"` // "all" disables the filter
	DateFrom      string `json:"date_from"`     // inclusive, on date_attended
	DateTo        string `json:"date_to"`       // inclusive, on date_attended
	Training      string `json:"training"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
}

func (f MemberFilter) apply(q sq.SelectBuilder) sq.SelectBuilder {
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		pat := "%" + s + "%"
		q = q.Where(sq.Or{
			sq.Like{"LOWER(m.first_name)": pat},
			sq.Like{"LOWER(m.last_name)": pat},
			sq.Like{"LOWER(m.first_name || ' ' || m.last_name)": pat},
		})
	}
	if f.Gender != "" {
		q = q.Where(sq.Eq{"m.gender": f.Gender})
	}
	if f.MaritalStatus != "" {
		q = q.Where(sq.Eq{"m.marital_status": f.MaritalStatus})
	}
	if f.AgeGroup != "" {
		q = q.Where(sq.Eq{"m.age_group": f.AgeGroup})
	}
	if f.MemberStatus != "" && !strings.EqualFold(f.MemberStatus, "all") {
		q = q.Where(sq.Eq{"m.member_status": f.MemberStatus})
	}
	if f.DateFrom != "" {
		q = q.Where(sq.And{sq.NotEq{"m.date_attended": ""}, sq.GtOrEq{"m.date_attended": f.DateFrom}})
	}
	if f.DateTo != "" {
		q = q.Where(sq.And{sq.NotEq{"m.date_attended": ""}, sq.LtOrEq{"m.date_attended": f.DateTo}})
	}
	if f.Training != "" {
		q = q.Where(sq.Expr("m.member_id IN (SELECT member_id FROM spiritual_trainings WHERE training_type = ?)", f.Training))
	}
	return q
}

func (f MemberFilter) page(q sq.SelectBuilder) sq.SelectBuilder {
	limit, offset := f.Limit, f.Offset
	if offset > 0 && limit <= 0 {
		// SQLite rejects OFFSET without LIMIT
		limit = math.MaxInt32
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}

// AttendanceFilter selects attendance records for reports.
type AttendanceFilter struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	AgeGroup string `json:"age_group"`
	MemberID int64  `json:"member_id"`
}

func (f AttendanceFilter) apply(q sq.SelectBuilder) sq.SelectBuilder {
	if f.DateFrom != "" {
		q = q.Where(sq.GtOrEq{"a.date": f.DateFrom})
	}
	if f.DateTo != "" {
		q = q.Where(sq.LtOrEq{"a.date": f.DateTo})
	}
	if f.AgeGroup != "" {
		q = q.Where(sq.Eq{"m.age_group": f.AgeGroup})
	}
	if f.MemberID != 0 {
		q = q.Where(sq.Eq{"a.member_id": f.MemberID})
	}
	return q
}
