package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/normalize"
)

var attendanceColumns = []string{
	"a.member_id",
	"TRIM(m.first_name || ' ' || m.last_name) AS full_name",
	"m.age_group",
	"a.date",
	"a.status",
	"a.updated_at",
}

const (
	presentSum = "COALESCE(SUM(CASE WHEN a.status = 'present' THEN 1 ELSE 0 END), 0)"
	absentSum  = "COALESCE(SUM(CASE WHEN a.status = 'absent' THEN 1 ELSE 0 END), 0)"
)

func attendanceDate(date string) (string, error) {
	d, err := normalize.ParseDate(date)
	if err != nil {
		return "", invalid("date", err.Error())
	}
	return d, nil
}

// SetAttendance records a member's status for a date, replacing any earlier mark.
func (db *DB) SetAttendance(ctx context.Context, memberID int64, date string, status models.AttendanceStatus) (*models.AttendanceRecord, error) {
	st, ok := models.NormalizeStatus(string(status))
	if !ok {
		return nil, invalid("status", "must be present or absent")
	}
	day, err := attendanceDate(date)
	if err != nil {
		return nil, err
	}

	var rec *models.AttendanceRecord
	err = db.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		err := tx.QueryRowxContext(ctx, tx.Rebind(`SELECT 1 FROM members WHERE member_id = ?`), memberID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check member: %w", err)
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO attendance (member_id, date, status, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (member_id, date) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`),
			memberID, day, string(st), db.now())
		if err != nil {
			return fmt.Errorf("upsert attendance: %w", err)
		}

		recs, err := db.attendance(ctx, tx, AttendanceFilter{DateFrom: day, DateTo: day, MemberID: memberID})
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return fmt.Errorf("upsert attendance: record missing after write")
		}
		rec = &recs[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AttendanceByDate returns every mark recorded for date, ordered by member name.
func (db *DB) AttendanceByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	day, err := attendanceDate(date)
	if err != nil {
		return nil, err
	}
	return db.attendance(ctx, db.conn, AttendanceFilter{DateFrom: day, DateTo: day})
}

// AttendanceRange returns marks matching f ordered by date then member name.
func (db *DB) AttendanceRange(ctx context.Context, f AttendanceFilter) ([]models.AttendanceRecord, error) {
	return db.attendance(ctx, db.conn, f)
}

func (db *DB) attendance(ctx context.Context, q sqlx.QueryerContext, f AttendanceFilter) ([]models.AttendanceRecord, error) {
	sel := f.apply(db.sb.Select(attendanceColumns...).From("attendance a").Join("members m ON m.member_id = a.member_id"))
	sel = sel.OrderBy("a.date", "LOWER(m.first_name)", "LOWER(m.last_name)", "a.member_id")

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}
	recs := []models.AttendanceRecord{}
	if err := sqlx.SelectContext(ctx, q, &recs, query, args...); err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	return recs, nil
}

// AttendanceSummary counts the marks recorded for date.
func (db *DB) AttendanceSummary(ctx context.Context, date string) (models.AttendanceSummary, error) {
	day, err := attendanceDate(date)
	if err != nil {
		return models.AttendanceSummary{}, err
	}
	query, args, err := db.sb.Select(
		presentSum+" AS present_count",
		absentSum+" AS absent_count",
		"COUNT(*) AS total_count",
	).From("attendance a").Where(sq.Eq{"a.date": day}).ToSql()
	if err != nil {
		return models.AttendanceSummary{}, fmt.Errorf("build summary: %w", err)
	}

	s := models.AttendanceSummary{}
	if err := sqlx.GetContext(ctx, db.conn, &s, query, args...); err != nil {
		return models.AttendanceSummary{}, fmt.Errorf("attendance summary: %w", err)
	}
	s.Date = day
	return s, nil
}

// MemberAttendanceTotals aggregates present/absent counts per member over f.
func (db *DB) MemberAttendanceTotals(ctx context.Context, f AttendanceFilter) ([]models.MemberAttendance, error) {
	sel := db.sb.Select(
		"a.member_id",
		"TRIM(m.first_name || ' ' || m.last_name) AS full_name",
		"m.age_group",
		presentSum+" AS present",
		absentSum+" AS absent",
	).From("attendance a").Join("members m ON m.member_id = a.member_id")
	sel = f.apply(sel).
		GroupBy("a.member_id", "m.first_name", "m.last_name", "m.age_group").
		OrderBy("LOWER(m.first_name)", "LOWER(m.last_name)", "a.member_id")

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build attendance totals: %w", err)
	}
	totals := []models.MemberAttendance{}
	if err := sqlx.SelectContext(ctx, db.conn, &totals, query, args...); err != nil {
		return nil, fmt.Errorf("attendance totals: %w", err)
	}
	return totals, nil
}

// DeleteAttendance removes one mark.
func (db *DB) DeleteAttendance(ctx context.Context, memberID int64, date string) error {
	day, err := attendanceDate(date)
	if err != nil {
		return err
	}
	n, err := db.exec(ctx, `DELETE FROM attendance WHERE member_id = ? AND date = ?`, memberID, day)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkUnrecordedAbsent marks every active member without a mark on date as absent.
// Returns the number of marks created.
func (db *DB) MarkUnrecordedAbsent(ctx context.Context, date string) (int, error) {
	day, err := attendanceDate(date)
	if err != nil {
		return 0, err
	}

	var created int
	err = db.withTx(ctx, func(tx *sqlx.Tx) error {
		var ids []int64
		err := tx.SelectContext(ctx, &ids, tx.Rebind(
			`SELECT m.member_id FROM members m
			 WHERE m.member_status = ?
			   AND NOT EXISTS (SELECT 1 FROM attendance a WHERE a.member_id = m.member_id AND a.date = ?)
			 ORDER BY m.member_id`), models.MemberActive, day)
		if err != nil {
			return fmt.Errorf("find unrecorded members: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		now := db.now()
		for part := range slices.Chunk(ids, db.rowsPerStatement(4)) {
			ins := db.sb.Insert("attendance").Columns("member_id", "date", "status", "updated_at")
			for _, id := range part {
				ins = ins.Values(id, day, string(models.StatusAbsent), now)
			}
			query, args, err := ins.ToSql()
			if err != nil {
				return fmt.Errorf("build absent marks: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert absent marks: %w", err)
			}
		}
		created = len(ids)
		return nil
	})
	return created, err
}
