package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/normalize"
)

var memberColumns = []string{
	"m.member_id", "m.first_name", "m.last_name", "m.marital_status", "m.date_of_birth",
	"m.gender", "m.contact_number", "m.prev_church_attendee", "m.address", "m.age_group",
	"m.prev_church", "m.invited_by", "m.date_attended", "m.attending_cell_group",
	"m.cell_leader_name", "m.church_ministry", "m.consolidation", "m.reason",
	"m.water_baptized", "m.willing_training", "m.member_status", "m.photo_url",
	"m.created_at", "m.updated_at",
}

// memberRow adds the raw ministry column, which Member exposes as a list.
type memberRow struct {
	models.Member
	Ministry string `db:"church_ministry"`
}

func (r *memberRow) toMember() *models.Member {
	m := r.Member
	m.ChurchMinistry = normalize.SplitMinistries(r.Ministry)
	return &m
}

// prepareMember trims and validates input and fills derived fields.
func prepareMember(in *models.MemberInput, now time.Time) error {
	in.FirstName = normalize.CleanText(in.FirstName)
	if in.FirstName == "" {
		return invalid("first_name", "Name is required")
	}
	in.LastName = normalize.CleanText(in.LastName)
	in.MaritalStatus = strings.TrimSpace(in.MaritalStatus)
	in.Gender = strings.TrimSpace(in.Gender)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)
	in.Address = strings.TrimSpace(in.Address)
	in.PrevChurch = strings.TrimSpace(in.PrevChurch)
	in.InvitedBy = strings.TrimSpace(in.InvitedBy)
	in.CellLeaderName = strings.TrimSpace(in.CellLeaderName)
	in.Consolidation = strings.TrimSpace(in.Consolidation)
	in.Reason = strings.TrimSpace(in.Reason)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)

	var err error
	if in.DateOfBirth, err = normalize.OptionalDate(in.DateOfBirth); err != nil {
		return invalid("date_of_birth", err.Error())
	}
	if in.DateAttended, err = normalize.OptionalDate(in.DateAttended); err != nil {
		return invalid("date_attended", err.Error())
	}

	in.AgeGroup = strings.TrimSpace(in.AgeGroup)
	if in.AgeGroup == "" {
		in.AgeGroup = models.AgeGroupFor(in.DateOfBirth, in.MaritalStatus, now)
	}

	switch s := strings.TrimSpace(in.MemberStatus); {
	case s == "":
		in.MemberStatus = models.MemberActive
	case strings.EqualFold(s, models.MemberActive), strings.EqualFold(s, models.MemberInactive):
		in.MemberStatus = strings.ToLower(s)
	default:
		in.MemberStatus = s
	}

	if in.Trainings != nil {
		in.Trainings = normalize.DedupeTrainings(in.Trainings)
		for i := range in.Trainings {
			if y := in.Trainings[i].Year; y != nil && (*y < 1900 || *y > now.Year()+1) {
				return invalid("spiritual_trainings", fmt.Sprintf("invalid year %d for %s", *y, in.Trainings[i].TrainingType))
			}
		}
		if in.Trainings == nil {
			in.Trainings = []models.SpiritualTraining{}
		}
	}
	if in.Households != nil {
		in.Households = normalize.CleanHouseholds(in.Households)
		if in.Households == nil {
			in.Households = []models.HouseholdMember{}
		}
	}
	return nil
}

func memberValues(in *models.MemberInput) map[string]any {
	return map[string]any{
		"first_name":           in.FirstName,
		"last_name":            in.LastName,
		"marital_status":       in.MaritalStatus,
		"date_of_birth":        in.DateOfBirth,
		"gender":               in.Gender,
		"contact_number":       in.ContactNumber,
		"prev_church_attendee": in.PrevChurchAttendee,
		"address":              in.Address,
		"age_group":            in.AgeGroup,
		"prev_church":          in.PrevChurch,
		"invited_by":           in.InvitedBy,
		"date_attended":        in.DateAttended,
		"attending_cell_group": in.AttendingCellGroup,
		"cell_leader_name":     in.CellLeaderName,
		"church_ministry":      normalize.JoinMinistries(in.ChurchMinistry),
		"consolidation":        in.Consolidation,
		"reason":               in.Reason,
		"water_baptized":       in.WaterBaptized,
		"willing_training":     in.WillingTraining,
		"member_status":        in.MemberStatus,
		"photo_url":            in.PhotoURL,
	}
}

// CreateMember inserts a member with its trainings and households in one transaction.
func (db *DB) CreateMember(ctx context.Context, in models.MemberInput) (*models.Member, error) {
	now := db.now()
	if err := prepareMember(&in, now); err != nil {
		return nil, err
	}

	vals := memberValues(&in)
	vals["created_at"] = now
	vals["updated_at"] = now

	var m *models.Member
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := db.sb.Insert("members").SetMap(vals).Suffix("RETURNING member_id").ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		var id int64
		if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		if err := db.insertTrainings(ctx, tx, id, in.Trainings); err != nil {
			return err
		}
		if err := db.insertHouseholds(ctx, tx, id, in.Households); err != nil {
			return err
		}
		m, err = db.getMember(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetMember returns the member with its child lists, or nil if not found.
func (db *DB) GetMember(ctx context.Context, id int64) (*models.Member, error) {
	return db.getMember(ctx, db.conn, id)
}

func (db *DB) getMember(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Member, error) {
	query, args, err := db.sb.Select(memberColumns...).From("members m").Where(sq.Eq{"m.member_id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get member: %w", err)
	}
	var row memberRow
	err = sqlx.GetContext(ctx, q, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	members := []*models.Member{row.toMember()}
	if err := db.loadChildren(ctx, q, members); err != nil {
		return nil, err
	}
	return members[0], nil
}

// ListMembers returns members matching f, ordered by last name, first name and id.
func (db *DB) ListMembers(ctx context.Context, f MemberFilter) ([]*models.Member, error) {
	q := f.apply(db.sb.Select(memberColumns...).From("members m"))
	q = f.page(q.OrderBy("LOWER(m.last_name)", "LOWER(m.first_name)", "m.member_id"))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list members: %w", err)
	}
	var rows []memberRow
	if err := sqlx.SelectContext(ctx, db.conn, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]*models.Member, 0, len(rows))
	for i := range rows {
		members = append(members, rows[i].toMember())
	}
	if err := db.loadChildren(ctx, db.conn, members); err != nil {
		return nil, err
	}
	return members, nil
}

// CountMembers returns how many members match f, ignoring pagination.
func (db *DB) CountMembers(ctx context.Context, f MemberFilter) (int, error) {
	query, args, err := f.apply(db.sb.Select("COUNT(*)").From("members m")).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count members: %w", err)
	}
	var n int
	if err := sqlx.GetContext(ctx, db.conn, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

// UpdateMember replaces the scalar fields of a member. Child lists are replaced
// only when non-nil in the input.
func (db *DB) UpdateMember(ctx context.Context, id int64, in models.MemberInput) (*models.Member, error) {
	now := db.now()
	if err := prepareMember(&in, now); err != nil {
		return nil, err
	}

	vals := memberValues(&in)
	vals["updated_at"] = now

	var m *models.Member
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := db.sb.Update("members").SetMap(vals).Where(sq.Eq{"member_id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update member: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if in.Trainings != nil {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM spiritual_trainings WHERE member_id = ?`), id); err != nil {
				return fmt.Errorf("clear trainings: %w", err)
			}
			if err := db.insertTrainings(ctx, tx, id, in.Trainings); err != nil {
				return err
			}
		}
		if in.Households != nil {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM household_members WHERE member_id = ?`), id); err != nil {
				return fmt.Errorf("clear households: %w", err)
			}
			if err := db.insertHouseholds(ctx, tx, id, in.Households); err != nil {
				return err
			}
		}

		m, err = db.getMember(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMember removes a member together with its children and attendance marks.
func (db *DB) DeleteMember(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{"attendance", "spiritual_trainings", "household_members"} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE member_id = ?`), id); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM members WHERE member_id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete member: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListRoster returns the compact member list used for attendance marking.
func (db *DB) ListRoster(ctx context.Context, f MemberFilter) ([]models.RosterEntry, error) {
	q := db.sb.Select(
		"m.member_id",
		"TRIM(m.first_name || ' ' || m.last_name) AS full_name",
		"m.age_group",
		"m.member_status",
	).From("members m")
	q = f.page(f.apply(q).OrderBy("LOWER(m.first_name)", "LOWER(m.last_name)", "m.member_id"))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build roster: %w", err)
	}
	roster := []models.RosterEntry{}
	if err := sqlx.SelectContext(ctx, db.conn, &roster, query, args...); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}

func (db *DB) insertTrainings(ctx context.Context, tx *sqlx.Tx, memberID int64, trainings []models.SpiritualTraining) error {
	for part := range slices.Chunk(trainings, db.rowsPerStatement(3)) {
		ins := db.sb.Insert("spiritual_trainings").Columns("member_id", "training_type", "year")
		for _, t := range part {
			ins = ins.Values(memberID, t.TrainingType, t.Year)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("build insert trainings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert trainings: %w", err)
		}
	}
	return nil
}

func (db *DB) insertHouseholds(ctx context.Context, tx *sqlx.Tx, memberID int64, households []models.HouseholdMember) error {
	for part := range slices.Chunk(households, db.rowsPerStatement(4)) {
		ins := db.sb.Insert("household_members").Columns("member_id", "name", "relationship", "date_of_birth")
		for _, h := range part {
			ins = ins.Values(memberID, h.Name, h.Relationship, h.DateOfBirth)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("build insert households: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert households: %w", err)
		}
	}
	return nil
}

// loadChildren fills trainings and households for members with one query per
// table and id chunk.
func (db *DB) loadChildren(ctx context.Context, q sqlx.QueryerContext, members []*models.Member) error {
	if len(members) == 0 {
		return nil
	}
	ids := make([]int64, len(members))
	byID := make(map[int64]*models.Member, len(members))
	for i, m := range members {
		ids[i] = m.ID
		byID[m.ID] = m
		m.Trainings = []models.SpiritualTraining{}
		m.Households = []models.HouseholdMember{}
	}

	for part := range slices.Chunk(ids, db.maxParams) {
		query, args, err := db.sb.Select("id", "member_id", "training_type", "year").
			From("spiritual_trainings").Where(sq.Eq{"member_id": part}).OrderBy("id").ToSql()
		if err != nil {
			return fmt.Errorf("build load trainings: %w", err)
		}
		var trainings []models.SpiritualTraining
		if err := sqlx.SelectContext(ctx, q, &trainings, query, args...); err != nil {
			return fmt.Errorf("load trainings: %w", err)
		}
		for _, t := range trainings {
			m := byID[t.MemberID]
			m.Trainings = append(m.Trainings, t)
		}

		query, args, err = db.sb.Select("id", "member_id", "name", "relationship", "date_of_birth").
			From("household_members").Where(sq.Eq{"member_id": part}).OrderBy("id").ToSql()
		if err != nil {
			return fmt.Errorf("build load households: %w", err)
		}
		var households []models.HouseholdMember
		if err := sqlx.SelectContext(ctx, q, &households, query, args...); err != nil {
			return fmt.Errorf("load households: %w", err)
		}
		for _, h := range households {
			m := byID[h.MemberID]
			m.Households = append(m.Households, h)
		}
	}

	for _, m := range members {
		if len(m.Trainings) > 0 {
			m.Trainings = normalize.DedupeTrainings(m.Trainings)
		}
	}
	return nil
}
