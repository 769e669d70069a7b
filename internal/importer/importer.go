// Package importer loads member rows from an xlsx workbook into the store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/normalize"
	"github.com/jpcc/flock/internal/spreadsheet"
)

// ErrMissingName marks rows without a first name.
var ErrMissingName = errors.New("Name is required")

// Store is the subset of the store the importer writes to.
type Store interface {
	CreateMember(ctx context.Context, in models.MemberInput) (*models.Member, error)
	RecordImportBatch(ctx context.Context, b *models.ImportBatch) error
}

// Options controls one import run.
type Options struct {
	DryRun   bool   // validate rows without creating members
	FileName string // recorded on the batch
	UserID   string // recorded on the batch
}

// Result summarizes an import run.
type Result struct {
	Imported int                    `json:"imported"`
	Failures []models.ImportFailure `json:"failures"`
	BatchID  string                 `json:"batch_id"`
	DryRun   bool                   `json:"dry_run"`
}

// Failed is the number of rows that were not imported.
func (r *Result) Failed() int { return len(r.Failures) }

// Importer turns spreadsheet rows into members.
type Importer struct {
	store Store
}

// New creates an Importer writing to store.
func New(store Store) *Importer {
	return &Importer{store: store}
}

// Import reads every row of the workbook in r. A bad row is recorded as a
// failure and never stops the batch. The returned error covers unreadable
// workbooks, cancellation and batch bookkeeping; in the last two cases the
// partial Result is returned with it.
func (im *Importer) Import(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	rows, err := spreadsheet.ReadMemberRows(r)
	if err != nil {
		return nil, err
	}

	res := &Result{Failures: []models.ImportFailure{}, DryRun: opts.DryRun}
	var stopped error
	for _, row := range rows {
		if stopped = ctx.Err(); stopped != nil {
			break
		}

		in, err := MemberInput(row)
		if err == nil && !opts.DryRun {
			_, err = im.store.CreateMember(ctx, in)
		}
		if err != nil {
			slog.Debug("import row failed", "row", row.Line, "name", row.Name(), "err", err)
			res.Failures = append(res.Failures, models.ImportFailure{
				Row:   row.Line,
				Name:  row.Name(),
				Error: err.Error(),
			})
			continue
		}
		res.Imported++
	}

	batch := &models.ImportBatch{
		FileName: opts.FileName,
		Imported: res.Imported,
		Failed:   res.Failed(),
		DryRun:   opts.DryRun,
		UserID:   opts.UserID,
	}
	// members created before a cancellation stay, so the batch is still recorded
	if err := im.store.RecordImportBatch(context.WithoutCancel(ctx), batch); err != nil {
		return res, errors.Join(stopped, fmt.Errorf("record batch: %w", err))
	}
	res.BatchID = batch.ID
	if stopped != nil {
		slog.Warn("import interrupted", "file", opts.FileName, "imported", res.Imported, "failed", res.Failed(), "err", stopped)
		return res, fmt.Errorf("import interrupted after %d of %d rows: %w", res.Imported+res.Failed(), len(rows), stopped)
	}

	slog.Info("import finished", "file", opts.FileName, "imported", res.Imported, "failed", res.Failed(), "dry_run", opts.DryRun)
	return res, nil
}

// MemberInput converts one sheet row into a member, normalizing dates,
// yes/no answers, ministries, trainings and households. The store applies
// the remaining validation (required name, age group, status default).
func MemberInput(row spreadsheet.Row) (models.MemberInput, error) {
	in := models.MemberInput{
		FirstName:      row.Get(spreadsheet.KeyFirstName),
		LastName:       row.Get(spreadsheet.KeyLastName),
		Gender:         row.Get(spreadsheet.KeyGender),
		MaritalStatus:  row.Get(spreadsheet.KeyMaritalStatus),
		AgeGroup:       row.Get(spreadsheet.KeyAgeGroup),
		Address:        row.Get(spreadsheet.KeyAddress),
		ContactNumber:  row.Get(spreadsheet.KeyContactNumber),
		PrevChurch:     row.Get(spreadsheet.KeyPrevChurch),
		InvitedBy:      row.Get(spreadsheet.KeyInvitedBy),
		CellLeaderName: row.Get(spreadsheet.KeyCellLeaderName),
		ChurchMinistry: normalize.SplitMinistries(row.Get(spreadsheet.KeyChurchMinistry)),
		Consolidation:  row.Get(spreadsheet.KeyConsolidation),
		Reason:         row.Get(spreadsheet.KeyReason),
		MemberStatus:   row.Get(spreadsheet.KeyMemberStatus),
		PhotoURL:       row.Get(spreadsheet.KeyPhotoURL),
	}
	if in.FirstName == "" {
		return in, ErrMissingName
	}

	var err error
	if in.DateOfBirth, err = normalize.OptionalDate(row.Get(spreadsheet.KeyDateOfBirth)); err != nil {
		return in, fmt.Errorf("date of birth: %w", err)
	}
	if in.DateAttended, err = normalize.OptionalMonth(row.Get(spreadsheet.KeyDateAttended)); err != nil {
		return in, fmt.Errorf("date attended: %w", err)
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{spreadsheet.KeyPrevChurchAttendee, &in.PrevChurchAttendee},
		{spreadsheet.KeyAttendingCellGroup, &in.AttendingCellGroup},
		{spreadsheet.KeyWaterBaptized, &in.WaterBaptized},
		{spreadsheet.KeyWillingTraining, &in.WillingTraining},
	}
	for _, b := range bools {
		if *b.dst, err = normalize.ParseBool(row.Get(b.key)); err != nil {
			return in, fmt.Errorf("%s: %w", b.key, err)
		}
	}

	if in.Trainings, err = normalize.ParseTrainings(row.Get(spreadsheet.KeyTrainings)); err != nil {
		return in, fmt.Errorf("trainings: %w", err)
	}
	if in.Households, err = normalize.ParseHouseholds(row.Get(spreadsheet.KeyHouseholds)); err != nil {
		return in, fmt.Errorf("households: %w", err)
	}
	return in, nil
}
