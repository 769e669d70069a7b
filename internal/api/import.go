package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jpcc/flock/internal/importer"
	"github.com/jpcc/flock/internal/models"
	"github.com/jpcc/flock/internal/spreadsheet"
)

type importResponse struct {
	Message  string                 `json:"message"`
	Imported int                    `json:"imported"`
	Failed   int                    `json:"failed"`
	Failures []models.ImportFailure `json:"failures"`
	BatchID  string                 `json:"batch_id"`
	DryRun   bool                   `json:"dry_run"`
}

// handleImport handles POST /api/import. The workbook is the multipart
// field "file"; dry_run=true validates without writing members.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "expected multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	dryRun, _ := strconv.ParseBool(r.FormValue("dry_run"))
	res, err := s.importer.Import(r.Context(), file, importer.Options{
		DryRun:   dryRun,
		FileName: header.Filename,
		UserID:   getUserFromContext(r.Context()).UserID,
	})
	if err != nil {
		if errors.Is(err, spreadsheet.ErrEmptyWorkbook) {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Excel file is empty")
			return
		}
		if res == nil {
			logFor(r.Context()).Warn("unreadable workbook", "file", header.Filename, "err", err)
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "could not read workbook: "+err.Error())
			return
		}
		writeStoreError(w, r, err, "record import")
		return
	}
	if !res.DryRun {
		s.metrics.RecordImport(int64(res.Imported), int64(res.Failed()))
	}

	failures := res.Failures
	if failures == nil {
		failures = []models.ImportFailure{}
	}
	writeJSON(w, http.StatusOK, importResponse{
		Message:  fmt.Sprintf("Import completed: %d imported, %d failed", res.Imported, res.Failed()),
		Imported: res.Imported,
		Failed:   res.Failed(),
		Failures: failures,
		BatchID:  res.BatchID,
		DryRun:   res.DryRun,
	})
}

// handleImportBatches handles GET /api/import/batches?limit=.
func (s *Server) handleImportBatches(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	batches, err := s.store.ListImportBatches(r.Context(), limit)
	if err != nil {
		writeStoreError(w, r, err, "list import batches")
		return
	}
	if batches == nil {
		batches = []models.ImportBatch{}
	}
	writeJSON(w, http.StatusOK, batches)
}
