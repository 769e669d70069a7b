package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// photoTypes maps accepted sniffed content types to file extensions.
var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// handleUpload handles POST /api/upload. The photo is the multipart field
// "photo" (or "file"); the response carries the URL to store on the member.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.UploadMaxBytes+1<<20)
	if err := r.ParseMultipartForm(s.config.UploadMaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "expected multipart form")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	if header.Size > s.config.UploadMaxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "file too large")
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "could not read file")
		return
	}
	ext, ok := photoTypes[http.DetectContentType(head[:n])]
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, ErrCodeUnsupported, "Only image files are allowed")
		return
	}

	if err := os.MkdirAll(s.config.UploadDir, 0o755); err != nil {
		logFor(r.Context()).Error("create upload dir", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to store file")
		return
	}
	name := uuid.NewString() + ext
	path := filepath.Join(s.config.UploadDir, name)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		logFor(r.Context()).Error("create upload", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to store file")
		return
	}
	_, err = io.Copy(out, io.MultiReader(strings.NewReader(string(head[:n])), file))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		logFor(r.Context()).Error("write upload", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to store file")
		return
	}

	s.metrics.RecordUpload()
	logFor(r.Context()).Info("photo uploaded", "file", name, "size", header.Size)
	writeJSON(w, http.StatusCreated, map[string]string{"fileUrl": "/uploads/" + name})
}

// handleServeUpload handles GET /uploads/{name}.
func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(chi.URLParam(r, "name"))
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
		return
	}
	path := filepath.Join(s.config.UploadDir, name)
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "not found")
		return
	}
	http.ServeFile(w, r, path)
}
