package mcp

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/a3tai/mcp-score-reader/internal/scoring"
	"github.com/a3tai/mcp-score-reader/internal/service"
)

const (
	// multipartOverhead covers boundaries and part headers on top of the
	// batch size limit.
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20
)

// Form fields of POST /process.
const (
	fieldEvaluationType = "evaluationType"
	fieldBatchFiles     = "batchFiles"
	fieldSelfFiles      = "selfFiles"
)

func (s *Server) handleProcessHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.BatchMaxSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, service.ErrBatchTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	t, err := scoring.ParseEvaluationType(r.FormValue(fieldEvaluationType))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var files []*multipart.FileHeader
	files = append(files, r.MultipartForm.File[fieldBatchFiles]...)
	files = append(files, r.MultipartForm.File[fieldSelfFiles]...)

	dir, err := os.MkdirTemp(s.svc.UploadDirectory(), "upload-*")
	if err != nil {
		s.writeServiceError(w, fmt.Errorf("create upload directory: %w", err))
		return
	}
	defer os.RemoveAll(dir)

	paths, err := saveUploads(dir, files)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	res, err := s.svc.Process(r.Context(), service.ProcessRequest{Type: t, Paths: paths})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"report_id":       res.ReportID,
		"excel_url":       s.downloadURL(res.ReportID),
		"records":         res.Records,
		"processing_time": res.Elapsed.Seconds(),
	})
}

// saveUploads writes each file to its own subdirectory of dir so that equal
// names do not collide, and returns the paths in upload order. Parts without
// a file name are skipped.
func saveUploads(dir string, files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))
	for i, fh := range files {
		name := filepath.Base(fh.Filename)
		if fh.Filename == "" || name == "." || name == string(filepath.Separator) {
			continue
		}
		slot := filepath.Join(dir, strconv.Itoa(i))
		if err := os.Mkdir(slot, 0o700); err != nil {
			return nil, fmt.Errorf("save %s: %w", name, err)
		}
		path := filepath.Join(slot, name)
		if err := saveUpload(fh, path); err != nil {
			return nil, fmt.Errorf("save %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func saveUpload(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
