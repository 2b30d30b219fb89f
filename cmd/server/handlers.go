package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

// multipartOverhead is the allowance for form boundaries and headers on top of the file limit.
const multipartOverhead = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports 503 while the parquet engine or a storage backend is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			zap.S().Warnw("readiness check failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleGenerate handles POST /api/v1/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var params datamimic.GenerateParams
	if err := readJSONBody(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}

	result, err := s.manager.Generate(r.Context(), params)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, result)
}

// handleListSchemas handles GET /api/v1/schemas
func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"schemas": s.manager.ListSchemas(r.Context())})
}

// handleSchemaColumns handles GET /api/v1/schemas/{name}/columns
func (s *Server) handleSchemaColumns(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	columns, err := s.manager.SchemaColumns(r.Context(), name)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"schema": name, "columns": columns})
}

// handleSchemaDocument handles GET /api/v1/schemas/{name}/document
func (s *Server) handleSchemaDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.manager.SchemaDocument(r.Context(), r.PathValue("name"))
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, doc)
}

// handleLocalities handles GET /api/v1/localities
func (s *Server) handleLocalities(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"localities": datamimic.SupportedLocalities(),
		"default":    s.config.Generation.DefaultLocality,
	})
}

// handleUpload handles POST /api/v1/datasets with a multipart "file" field. The handle in
// the session cookie, if any, is superseded by the new upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Upload.MaxContentLength+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeManagerError(w, r, datamimic.NewContentTooLargeError(s.config.Upload.MaxContentLength))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart body: %v", err))
		return
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeManagerError(w, r, datamimic.NewMissingParameterError(uploadField))
		return
	}
	defer file.Close()

	req := datamimic.UploadRequest{FileName: header.Filename, Content: file}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		req.Supersedes = datamimic.DatasetHandle(cookie.Value)
	}

	result, err := s.manager.Upload(r.Context(), req)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    result.Handle.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, http.StatusCreated, result)
}

// handlePreview handles GET /api/v1/datasets/{handle}/preview?limit=N
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	preview, err := s.manager.Preview(r.Context(), handleOf(r), limit)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, preview)
}

// handleSummary handles GET /api/v1/datasets/{handle}/summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.manager.Summary(r.Context(), handleOf(r))
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, summary)
}

// handleAction handles POST /api/v1/datasets/{handle}/actions
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req datamimic.ActionRequest
	if err := readJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return
	}

	result, err := s.manager.Apply(r.Context(), handleOf(r), req)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

// handleDownload handles GET /api/v1/datasets/{handle}/download?format=csv|json|xlsx|parquet
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	download, err := s.manager.Download(r.Context(), handleOf(r), format)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(download.Body); err != nil {
		zap.S().Warnw("failed to write download", "handle", handleOf(r), "err", err)
	}
}

// handleExport handles POST /api/v1/datasets/{handle}/export?format=...
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormat(r)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}

	result, err := s.manager.Export(r.Context(), handleOf(r), format)
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, result)
}

// handleDelete handles DELETE /api/v1/datasets/{handle}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	handle := handleOf(r)
	if err := s.manager.Delete(r.Context(), handle); err != nil {
		writeManagerError(w, r, err)
		return
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value == handle.String() {
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Path: "/", MaxAge: -1})
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUsage handles GET /api/v1/usage
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.manager.Usage(r.Context())
	if err != nil {
		writeManagerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, usage)
}

func handleOf(r *http.Request) datamimic.DatasetHandle {
	return datamimic.DatasetHandle(r.PathValue("handle"))
}
