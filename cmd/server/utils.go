package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
)

const (
	// sessionCookie carries the handle of the caller's most recent upload.
	sessionCookie = "datamimic_dataset"
	uploadField   = "file"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// APIResponse is the standard error response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Field     string      `json:"field,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeManagerError maps a manager error onto a status code and response body.
func writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	resp := APIResponse{
		Success:   false,
		Error:     err.Error(),
		RequestID: requestID(r.Context()),
	}
	var de *datamimic.DatamimicError
	if errors.As(err, &de) {
		resp.Error = de.Message
		resp.Code = de.Code
		resp.Field = de.Field
	}
	if status >= http.StatusInternalServerError {
		zap.S().Errorw("request failed", "path", r.URL.Path, "requestID", resp.RequestID, "err", err)
	}
	writeJSON(w, status, resp)
}

// statusForError maps error types to HTTP status codes.
func statusForError(err error) int {
	var de *datamimic.DatamimicError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Type {
	case datamimic.ErrorTypeValidation:
		return http.StatusBadRequest
	case datamimic.ErrorTypeNotFound:
		return http.StatusNotFound
	case datamimic.ErrorTypeTooLarge:
		return http.StatusRequestEntityTooLarge
	case datamimic.ErrorTypeStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) error {
	return writeJSON(w, statusCode, data)
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseLimit reads the preview row limit. Missing or non-positive values select the default.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	return limit, nil
}

// parseFormat reads the download format, defaulting to csv.
func parseFormat(r *http.Request) (datamimic.Format, error) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		return datamimic.FormatCSV, nil
	}
	return datamimic.ParseFormat(raw)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware propagates or assigns an X-Request-ID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recoveryMiddleware turns handler panics into a 500 response.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zap.S().Errorw("panic serving request", "path", r.URL.Path, "panic", rec)
				writeJSON(w, http.StatusInternalServerError, APIResponse{
					Success:   false,
					Error:     "internal server error",
					RequestID: requestID(r.Context()),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func chainMiddleware(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
