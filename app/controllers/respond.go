package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"quill/app/models"
	"quill/app/query"
	"quill/app/repositories"
	"quill/app/services"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// Helper methods for consistent response handling

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, message string, status int) {
	sendJSON(w, status, map[string]string{"error": message})
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrValidation), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes err as JSON. Server errors get a generic message; the
// detail only goes to the log.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		sendError(w, "internal server error", status)
		return
	}
	sendError(w, err.Error(), status)
}

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return n, nil
}

// pagination reads page and pageSize. paged is false when neither is
// present, meaning the caller wants the unpaged listing.
func pagination(r *http.Request) (p query.Pagination, paged bool, err error) {
	q := r.URL.Query()
	paged = q.Has("page") || q.Has("pageSize")
	if p.Page, err = intParam(r, "page", query.DefaultPage); err != nil {
		return p, paged, err
	}
	if p.PageSize, err = intParam(r, "pageSize", query.DefaultPageSize); err != nil {
		return p, paged, err
	}
	return p, paged, p.Validate()
}
