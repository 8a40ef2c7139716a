package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ArCaneSec/apidock/internal/apidoc"
	"github.com/ArCaneSec/apidock/internal/export"
)

const maxBody = 1 << 20

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type DataResponse struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, DataResponse{Data: data})
}

func writeCreated(w http.ResponseWriter, id uint) {
	writeJSON(w, http.StatusCreated, DataResponse{Data: map[string]uint{"id": id}})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, DataResponse{Data: map[string]string{"message": "ok"}})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: APIError{Code: code, Message: message}})
}

// fail maps an error onto the response envelope. Failures the client cannot
// act on are logged in full and answered with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "op", op, "error", err, "path", r.URL.Path)
		msg = "operation failed"
	}
	writeError(w, status, code, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apidoc.ErrInvalidParameter), errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, apidoc.ErrProjectNotFound):
		return http.StatusNotFound, "project_not_found"
	case errors.Is(err, apidoc.ErrGroupNotFound):
		return http.StatusNotFound, "group_not_found"
	case errors.Is(err, apidoc.ErrAPINotFound):
		return http.StatusNotFound, "api_not_found"
	case errors.Is(err, apidoc.ErrHistoryNotFound):
		return http.StatusNotFound, "history_not_found"
	case errors.Is(err, export.ErrNoSuchFile):
		return http.StatusNotFound, "file_not_found"
	case errors.Is(err, apidoc.ErrNameConflict):
		return http.StatusConflict, "name_conflict"
	}
	return http.StatusInternalServerError, "operation_failed"
}

// decode reads a JSON body into v. Identifier errors keep their own
// message; anything else is reported as a malformed body.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, apidoc.ErrInvalidParameter) {
			return err
		}
		return fmt.Errorf("%w: malformed JSON body: %v", apidoc.ErrInvalidParameter, err)
	}
	return nil
}

func queryID(r *http.Request, key string) (uint, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, fmt.Errorf("%w: %s is required", apidoc.ErrInvalidParameter, key)
	}
	return apidoc.ParseID(v)
}

func optionalQueryID(r *http.Request, key string) (uint, error) {
	if r.URL.Query().Get(key) == "" {
		return 0, nil
	}
	return queryID(r, key)
}

// queryInt reads an optional non-negative integer, def when absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apidoc.ErrInvalidParameter, key)
	}
	return n, nil
}
