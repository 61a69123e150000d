package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/frontmatter"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Code  string `json:"code,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps service errors onto HTTP statuses. Unexpected errors are
// logged with op and reported as 500.
func writeError(w http.ResponseWriter, op string, err error, attrs ...slog.Attr) {
	switch {
	case goerrors.IsCategory(err, goerrors.CategoryValidation):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: entityValidationCode})
	case errors.Is(err, apperr.ErrInvalidEntity), errors.Is(err, apperr.ErrInvalidKind):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Code: entityValidationCode})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("entity already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, frontmatter.ErrInvalidYAML):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		args := []any{slog.String("error", err.Error())}
		for _, a := range attrs {
			args = append(args, a)
		}
		slog.Error(op+" failed", args...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
