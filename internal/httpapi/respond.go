package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"tasklane.org/internal/accounts"
	"tasklane.org/internal/obs"
	"tasklane.org/internal/todos"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := obs.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (a *API) handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, accounts.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrConflict):
		writeError(w, r, http.StatusConflict, "username or email already taken")
	case errors.Is(err, accounts.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "account not found")
	default:
		a.logger.ErrorContext(r.Context(), "account operation failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) handleTodoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, todos.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, todos.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "todo not found")
	case errors.Is(err, todos.ErrUnknownOwner):
		a.unauthorized(w, r)
	default:
		a.logger.ErrorContext(r.Context(), "todo operation failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
