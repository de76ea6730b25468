package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jjudge-oj/accounts/internal/services"
)

const (
	msgMissingCredentials = "Username and password are required"
	msgUsernameTaken      = "Username already exists"
	msgEmailTaken         = "Email already registered"
	msgInvalidCredentials = "Invalid username or password"
	msgInvalidRequest     = "invalid request"
	msgInternal           = "internal server error"

	maxRequestBytes = 1 << 20
)

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeServiceError maps service error kinds to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError
	var conflictErr *services.ConflictError

	switch {
	case errors.As(err, &validationErr):
		if validationErr.Reason != "" {
			writeError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		writeError(w, http.StatusBadRequest, msgMissingCredentials)
	case errors.As(err, &conflictErr):
		if conflictErr.Field == "email" {
			writeError(w, http.StatusConflict, msgEmailTaken)
			return
		}
		writeError(w, http.StatusConflict, msgUsernameTaken)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
	default:
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
