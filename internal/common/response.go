package common

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Message: message})
}

// RespondWithDomainError writes err using the error taxonomy. Unexpected failures are
// logged in full and reported to the client with a generic message only.
func RespondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatusFromError(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		RespondWithError(w, status, "Internal server error")
		return
	}

	resp := ErrorResponse{Message: PublicMessage(err)}
	var valErr *ValidationError
	if errors.As(err, &valErr) && len(valErr.Fields) > 1 {
		resp.Errors = valErr.Fields
	}
	RespondWithJSON(w, status, resp)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// DecodeJSON reads a JSON request body into dst, rejecting malformed payloads as bad requests.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return NewError(ErrBadRequest, "Invalid request payload: "+err.Error())
	}
	return nil
}
