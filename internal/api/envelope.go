package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mediagrab/mediagrab/internal/scrape"
)

// envelope is the uniform response shape: status is "success" or "error",
// error carries the machine-readable code on failures, data the payload on
// successes.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: "success", Message: message, Data: data})
}

// writeFailure maps err through the error taxonomy to a status code and
// envelope. Rate-limit failures additionally carry Retry-After.
func writeFailure(w http.ResponseWriter, err error) {
	kind := scrape.KindOf(err)
	msg := "internal server error"
	var se *scrape.Error
	if errors.As(err, &se) {
		msg = se.Message
		if se.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(se.RetryAfter.Seconds())))
		}
	}
	writeJSON(w, kind.HTTPStatus(), envelope{Status: "error", Error: string(kind), Message: msg})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Status:  "error",
		Error:   string(scrape.KindValidation),
		Message: msg,
	})
}

func writeNotFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, envelope{
		Status:  "error",
		Error:   "NOT_FOUND",
		Message: msg,
	})
}
