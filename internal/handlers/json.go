// internal/handlers/json.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jason-s-yu/ludo/internal/apperr"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string      `json:"error"`
	Code  apperr.Code `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.CodeValidation, "malformed request body", err)
	}
	return nil
}

// statusFor maps an error code to its HTTP status.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeNotReady:
		return http.StatusPreconditionFailed
	case apperr.CodeAuth:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error","code"}. Unclassified failures are
// logged and their detail withheld from the client.
func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	code := apperr.CodeOf(err)
	msg := err.Error()
	var coded *apperr.Error
	if errors.As(err, &coded) {
		msg = coded.Message
	}
	if code == apperr.CodeStore {
		logger.Errorf("request failed: %v", err)
		msg = "internal error"
	}
	writeJSON(w, statusFor(code), errorResponse{Error: msg, Code: code})
}
