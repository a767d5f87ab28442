// Package handlers is the HTTP layer. Every response, success or
// failure, is wrapped in the same envelope so clients can parse one
// shape; handlers translate apperr kinds into status codes and never
// leak internal error text.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
)

// Envelope is the uniform response shape for every endpoint.
type Envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       any             `json:"data,omitempty"`
	Errors     []apperr.Detail `json:"error,omitempty"`
	Timestamp  string          `json:"timestamp"`
	Path       string          `json:"path"`
}

// ListPayload pairs a page of items with its metadata inside the
// envelope's data field.
type ListPayload[T any] struct {
	Items []T             `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	env.StatusCode = status
	env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	env.Path = r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	writeEnvelope(w, r, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// writeError renders any error through the apperr taxonomy. Unknown
// errors become opaque 500s; their cause goes to the log, not the wire.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	details := appErr.Details
	if len(details) == 0 {
		details = []apperr.Detail{{Reason: appErr.Message}}
	}
	writeEnvelope(w, r, appErr.StatusCode(), Envelope{
		Success: false,
		Message: appErr.Message,
		Errors:  details,
	})
}
