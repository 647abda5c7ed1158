package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tapcard-api/internal/application/activation"
	"github.com/tapcard-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// AuthEnvelope wraps login/register responses. Activation is set when the
// request carried a claim ticket.
type AuthEnvelope struct {
	Bearer       string          `json:"Bearer,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	Activation   *ClaimEnvelope  `json:"activation,omitempty"`
	Message      string          `json:"message,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ClaimEnvelope reports the result of completing a deferred claim.
type ClaimEnvelope struct {
	Message  string                   `json:"message,omitempty"`
	Redirect string                   `json:"redirect,omitempty"`
	Record   *domain.ActivationRecord `json:"record,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// ActivationEnvelope wraps verify and activate responses.
type ActivationEnvelope struct {
	Message     string                      `json:"message"`
	Outcome     activation.Outcome          `json:"outcome,omitempty"`
	Redirect    string                      `json:"redirect,omitempty"`
	Record      *domain.ActivationRecord    `json:"record,omitempty"`
	ClaimTicket string                      `json:"claim_ticket,omitempty"`
	Intent      *domain.DeferredClaimIntent `json:"intent,omitempty"`
}

// PageEnvelope wraps cursor-paginated listings.
type PageEnvelope struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// statusFor maps a service error to an HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadFormat), errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotClaimable), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyClaimed), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGenerationExhausted):
		return http.StatusInternalServerError
	}
	return 0
}

// writeServiceError writes err with its mapped status. Infrastructure errors
// are logged and replaced with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if status := statusFor(err); status != 0 {
		writeError(w, status, err.Error())
		return
	}
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// publicMessage is the text shown to a client for err. It never exposes
// infrastructure details.
func publicMessage(err error) string {
	if statusFor(err) != 0 {
		return err.Error()
	}
	return "internal server error"
}
