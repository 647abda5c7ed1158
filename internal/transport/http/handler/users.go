package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tapcard-api/internal/application/user"
	"github.com/tapcard-api/internal/domain"
	"github.com/tapcard-api/internal/pkg/validate"
	"github.com/tapcard-api/internal/transport/http/middleware"
)

// UserHandler handles signup and account endpoints.
type UserHandler struct {
	svc         user.Service
	activations deferredClaimer
}

func NewUserHandler(svc user.Service, activations deferredClaimer) *UserHandler {
	return &UserHandler{svc: svc, activations: activations}
}

// Register creates the account, signs it in and completes a pending
// activation when the body carries claim_ticket.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.RegisterWithSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{
		Bearer:       result.Bearer,
		RefreshToken: result.RefreshToken,
		Session:      result.Session,
		Activation:   completeDeferred(r.Context(), h.activations, req.ClaimTicket, result.Session.UserID),
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	targetID, ok := selfOrAdmin(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), targetID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	targetID, ok := selfOrAdmin(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), targetID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "user deleted"})
}

// selfOrAdmin returns the {id} path parameter when the caller is that user or
// an admin, and writes the error response otherwise.
func selfOrAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	targetID := chi.URLParam(r, "id")
	if claims.UserID != targetID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden")
		return "", false
	}
	return targetID, true
}
