package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tapcard-api/internal/application/activation"
	"github.com/tapcard-api/internal/domain"
	"github.com/tapcard-api/internal/pkg/validate"
	"github.com/tapcard-api/internal/transport/http/middleware"
)

// ActivationHandler handles code verification, claiming and the admin registry.
type ActivationHandler struct {
	svc activation.Service
}

func NewActivationHandler(svc activation.Service) *ActivationHandler {
	return &ActivationHandler{svc: svc}
}

// decodeCode reads an ActivationCodeRequest. A malformed code is answered
// with the same message the service gives for ErrBadFormat.
func decodeCode(w http.ResponseWriter, r *http.Request) (domain.ActivationCodeRequest, bool) {
	var req domain.ActivationCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrBadFormat.Error())
		return req, false
	}
	return req, true
}

func (h *ActivationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCode(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.Verify(r.Context(), req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivationEnvelope{Message: "card verified"})
}

// Activate claims the code for a signed-in caller. Anonymous callers get a
// claim ticket to present at signup or login.
func (h *ActivationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCode(w, r)
	if !ok {
		return
	}
	var userID string
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		userID = claims.UserID
	}
	out, err := h.svc.Activate(r.Context(), req.Code, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if out.Outcome == activation.OutcomePending {
		writeJSON(w, http.StatusAccepted, ActivationEnvelope{
			Message:     "card verified",
			Outcome:     out.Outcome,
			Redirect:    out.Redirect,
			ClaimTicket: out.ClaimTicket,
			Intent:      out.Intent,
		})
		return
	}
	writeJSON(w, http.StatusOK, ActivationEnvelope{
		Message:  "card activated",
		Outcome:  out.Outcome,
		Redirect: out.Redirect,
		Record:   out.Record,
	})
}

func (h *ActivationHandler) PeekPending(w http.ResponseWriter, r *http.Request) {
	intent, err := h.svc.PeekPending(r.Context(), chi.URLParam(r, "ticket"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *ActivationHandler) ClaimPending(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.ClaimTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.svc.CompleteDeferred(r.Context(), req.ClaimTicket, claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClaimEnvelope{Message: "card activated", Redirect: activation.RedirectEditor, Record: rec})
}

func (h *ActivationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	recs, err := h.svc.Mine(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: recs})
}

func (h *ActivationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateActivationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *ActivationHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateActivationBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.CreateBatch(r.Context(), req.Count)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ActivationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, next, err := h.svc.List(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: recs, NextCursor: next})
}

func (h *ActivationHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// deferredClaimer is the part of activation.Service the signup and login
// handlers use.
type deferredClaimer interface {
	CompleteDeferred(ctx context.Context, ticket, userID string) (*domain.ActivationRecord, error)
}

// completeDeferred finishes a claim staged before the caller had an account.
// Failures are reported in the envelope and never fail the surrounding request.
func completeDeferred(ctx context.Context, svc deferredClaimer, ticket, userID string) *ClaimEnvelope {
	if ticket == "" || svc == nil {
		return nil
	}
	rec, err := svc.CompleteDeferred(ctx, ticket, userID)
	if err != nil {
		slog.Warn("deferred claim not completed", "user_id", userID, "err", err)
		return &ClaimEnvelope{Error: publicMessage(err)}
	}
	return &ClaimEnvelope{Message: "card activated", Redirect: activation.RedirectEditor, Record: rec}
}
