package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tapcard-api/internal/application/session"
	"github.com/tapcard-api/internal/domain"
)

// --- mock ---

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) RegisterWithSession(ctx context.Context, req domain.CreateUserRequest) (*session.LoginResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*session.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserSvc) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- helpers ---

func signupBody(ticket string) []byte {
	b, _ := json.Marshal(domain.CreateUserRequest{
		Password: "secret123", Email: "alice@example.com",
		FirstName: "Alice", LastName: "Smith", ClaimTicket: ticket,
	})
	return b
}

func loginResult(userID string) *session.LoginResult {
	return &session.LoginResult{
		Bearer:       "access-token",
		RefreshToken: "refresh-token",
		Session:      &domain.Session{SessionID: "s1", UserID: userID, Enable: true},
	}
}

// --- Register tests ---

func TestRegister_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockUserSvc{}, nil)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewBufferString("not-json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegister_ValidationFailure(t *testing.T) {
	svc := &mockUserSvc{}
	body, _ := json.Marshal(domain.CreateUserRequest{Email: "alice@example.com", Password: "short"})
	rr := httptest.NewRecorder()
	NewUserHandler(svc, nil).Register(rr, httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "RegisterWithSession", mock.Anything, mock.Anything)
}

func TestRegister_ServiceConflict(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("RegisterWithSession", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)
	rr := httptest.NewRecorder()
	NewUserHandler(svc, nil).Register(rr, httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(signupBody(""))))
	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestRegister_HappyPath_NoTicket(t *testing.T) {
	svc, acts := &mockUserSvc{}, &mockActivationSvc{}
	svc.On("RegisterWithSession", mock.Anything, mock.Anything).Return(loginResult("u1"), nil)

	rr := httptest.NewRecorder()
	NewUserHandler(svc, acts).Register(rr, httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(signupBody(""))))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "access-token", resp.Bearer)
	assert.Nil(t, resp.Activation)
	acts.AssertNotCalled(t, "CompleteDeferred", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_WithTicket_CompletesClaim(t *testing.T) {
	svc, acts := &mockUserSvc{}, &mockActivationSvc{}
	svc.On("RegisterWithSession", mock.Anything, mock.Anything).Return(loginResult("u1"), nil)
	acts.On("CompleteDeferred", mock.Anything, testTicket, "u1").Return(&domain.ActivationRecord{RecordID: "r1"}, nil)

	rr := httptest.NewRecorder()
	NewUserHandler(svc, acts).Register(rr, httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(signupBody(testTicket))))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotNil(t, resp.Activation)
	assert.Equal(t, "card activated", resp.Activation.Message)
	assert.Equal(t, "/editor/new", resp.Activation.Redirect)
}

func TestRegister_WithTicket_ClaimFailureKeepsAccount(t *testing.T) {
	svc, acts := &mockUserSvc{}, &mockActivationSvc{}
	svc.On("RegisterWithSession", mock.Anything, mock.Anything).Return(loginResult("u1"), nil)
	acts.On("CompleteDeferred", mock.Anything, testTicket, "u1").Return(nil, domain.ErrAlreadyClaimed)

	rr := httptest.NewRecorder()
	NewUserHandler(svc, acts).Register(rr, httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(signupBody(testTicket))))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp AuthEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "access-token", resp.Bearer)
	require.NotNil(t, resp.Activation)
	assert.Equal(t, domain.ErrAlreadyClaimed.Error(), resp.Activation.Error)
}

// --- Get tests ---

func TestGet_MissingClaims(t *testing.T) {
	rr := httptest.NewRecorder()
	NewUserHandler(&mockUserSvc{}, nil).Get(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/v1/users/u1", nil), "id", "u1"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGet_Owner(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "alice@example.com", PasswordHash: "hash"}, nil)

	r := withChiParam(bearerReq(t, p, http.MethodGet, "/v1/users/u1", "u1", domain.RoleUser, nil), "id", "u1")
	rr := httptest.NewRecorder()
	serveAuthed(p, NewUserHandler(svc, nil).Get, rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice@example.com")
	assert.NotContains(t, rr.Body.String(), "hash")
}

func TestGet_Admin_SeesOtherUser(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Get", mock.Anything, "u2").Return(&domain.User{UserID: "u2"}, nil)

	r := withChiParam(bearerReq(t, p, http.MethodGet, "/v1/users/u2", "admin1", domain.RoleAdmin, nil), "id", "u2")
	rr := httptest.NewRecorder()
	serveAuthed(p, NewUserHandler(svc, nil).Get, rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestGet_OtherUser_Forbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}

	r := withChiParam(bearerReq(t, p, http.MethodGet, "/v1/users/u2", "u1", domain.RoleUser, nil), "id", "u2")
	rr := httptest.NewRecorder()
	serveAuthed(p, NewUserHandler(svc, nil).Get, rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

// --- Delete tests ---

func TestDelete_NotOwnerOrAdmin(t *testing.T) {
	p := newTestJWTProvider(t)
	r := withChiParam(bearerReq(t, p, http.MethodDelete, "/v1/users/u2", "u1", domain.RoleUser, nil), "id", "u2")
	rr := httptest.NewRecorder()
	serveAuthed(p, NewUserHandler(&mockUserSvc{}, nil).Delete, rr, r)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDelete_HappyPath_SelfDelete(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Delete", mock.Anything, "u1").Return(nil)

	r := withChiParam(bearerReq(t, p, http.MethodDelete, "/v1/users/u1", "u1", domain.RoleUser, nil), "id", "u1")
	rr := httptest.NewRecorder()
	serveAuthed(p, NewUserHandler(svc, nil).Delete, rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestDelete_Admin_DeletesOtherUser(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockUserSvc{}
	svc.On("Delete", mock.Anything, "u2").Return(nil)

	r := withChiParam(bearerReq(t, p, http.MethodDelete, "/v1/users/u2", "admin1", domain.RoleAdmin, nil), "id", "u2")
	rr := httptest.NewRecorder()
	serveAuthed(p, NewUserHandler(svc, nil).Delete, rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}
