package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tapcard-api/internal/domain"
	jwtinfra "github.com/tapcard-api/internal/infrastructure/jwt"
)

func roleReq(role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/v1/activations", nil)
	if role == "" {
		return req
	}
	return req.WithContext(WithClaims(req.Context(), &jwtinfra.Claims{UserID: "u1", Role: role}))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		role    string
		want    int
	}{
		{"no claims", []string{domain.RoleAdmin}, "", http.StatusUnauthorized},
		{"wrong role", []string{domain.RoleAdmin}, domain.RoleUser, http.StatusForbidden},
		{"matching role", []string{domain.RoleAdmin}, domain.RoleAdmin, http.StatusOK},
		{"any of several", []string{domain.RoleAdmin, domain.RoleUser}, domain.RoleUser, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RequireRole(tt.allowed...)(http.HandlerFunc(okHandler)).ServeHTTP(rr, roleReq(tt.role))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireAdmin(http.HandlerFunc(okHandler)).ServeHTTP(rr, roleReq(domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	RequireAdmin(http.HandlerFunc(okHandler)).ServeHTTP(rr, roleReq(domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, rr.Code)
}
