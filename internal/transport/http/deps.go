package http

import (
	"github.com/tapcard-api/internal/application/activation"
	"github.com/tapcard-api/internal/infrastructure/dynamo"
	"github.com/tapcard-api/internal/transport/http/handler"
	jwtinfra "github.com/tapcard-api/internal/infrastructure/jwt"
	s3infra "github.com/tapcard-api/internal/infrastructure/s3"
	"github.com/tapcard-api/internal/infrastructure/smtp"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo       *dynamo.UserRepo
	SessionRepo    *dynamo.SessionRepo
	ActivationRepo *dynamo.ActivationRepo
	CardRepo       *dynamo.CardRepo
	// ClaimStaging holds deferred claims; Redis-backed in production.
	ClaimStaging activation.Staging
	// S3Store receives batch print manifests. Nil disables manifests.
	S3Store     *s3infra.Store
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
	// Readiness lists the probes behind /health-check/ready.
	Readiness map[string]handler.Check
}
