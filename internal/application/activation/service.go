package activation

import (
	"context"
	"io"
	"time"

	"github.com/tapcard-api/internal/domain"
	"github.com/tapcard-api/internal/pkg/activationcode"
)

const (
	maxGenerationAttempts = 5
	defaultBatchMax       = 500
	manifestLinkTTL       = 24 * time.Hour

	RedirectEditor = "/editor/new"
	RedirectSignup = "/signup"
)

type Outcome string

const (
	OutcomeClaimed Outcome = "claimed"
	OutcomePending Outcome = "pending"
)

// ActivationOutcome is the result of Activate. ClaimTicket and Intent are set
// only when the claim was deferred until the visitor has an account.
type ActivationOutcome struct {
	Outcome     Outcome                     `json:"outcome"`
	Redirect    string                      `json:"redirect"`
	Record      *domain.ActivationRecord    `json:"record,omitempty"`
	ClaimTicket string                      `json:"claim_ticket,omitempty"`
	Intent      *domain.DeferredClaimIntent `json:"intent,omitempty"`
}

// BatchResult lists the records created by CreateBatch and where the print
// manifest was written.
type BatchResult struct {
	Records     []domain.ActivationRecord `json:"records"`
	ManifestURL string                    `json:"manifest_url,omitempty"`
}

type Service interface {
	// Verifier
	Verify(ctx context.Context, raw string) (*domain.ActivationRecord, error)

	// Claim coordinator
	ClaimForUser(ctx context.Context, raw, userID string) (*domain.ActivationRecord, error)
	DeferClaim(ctx context.Context, raw string) (string, *domain.DeferredClaimIntent, error)
	Activate(ctx context.Context, raw, userID string) (*ActivationOutcome, error)
	PeekPending(ctx context.Context, ticket string) (*domain.DeferredClaimIntent, error)
	CompleteDeferred(ctx context.Context, ticket, userID string) (*domain.ActivationRecord, error)

	// Registry
	Create(ctx context.Context, req domain.CreateActivationRequest) (*domain.ActivationRecord, error)
	CreateBatch(ctx context.Context, count int) (*BatchResult, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.ActivationRecord, string, error)
	Get(ctx context.Context, recordID string) (*domain.ActivationRecord, error)
	Mine(ctx context.Context, userID string) ([]domain.ActivationRecord, error)
}

type recordStore interface {
	Insert(ctx context.Context, rec *domain.ActivationRecord) error
	Get(ctx context.Context, recordID string) (*domain.ActivationRecord, error)
	GetByCode(ctx context.Context, code string) (*domain.ActivationRecord, error)
	FindClaimable(ctx context.Context, code string) (*domain.ActivationRecord, error)
	Claim(ctx context.Context, recordID, userID string) (*domain.ActivationRecord, error)
	ListByOwner(ctx context.Context, userID string) ([]domain.ActivationRecord, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.ActivationRecord, string, error)
}

type codeGenerator interface {
	Generate() (string, error)
}

type manifestStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type ServiceDeps struct {
	Store     recordStore
	Staging   Staging
	Generator codeGenerator // defaults to crypto/rand
	Notifier  Notifier      // optional
	Manifests manifestStore // optional; batches skip the manifest when nil

	ManifestPrefix string
	BatchMax       int
}

type service struct {
	store          recordStore
	staging        Staging
	gen            codeGenerator
	notifier       Notifier
	manifests      manifestStore
	manifestPrefix string
	batchMax       int
	now            func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:          deps.Store,
		staging:        deps.Staging,
		gen:            deps.Generator,
		notifier:       deps.Notifier,
		manifests:      deps.Manifests,
		manifestPrefix: deps.ManifestPrefix,
		batchMax:       deps.BatchMax,
		now:            time.Now,
	}
	if s.gen == nil {
		s.gen = activationcode.NewGenerator(nil)
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.batchMax <= 0 {
		s.batchMax = defaultBatchMax
	}
	return s
}
