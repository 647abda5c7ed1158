package card

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/tapcard-api/internal/domain"
	"github.com/tapcard-api/internal/pkg/id"
)

type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateCardRequest) (*domain.Card, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Card, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Card, error)
}

type cardStore interface {
	Put(ctx context.Context, c *domain.Card) error
	PutLinked(ctx context.Context, c *domain.Card) error
	GetBySlug(ctx context.Context, slug string) (*domain.Card, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Card, error)
}

type activationReader interface {
	Get(ctx context.Context, recordID string) (*domain.ActivationRecord, error)
}

type ServiceDeps struct {
	CardRepo       cardStore
	ActivationRepo activationReader
}

type service struct {
	cards       cardStore
	activations activationReader
	suffix      func() string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		cards:       deps.CardRepo,
		activations: deps.ActivationRepo,
		suffix:      randomSuffix,
	}
}

// Create publishes a card for userID. When req.ActivationID is set the
// activation must be claimed by the same user and not yet linked.
func (s *service) Create(ctx context.Context, userID string, req domain.CreateCardRequest) (*domain.Card, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	var activationID *string
	if req.ActivationID != nil && *req.ActivationID != "" {
		rec, err := s.activations.Get(ctx, *req.ActivationID)
		if err != nil {
			return nil, err
		}
		if !rec.OwnedBy(userID) {
			return nil, fmt.Errorf("activation not owned by caller: %w", domain.ErrForbidden)
		}
		if rec.LinkedCardID != nil {
			return nil, fmt.Errorf("activation already has a card: %w", domain.ErrConflict)
		}
		activationID = &rec.RecordID
	}

	theme := req.Theme
	if theme == "" {
		theme = domain.ThemeModern
	}
	now := time.Now().UTC()
	c := &domain.Card{
		CardID:       id.New(),
		UserID:       userID,
		ActivationID: activationID,
		Name:         strings.TrimSpace(req.Name),
		JobTitle:     req.JobTitle,
		Company:      req.Company,
		Email:        req.Email,
		Phone:        req.Phone,
		Website:      req.Website,
		Bio:          req.Bio,
		AvatarURL:    req.AvatarURL,
		SocialLinks:  req.SocialLinks,
		Theme:        theme,
		Slug:         Slugify(req.Name, s.suffix()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if activationID == nil {
		if err := s.cards.Put(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}
	// Card and link land together or not at all.
	if err := s.cards.PutLinked(ctx, c); err != nil {
		slog.Warn("linked card not published", "record_id", *activationID, "user_id", userID, "err", err)
		return nil, err
	}
	return c, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*domain.Card, error) {
	return s.cards.GetBySlug(ctx, strings.ToLower(slug))
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.Card, error) {
	return s.cards.ListByUser(ctx, userID)
}

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9 ]+`)
	slugSpaces = regexp.MustCompile(` +`)
)

// Slugify lower-cases name, drops everything but letters, digits and spaces,
// joins words with "-" and appends suffix.
func Slugify(name, suffix string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "")
	s = slugSpaces.ReplaceAllString(strings.TrimSpace(s), "-")
	if s == "" {
		return suffix
	}
	return s + "-" + suffix
}

func randomSuffix() string {
	return id.Short(6)
}
