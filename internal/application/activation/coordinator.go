package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tapcard-api/internal/domain"
	"github.com/tapcard-api/internal/infrastructure/metrics"
	pkgtoken "github.com/tapcard-api/internal/pkg/token"
)

// ClaimForUser binds the code to userID. Repeating a successful claim for the
// same user returns the record unchanged without side effects.
func (s *service) ClaimForUser(ctx context.Context, raw, userID string) (*domain.ActivationRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("claim requires a user: %w", domain.ErrUnauthorized)
	}
	code, err := normalizeCode(raw)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.FindClaimable(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			metrics.IncClaim("error")
			return nil, err
		}
		return s.resolveUnclaimable(ctx, code, userID)
	}

	return s.claimRecord(ctx, rec, userID)
}

// claimRecord performs the conditional transition and sorts out a lost race.
func (s *service) claimRecord(ctx context.Context, rec *domain.ActivationRecord, userID string) (*domain.ActivationRecord, error) {
	claimed, err := s.store.Claim(ctx, rec.RecordID, userID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAlreadyClaimed):
		// Possibly lost to an earlier request from the same user.
		current, gerr := s.store.Get(ctx, rec.RecordID)
		if gerr != nil {
			metrics.IncClaim("error")
			return nil, fmt.Errorf("read claimed activation: %w", gerr)
		}
		if current.OwnedBy(userID) {
			metrics.IncClaim("noop")
			return current, nil
		}
		metrics.IncClaim("lost_race")
		return nil, domain.ErrAlreadyClaimed
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncClaim("not_claimable")
		return nil, domain.ErrNotClaimable
	default:
		metrics.IncClaim("error")
		return nil, fmt.Errorf("claim activation: %w", err)
	}

	metrics.IncClaim("claimed")
	slog.Info("activation claimed", "record_id", claimed.RecordID, "user_id", userID)
	s.notifier.NotifyClaimed(ctx, claimed)
	return claimed, nil
}

// resolveUnclaimable explains why code could not be found as claimable:
// already owned by userID (no-op success), claimed by someone else, or unknown.
func (s *service) resolveUnclaimable(ctx context.Context, code, userID string) (*domain.ActivationRecord, error) {
	rec, err := s.store.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncClaim("not_claimable")
			return nil, domain.ErrNotClaimable
		}
		metrics.IncClaim("error")
		return nil, err
	}
	switch {
	case rec.OwnedBy(userID):
		metrics.IncClaim("noop")
		return rec, nil
	case rec.Status == domain.ActivationClaimed:
		metrics.IncClaim("lost_race")
		return nil, domain.ErrAlreadyClaimed
	default:
		// FindClaimable and GetByCode disagreed; let the conditional write decide.
		return s.claimRecord(ctx, rec, userID)
	}
}

// DeferClaim verifies the code and stages an intent under a fresh claim ticket.
// The record store is not written.
func (s *service) DeferClaim(ctx context.Context, raw string) (string, *domain.DeferredClaimIntent, error) {
	rec, err := s.Verify(ctx, raw)
	if err != nil {
		return "", nil, err
	}
	ticket, err := pkgtoken.NewClaimTicket()
	if err != nil {
		return "", nil, err
	}
	intent := domain.DeferredClaimIntent{
		ActivationCode: rec.ActivationCode,
		RecordID:       rec.RecordID,
		StagedAt:       s.now().UTC(),
	}
	if err := s.staging.Stage(ctx, ticket, intent); err != nil {
		return "", nil, fmt.Errorf("stage claim intent: %w", err)
	}
	metrics.IncDeferred("staged")
	return ticket, &intent, nil
}

// Activate claims immediately for a signed-in user, or stages the claim when
// userID is empty.
func (s *service) Activate(ctx context.Context, raw, userID string) (*ActivationOutcome, error) {
	if userID == "" {
		ticket, intent, err := s.DeferClaim(ctx, raw)
		if err != nil {
			return nil, err
		}
		return &ActivationOutcome{
			Outcome:     OutcomePending,
			Redirect:    RedirectSignup,
			ClaimTicket: ticket,
			Intent:      intent,
		}, nil
	}
	rec, err := s.ClaimForUser(ctx, raw, userID)
	if err != nil {
		return nil, err
	}
	return &ActivationOutcome{Outcome: OutcomeClaimed, Redirect: RedirectEditor, Record: rec}, nil
}

func (s *service) PeekPending(ctx context.Context, ticket string) (*domain.DeferredClaimIntent, error) {
	return s.staging.Peek(ctx, ticket)
}

// CompleteDeferred claims a staged intent for a user who now has an account.
// The intent is cleared only on success; a failure leaves it for a retry and
// never touches the account.
func (s *service) CompleteDeferred(ctx context.Context, ticket, userID string) (*domain.ActivationRecord, error) {
	intent, err := s.staging.Peek(ctx, ticket)
	if err != nil {
		return nil, err
	}
	rec, err := s.ClaimForUser(ctx, intent.ActivationCode, userID)
	if err != nil {
		metrics.IncDeferred("failed")
		return nil, err
	}
	if rec.RecordID != intent.RecordID {
		metrics.IncDeferred("failed")
		return nil, domain.ErrNotClaimable
	}
	if err := s.staging.Clear(ctx, ticket); err != nil {
		slog.Warn("clear claim intent failed", "record_id", rec.RecordID, "err", err)
	}
	metrics.IncDeferred("completed")
	return rec, nil
}
