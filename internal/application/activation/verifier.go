package activation

import (
	"context"
	"errors"
	"fmt"

	"github.com/tapcard-api/internal/domain"
	"github.com/tapcard-api/internal/infrastructure/metrics"
	"github.com/tapcard-api/internal/pkg/activationcode"
)

// Verify checks that raw is a well-formed code for an unclaimed record. It
// never writes. Unknown and already-claimed codes both yield
// domain.ErrNotClaimable with the same message.
func (s *service) Verify(ctx context.Context, raw string) (*domain.ActivationRecord, error) {
	code, err := normalizeCode(raw)
	if err != nil {
		metrics.IncVerify("bad_format")
		return nil, err
	}
	rec, err := s.store.FindClaimable(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncVerify("not_claimable")
			return nil, domain.ErrNotClaimable
		}
		return nil, fmt.Errorf("verify activation code: %w", err)
	}
	metrics.IncVerify("claimable")
	return rec, nil
}

func normalizeCode(raw string) (string, error) {
	code := activationcode.Normalize(raw)
	if !activationcode.Valid(code) {
		return "", domain.ErrBadFormat
	}
	return code, nil
}
