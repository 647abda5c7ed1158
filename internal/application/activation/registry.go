package activation

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tapcard-api/internal/domain"
	"github.com/tapcard-api/internal/infrastructure/metrics"
	"github.com/tapcard-api/internal/pkg/id"
)

// Create inserts one unclaimed record, drawing a new code whenever the store
// reports that the code is taken.
func (s *service) Create(ctx context.Context, req domain.CreateActivationRequest) (*domain.ActivationRecord, error) {
	var tagID *string
	if req.TagID != nil {
		if t := strings.TrimSpace(*req.TagID); t != "" {
			tagID = &t
		}
	}
	for attempt := 1; attempt <= maxGenerationAttempts; attempt++ {
		code, err := s.gen.Generate()
		if err != nil {
			return nil, err
		}
		now := s.now().UTC()
		rec := &domain.ActivationRecord{
			RecordID:       id.NewAt(now),
			TagID:          tagID,
			ActivationCode: code,
			Status:         domain.ActivationUnclaimed,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err = s.store.Insert(ctx, rec)
		if err == nil {
			metrics.IncRecordsCreated(1)
			return rec, nil
		}
		if !errors.Is(err, domain.ErrCodeCollision) {
			return nil, err
		}
		metrics.IncGenerationRetry()
		slog.Warn("activation code collision", "attempt", attempt)
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxGenerationAttempts, domain.ErrGenerationExhausted)
}

// CreateBatch creates count untagged records and uploads a CSV manifest for
// the card printer. Records created before a failure are kept.
func (s *service) CreateBatch(ctx context.Context, count int) (*BatchResult, error) {
	if count < 1 || count > s.batchMax {
		return nil, fmt.Errorf("count must be between 1 and %d: %w", s.batchMax, domain.ErrBadRequest)
	}
	recs := make([]domain.ActivationRecord, 0, count)
	for i := 0; i < count; i++ {
		rec, err := s.Create(ctx, domain.CreateActivationRequest{})
		if err != nil {
			return nil, fmt.Errorf("batch stopped after %d of %d records: %w", len(recs), count, err)
		}
		recs = append(recs, *rec)
	}
	res := &BatchResult{Records: recs}
	if s.manifests == nil {
		return res, nil
	}
	url, err := s.uploadManifest(ctx, recs)
	if err != nil {
		slog.Warn("batch manifest upload failed", "records", len(recs), "err", err)
		return res, nil
	}
	res.ManifestURL = url
	return res, nil
}

func (s *service) uploadManifest(ctx context.Context, recs []domain.ActivationRecord) (string, error) {
	data, err := buildManifest(recs)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%sbatch-%s-%s.csv", s.manifestPrefix, s.now().UTC().Format("20060102T150405Z"), id.New())
	loc, err := s.manifests.Upload(ctx, key, bytes.NewReader(data), "text/csv")
	if err != nil {
		return "", err
	}
	url, err := s.manifests.PresignedURL(ctx, key, manifestLinkTTL)
	if err != nil {
		slog.Warn("presign manifest failed", "key", key, "err", err)
		return loc, nil
	}
	return url, nil
}

func buildManifest(recs []domain.ActivationRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"record_id", "activation_code", "created_at"}); err != nil {
		return nil, err
	}
	for _, r := range recs {
		if err := w.Write([]string{r.RecordID, r.ActivationCode, r.CreatedAt.Format(time.RFC3339)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// List returns all records, including owners. Admin only.
func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.ActivationRecord, string, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.store.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) Get(ctx context.Context, recordID string) (*domain.ActivationRecord, error) {
	return s.store.Get(ctx, recordID)
}

func (s *service) Mine(ctx context.Context, userID string) ([]domain.ActivationRecord, error) {
	return s.store.ListByOwner(ctx, userID)
}
