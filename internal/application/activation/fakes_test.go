package activation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tapcard-api/internal/domain"
)

// memStore is an in-memory record store with the same conditional semantics
// as the DynamoDB repo: Claim is a compare-and-swap on status.
type memStore struct {
	mu     sync.Mutex
	byID   map[string]domain.ActivationRecord
	byCode map[string]string

	insertErrs []error // consumed one per Insert before normal behaviour
	findErr    error
	getErr     error  // returned by Get once set
	onClaim    func() // runs before Claim takes the lock
	reads      int
	writes     int
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]domain.ActivationRecord{}, byCode: map[string]string{}}
}

func (m *memStore) seed(code string) *domain.ActivationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	rec := domain.ActivationRecord{
		RecordID:       "rec-" + code,
		ActivationCode: code,
		Status:         domain.ActivationUnclaimed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.byID[rec.RecordID] = rec
	m.byCode[code] = rec.RecordID
	return &rec
}

func (m *memStore) Insert(_ context.Context, rec *domain.ActivationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if len(m.insertErrs) > 0 {
		err := m.insertErrs[0]
		m.insertErrs = m.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := m.byCode[rec.ActivationCode]; ok {
		return domain.ErrCodeCollision
	}
	m.byID[rec.RecordID] = *rec
	m.byCode[rec.ActivationCode] = rec.RecordID
	return nil
}

func (m *memStore) Get(_ context.Context, recordID string) (*domain.ActivationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.byID[recordID]
	if !ok {
		return nil, fmt.Errorf("activation record not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

func (m *memStore) GetByCode(ctx context.Context, code string) (*domain.ActivationRecord, error) {
	m.mu.Lock()
	recordID, ok := m.byCode[code]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("activation code not found: %w", domain.ErrNotFound)
	}
	return m.Get(ctx, recordID)
}

func (m *memStore) FindClaimable(ctx context.Context, code string) (*domain.ActivationRecord, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	rec, err := m.GetByCode(ctx, code)
	if err != nil || rec.Status != domain.ActivationUnclaimed {
		return nil, fmt.Errorf("claimable activation not found: %w", domain.ErrNotFound)
	}
	return rec, nil
}

func (m *memStore) Claim(_ context.Context, recordID, userID string) (*domain.ActivationRecord, error) {
	if m.onClaim != nil {
		m.onClaim()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	rec, ok := m.byID[recordID]
	if !ok {
		return nil, fmt.Errorf("activation record not found: %w", domain.ErrNotFound)
	}
	if rec.Status != domain.ActivationUnclaimed {
		return nil, domain.ErrAlreadyClaimed
	}
	now := time.Now().UTC()
	owner := userID
	rec.Status = domain.ActivationClaimed
	rec.OwnerUserID = &owner
	rec.ClaimedAt = &now
	rec.UpdatedAt = now
	m.byID[recordID] = rec
	return &rec, nil
}

func (m *memStore) ListByOwner(_ context.Context, userID string) ([]domain.ActivationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ActivationRecord{}
	for _, r := range m.byID {
		if r.OwnedBy(userID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ScanPage(_ context.Context, limit int32, _ string) ([]domain.ActivationRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ActivationRecord{}
	for _, r := range m.byID {
		if int32(len(out)) == limit {
			break
		}
		out = append(out, r)
	}
	return out, "", nil
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memStore) record(code string) domain.ActivationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[m.byCode[code]]
}

// scriptedGen returns codes in order, then repeats the last one.
type scriptedGen struct {
	codes []string
	n     int
}

func (g *scriptedGen) Generate() (string, error) {
	if len(g.codes) == 0 {
		return "", errors.New("no codes")
	}
	i := g.n
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.n++
	return g.codes[i], nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []string
}

func (n *recordingNotifier) NotifyClaimed(_ context.Context, rec *domain.ActivationRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, rec.RecordID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.records)
}

// failingStaging fails Clear to check that completion does not depend on it.
type failingStaging struct {
	*MemoryStaging
}

func (f failingStaging) Clear(context.Context, string) error {
	return errors.New("staging unavailable")
}

type fakeManifests struct {
	key, body  string
	uploadErr  error
	presignErr error
}

func (f *fakeManifests) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	b, _ := io.ReadAll(r)
	f.key, f.body = key, string(b)
	return "s3://bucket/" + key, nil
}

func (f *fakeManifests) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://signed.example/" + key, nil
}

func newTestService(store *memStore, staging Staging, notifier Notifier) *service {
	return NewService(ServiceDeps{
		Store:    store,
		Staging:  staging,
		Notifier: notifier,
	}).(*service)
}
