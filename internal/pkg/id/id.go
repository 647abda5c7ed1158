package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID for the current time.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID stamped with t. IDs minted within the same
// millisecond still sort in call order, so a batch scans back in the order
// it was created.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Short returns n lowercase characters of fresh ULID randomness, for
// human-facing suffixes. n is capped at 16.
func Short(n int) string {
	if n > 16 {
		n = 16
	}
	u := ulid.MustNew(ulid.Now(), rand.Reader).String()
	return strings.ToLower(u[len(u)-n:])
}
