package ids

import (
	"crypto/rand"
	"encoding/hex"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewInviteToken returns a 64-character hex token built from 32
// cryptographically random bytes. Embedded in invite accept-links.
func NewInviteToken() (string, error) {
	return randomHex(32)
}

// NewPlaceholderID returns a provider-style identity for user records created
// ahead of real authentication.
func NewPlaceholderID() (string, error) {
	suffix, err := randomHex(16)
	if err != nil {
		return "", err
	}
	return "placeholder_" + suffix, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
