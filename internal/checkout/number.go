package checkout

import (
	"crypto/rand"
	"fmt"
	"time"
)

// No ambiguous characters; order numbers get read over the phone.
const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newOrderNumber returns a human-facing reference like KC-20250901-7GK2QD.
// Uniqueness is enforced by the database; collisions are retried by the
// caller.
func newOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("KC-%s-%s", now.UTC().Format("20060102"), string(buf)), nil
}
