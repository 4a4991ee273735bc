package id

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

var mu sync.Mutex

// CorrelationID returns a dashless UUIDv4 suitable for stamping onto a
// Context's diagnostic fields when a caller needs to correlate a fiber's
// work with an identifier from outside the scheduler (an inbound
// request id, say), rather than the scheduler's own ULID-based
// Context.ID.
func CorrelationID() string {
	mu.Lock()
	defer mu.Unlock()
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
