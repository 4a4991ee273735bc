package id

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunID returns a time-sortable ULID for tagging a single scenario
// invocation's logs end to end, so that `grep`-ing a run's id in the
// log file yields lines in the order they were emitted even across a
// log rotation.
func RunID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return ""
	}
	return id.String()
}
