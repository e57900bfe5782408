package testutil

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// FixedRunIDSource mints deterministic, monotonically numbered run IDs
// so tests and goldens see the same IDs on every run. The IDs carry the
// v7 version and variant bits, matching the executor's default source
// in shape.
//
// Thread-safe; a source can be shared across parallel subtests.
type FixedRunIDSource struct {
	mu  sync.Mutex
	seq int64
}

// NewFixedRunIDSource creates a source whose first ID ends in ...0001.
func NewFixedRunIDSource() *FixedRunIDSource {
	return &FixedRunIDSource{}
}

// Next returns the next deterministic ID. It never fails; the error is
// there to satisfy the executor's RunIDSource signature.
func (s *FixedRunIDSource) Next() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return uuid.MustParse(fmt.Sprintf("00000000-0000-7000-8000-%012d", s.seq)), nil
}
