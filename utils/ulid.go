package utils

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyLock sync.Mutex
	entropy     io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a new ULID for a pipeline run. IDs generated within the
// same millisecond still sort in creation order.
func NewRunID() string {
	return NewRunIDAt(time.Now()).String()
}

// NewRunIDAt generates a ULID carrying the given timestamp
func NewRunIDAt(t time.Time) ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy)
}

// RunIDTime extracts the timestamp encoded in a run id
func RunIDTime(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()).UTC(), nil
}
