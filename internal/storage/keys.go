package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Artifact kinds, used as the first key segment.
const (
	KindOriginal   = "originals"
	KindCompressed = "compressed"
)

// NewKey returns a fresh key of the form kind/yyyy/mm/dd/<uuid><ext>, dated
// in UTC. Keys are random and never derived from caller input.
func NewKey(kind string, now time.Time, ext string) string {
	now = now.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s%s", kind, now.Year(), int(now.Month()), now.Day(), uuid.NewString(), ext)
}
