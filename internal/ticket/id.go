// ABOUTME: Ticket id generation with kind prefixes
// ABOUTME: Combines a UUID with a hex-encoded random suffix

package ticket

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// randomSuffixBytes is the length of the random hex suffix appended to
// every ticket id.
const randomSuffixBytes = 8

// NewID generates a globally unique ticket id for the given kind, e.g.
// "TGT-4f7a...-9c01d2e3a4b5c6d7". Ids are never reused, even after the
// ticket expires.
func NewID(kind Kind) string {
	buf := make([]byte, randomSuffixBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// the UUID alone still guarantees uniqueness.
		return fmt.Sprintf("%s-%s", kind, uuid.NewString())
	}
	return fmt.Sprintf("%s-%s-%s", kind, uuid.NewString(), hex.EncodeToString(buf))
}
