// Package random provides cryptographic seed generation for the spawn-time
// random protofunctions.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a high-entropy PCG seed pair using crypto/rand.
func NewSeed() (uint64, uint64, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, 0, fmt.Errorf("read random seed: %w", err)
	}

	return binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]), nil
}
