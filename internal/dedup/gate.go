// Package dedup answers whether a fingerprinted transaction is already
// stored.
package dedup

import (
	"context"
	"fmt"
)

// ChecksumLookup is the storage query the gate relies on.
type ChecksumLookup interface {
	ExistsByChecksum(ctx context.Context, checksum string) (bool, error)
}

// Gate is a read-only dedup check. It is advisory: the store's unique
// checksum constraint remains the final arbiter at write time.
type Gate struct {
	lookup ChecksumLookup
}

// NewGate creates a gate over lookup.
func NewGate(lookup ChecksumLookup) *Gate {
	return &Gate{lookup: lookup}
}

// Exists reports whether a transaction with checksum is stored. Lookup
// failures are returned, never reported as false.
func (g *Gate) Exists(ctx context.Context, checksum string) (bool, error) {
	if checksum == "" {
		return false, fmt.Errorf("Exists: empty checksum")
	}
	found, err := g.lookup.ExistsByChecksum(ctx, checksum)
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return found, nil
}
