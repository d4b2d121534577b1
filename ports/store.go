package ports

import (
	"context"

	"godecode/domain/decoding"
)

// ArtifactStore is the persistence boundary for computed artifacts. It acts
// as a memoization cache: engines check Has before recomputing a derived
// score and overwrite on recompute. Implementations must be safe for
// concurrent use.
type ArtifactStore interface {
	// Has reports whether an artifact exists at the key.
	Has(ctx context.Context, key decoding.Key) (bool, error)
	// Load unmarshals the artifact at the key into out. A missing key yields
	// an error satisfying core.IsMissingArtifact.
	Load(ctx context.Context, key decoding.Key, out any) error
	// Save serializes the artifact under the key, overwriting any previous value.
	Save(ctx context.Context, key decoding.Key, artifact any) error
	// Close releases store resources.
	Close() error
}
