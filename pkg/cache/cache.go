// Package cache stores conversion results keyed by content hashes.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for shared deployments of the HTTP server, and [NullCache] when caching
// is disabled. A [Keyer] derives keys from the hash of the input and the
// options that influence the result, so identical requests hit the same
// entry regardless of which process produced it.
package cache

import (
	"context"
	"time"
)

// Default entry lifetimes.
const (
	TTLGraph    = 24 * time.Hour
	TTLDocument = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiration.
//
// Get reports a miss with (nil, false, nil); errors are reserved for
// backend failures. A ttl of zero means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GraphKeyOpts are the options of a forward conversion that affect its result.
type GraphKeyOpts struct {
	Version string `json:"version,omitempty"`
}

// DocumentKeyOpts identify the side inputs of a reverse conversion.
type DocumentKeyOpts struct {
	GeometryHash   string `json:"geometry"`
	ProvenanceHash string `json:"provenance,omitempty"`
	Version        string `json:"version,omitempty"`
}

// ArtifactKeyOpts identify a rendering of a graph.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// GraphKey keys the port graph converted from a document.
	GraphKey(docHash string, opts GraphKeyOpts) string
	// DocumentKey keys the document rebuilt from a graph.
	DocumentKey(graphHash string, opts DocumentKeyOpts) string
	// ArtifactKey keys a rendered diagram of a graph.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes every component into the key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) GraphKey(docHash string, opts GraphKeyOpts) string {
	return hashKey("graph", docHash, opts)
}

func (DefaultKeyer) DocumentKey(graphHash string, opts DocumentKeyOpts) string {
	return hashKey("document", graphHash, opts)
}

func (DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}
