// Package storage reads job inputs from and writes results to the object
// store. The store is a shared external resource: no client-side locking is
// done here, the worker's own serialization prevents overlapping requests
// from this process.
package storage

import (
	"context"

	"github.com/joseph-ayodele/docparse/internal/entity"
)

// Gateway is the object store boundary the worker depends on. Every failure
// wraps common.ErrStorage.
type Gateway interface {
	// Read returns the object's content.
	Read(ctx context.Context, loc entity.Location) ([]byte, error)
	// Write stores content at loc and returns the object's public URL.
	Write(ctx context.Context, loc entity.Location, content []byte, contentType string) (string, error)
}
