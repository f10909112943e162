// Package core defines the interfaces through which the client reaches its
// external collaborators. Identity and persistent storage are owned by other
// systems; the client only ever sees these contracts.
package core

import (
	"context"

	"github.com/notecast/notecast/internal/podcast"
)

// RecordStore defines the interface for durable storage of podcast records.
// The in-memory collection remains the rendering source of truth; a
// RecordStore, when configured, receives write-through copies of records as
// they reach a terminal state.
type RecordStore interface {
	Save(ctx context.Context, record podcast.Record) error
	Delete(ctx context.Context, id string) error
}

// TokenProvider supplies a bearer token for backend requests. The identity
// provider behind it is out of scope; an empty token means the request goes
// out unauthenticated, which the backend tolerates.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}
