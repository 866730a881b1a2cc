package authorization

import (
	"context"

	"github.com/google/uuid"
)

// Store describes the persistence operations required by the lifecycle engine.
// WithinTx runs fn against a transactional view of the store; the document
// confirmation and request acceptance paths rely on it to flip entity status
// and insert the grant atomically.
type Store interface {
	Parties() PartyStore
	Requests() RequestStore
	Documents() DocumentStore
	Grants() GrantStore
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// PartyStore manages the de-duplicated party table.
type PartyStore interface {
	// Insert adds the party unless one with the same (type, externalResourceId)
	// already exists; the conflict is silently ignored.
	Insert(ctx context.Context, p *Party) error
	FindByTypeAndResource(ctx context.Context, t PartyType, resourceID string) (*Party, error)
	Find(ctx context.Context, id uuid.UUID) (*Party, error)
}

// RequestStore manages authorization requests with their properties and scopes.
type RequestStore interface {
	Create(ctx context.Context, r *Request) error
	Find(ctx context.Context, id uuid.UUID) (*Request, error)
	List(ctx context.Context) ([]*Request, error)
	SetAccepted(ctx context.Context, id, approvedBy, grantID uuid.UUID) error
	SetRejected(ctx context.Context, id uuid.UUID) error
}

// DocumentStore manages authorization documents with their properties and scopes.
type DocumentStore interface {
	Create(ctx context.Context, d *Document) error
	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context) ([]*Document, error)
	SetSigned(ctx context.Context, id, signedBy, grantID uuid.UUID, signedFile []byte) error
}

// GrantStore manages grants and their scope links.
type GrantStore interface {
	Insert(ctx context.Context, g *Grant) error
	Find(ctx context.Context, id uuid.UUID) (*Grant, error)
	List(ctx context.Context) ([]*Grant, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status GrantStatus) error
}
