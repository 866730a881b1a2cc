package authorization

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elhub/auth-grant-manager-sub001/internal/obs"
)

// grantSource carries the fields a grant copies from its source entity.
type grantSource struct {
	sourceType    SourceType
	sourceID      uuid.UUID
	requestedBy   uuid.UUID
	requestedFrom uuid.UUID
	scopes        []Scope
}

// issueGrantTx inserts the grant for a confirmed document or accepted request.
// Must run inside the same transaction that flips the source entity's status;
// the unique (source_type, source_id) constraint guards against double issue.
func issueGrantTx(ctx context.Context, tx Store, src grantSource, now time.Time) (*Grant, error) {
	scopeIDs := make([]uuid.UUID, 0, len(src.scopes))
	for _, sc := range src.scopes {
		scopeIDs = append(scopeIDs, sc.ID)
	}
	g := &Grant{
		Status:     GrantStatusActive,
		GrantedFor: src.requestedFrom,
		GrantedBy:  src.requestedFrom,
		GrantedTo:  src.requestedBy,
		GrantedAt:  now,
		ValidFrom:  now,
		ValidTo:    now.Add(grantValidity),
		SourceType: src.sourceType,
		SourceID:   src.sourceID,
		ScopeIDs:   scopeIDs,
	}
	if err := tx.Grants().Insert(ctx, g); err != nil {
		return nil, err
	}
	obs.GrantIssued(string(src.sourceType))
	return g, nil
}

// GrantService reads grants and applies status transitions on behalf of the
// downstream market-processing system.
type GrantService struct {
	store Store
	// consumerSystemID is the only system party allowed to consume grants.
	consumerSystemID string
}

// NewGrantService wires grant reads and consumption.
func NewGrantService(store Store, consumerSystemID string) *GrantService {
	return &GrantService{store: store, consumerSystemID: consumerSystemID}
}

// FindGrant returns the grant by id.
func (s *GrantService) FindGrant(ctx context.Context, id uuid.UUID) (*Grant, error) {
	return s.store.Grants().Find(ctx, id)
}

// ListGrants returns all grants in issuance order.
func (s *GrantService) ListGrants(ctx context.Context) ([]*Grant, error) {
	return s.store.Grants().List(ctx)
}

// ConsumeGrant sets the grant status. Only the configured consumer system may
// call it; any known status value is accepted, there is no transition table.
func (s *GrantService) ConsumeGrant(ctx context.Context, id uuid.UUID, status GrantStatus, caller Identifier) (*Grant, error) {
	if caller.IDType != IDTypeSystem || caller.IDValue != s.consumerSystemID {
		return nil, ErrNotAuthorized
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown grant status %q", ErrInvalidInput, status)
	}
	if err := s.store.Grants().UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.store.Grants().Find(ctx, id)
}
