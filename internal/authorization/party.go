package authorization

import (
	"context"
	"fmt"

	"github.com/elhub/auth-grant-manager-sub001/internal/refdata"
)

// Resolver maps external identifiers to internal party records, creating the
// record on first sight. Person identifiers are first exchanged for a stable
// internal id in the person registry so the national identity number is never
// stored here.
type Resolver struct {
	store   Store
	persons refdata.PersonDirectory
}

// NewResolver wires a resolver over the store and person registry.
func NewResolver(store Store, persons refdata.PersonDirectory) *Resolver {
	return &Resolver{store: store, persons: persons}
}

// Resolve returns the internal party for the identifier, inserting it if
// needed. The insert ignores conflicts, so concurrent resolution of the same
// identifier converges on a single record.
func (r *Resolver) Resolve(ctx context.Context, id Identifier) (*Party, error) {
	partyType, resourceID, err := r.externalResource(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.store.Parties().Insert(ctx, &Party{Type: partyType, ExternalResourceID: resourceID}); err != nil {
		return nil, &PartyResolutionError{Identifier: id, Err: err}
	}
	p, err := r.store.Parties().FindByTypeAndResource(ctx, partyType, resourceID)
	if err != nil {
		return nil, &PartyResolutionError{Identifier: id, Err: err}
	}
	return p, nil
}

func (r *Resolver) externalResource(ctx context.Context, id Identifier) (PartyType, string, error) {
	switch id.IDType {
	case IDTypeNationalID:
		person, err := r.persons.FindOrCreateByNin(ctx, id.IDValue)
		if err != nil {
			return "", "", &PersonResolutionError{Err: err}
		}
		return PartyTypePerson, person.InternalID, nil
	case IDTypeOrganizationNumber:
		return PartyTypeOrganization, id.IDValue, nil
	case IDTypeGLN:
		return PartyTypeOrganizationEntity, id.IDValue, nil
	case IDTypeSystem:
		return PartyTypeSystem, id.IDValue, nil
	default:
		return "", "", &PartyResolutionError{Identifier: id, Err: fmt.Errorf("%w: unknown id type %q", ErrInvalidInput, id.IDType)}
	}
}
