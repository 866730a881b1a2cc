// Package refdata holds the reference-data collaborators the authorization
// core depends on: persons, organisations, metering points and the
// price-comparison service. Each client speaks JSON over HTTP and surfaces
// failures through the shared ClientError taxonomy so callers can translate
// them without knowing transport details.
package refdata

import (
	"context"
	"fmt"
)

// ErrorKind classifies a collaborator failure.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NotFound"
	KindBadRequest   ErrorKind = "BadRequest"
	KindUnauthorized ErrorKind = "Unauthorized"
	KindServerError  ErrorKind = "ServerError"
	KindUnexpected   ErrorKind = "UnexpectedError"
)

// ClientError is returned by every refdata client. Kind is the only field
// callers should branch on.
type ClientError struct {
	Kind   ErrorKind
	Op     string
	Status int
	Err    error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("refdata: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("refdata: %s: %s (status %d)", e.Op, e.Kind, e.Status)
}

func (e *ClientError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a ClientError of kind NotFound.
func IsNotFound(err error) bool {
	ce, ok := err.(*ClientError)
	return ok && ce.Kind == KindNotFound
}

// Person is the internal representation returned by the person registry.
type Person struct {
	InternalID string `json:"internalId"`
}

// OrganisationParty describes a market party held by the organisation registry.
type OrganisationParty struct {
	PartyID            string `json:"partyId"`
	Status             string `json:"status"`
	OrganizationNumber string `json:"organizationNumber"`
	Name               string `json:"name"`
}

// MeteringPoint is the snapshot used for business-process validation.
type MeteringPoint struct {
	ID                     string `json:"id"`
	EndUserID              string `json:"endUserId,omitempty"`
	AccessType             string `json:"accessType"`
	BlockedForSwitching    bool   `json:"blockedForSwitching"`
	CurrentSupplierPartyID string `json:"currentSupplierPartyId"`
	MeterNumber            string `json:"meterNumber"`
}

// Product is a balance-supplier contract known to the price-comparison service.
type Product struct {
	Name string `json:"name"`
}

// PersonDirectory resolves national identity numbers to internal person ids.
type PersonDirectory interface {
	FindOrCreateByNin(ctx context.Context, nin string) (Person, error)
}

// OrganisationDirectory looks up market parties.
type OrganisationDirectory interface {
	PartyByIDAndType(ctx context.Context, id, partyType string) (OrganisationParty, error)
}

// MeteringPointDirectory looks up metering points scoped to an end user.
type MeteringPointDirectory interface {
	ByIDAndElhubInternalID(ctx context.Context, id, elhubInternalID string) (MeteringPoint, error)
}

// ProductCatalog lists supplier contracts for the contract-name cross-check.
type ProductCatalog interface {
	ProductsByOrganizationNumber(ctx context.Context, orgNumber string) ([]Product, error)
}
