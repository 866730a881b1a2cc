// Package authorization implements the consent lifecycle engine for
// energy-market account changes: authorization requests, dual-signed
// authorization documents and the grants issued when either completes.
package authorization

import (
	"time"

	"github.com/google/uuid"
)

// PartyType classifies an actor in the authorization model.
type PartyType string

const (
	PartyTypePerson             PartyType = "Person"
	PartyTypeOrganization       PartyType = "Organization"
	PartyTypeOrganizationEntity PartyType = "OrganizationEntity"
	PartyTypeSystem             PartyType = "System"
)

// IDType names the kind of external identifier presented by a caller.
type IDType string

const (
	IDTypeNationalID         IDType = "NationalIdentityNumber"
	IDTypeOrganizationNumber IDType = "OrganizationNumber"
	IDTypeGLN                IDType = "GlobalLocationNumber"
	IDTypeSystem             IDType = "System"
)

// Identifier is an external party identifier as presented by callers.
type Identifier struct {
	IDType  IDType `json:"idType"`
	IDValue string `json:"idValue"`
}

// Party is an internal actor record, de-duplicated by (type, externalResourceId).
// Immutable once created.
type Party struct {
	ID                 uuid.UUID `json:"id"`
	Type               PartyType `json:"type"`
	ExternalResourceID string    `json:"externalResourceId"`
	CreatedAt          time.Time `json:"createdAt"`
}

// ResourceType names what kind of resource a scope authorizes access to.
type ResourceType string

const ResourceMeteringPoint ResourceType = "MeteringPoint"

// PermissionType is the concrete permission carried by a scope.
type PermissionType string

const (
	PermissionChangeOfSupplierForPerson                 PermissionType = "ChangeOfSupplierForPerson"
	PermissionChangeOfBalanceSupplierForPerson          PermissionType = "ChangeOfBalanceSupplierForPerson"
	PermissionChangeOfEnergySupplierForPerson           PermissionType = "ChangeOfEnergySupplierForPerson"
	PermissionMoveInForPerson                           PermissionType = "MoveInForPerson"
	PermissionMoveInAndChangeOfBalanceSupplierForPerson PermissionType = "MoveInAndChangeOfBalanceSupplierForPerson"
	PermissionMoveInAndChangeOfEnergySupplierForPerson  PermissionType = "MoveInAndChangeOfEnergySupplierForPerson"
)

// Scope is one authorized (resource type, resource id, permission) triple.
// Scopes are created with, and owned by, a request or document; grants
// reference them by id.
type Scope struct {
	ID                     uuid.UUID      `json:"id"`
	AuthorizedResourceType ResourceType   `json:"authorizedResourceType"`
	AuthorizedResourceID   string         `json:"authorizedResourceId"`
	PermissionType         PermissionType `json:"permissionType"`
	CreatedAt              time.Time      `json:"createdAt"`
}

// ProcessType is one of the fixed energy-market authorization flows.
type ProcessType string

const (
	ProcessChangeOfSupplier                 ProcessType = "ChangeOfSupplier"
	ProcessChangeOfBalanceSupplier          ProcessType = "ChangeOfBalanceSupplier"
	ProcessChangeOfEnergySupplier           ProcessType = "ChangeOfEnergySupplier"
	ProcessMoveIn                           ProcessType = "MoveIn"
	ProcessMoveInAndChangeOfBalanceSupplier ProcessType = "MoveInAndChangeOfBalanceSupplier"
	ProcessMoveInAndChangeOfEnergySupplier  ProcessType = "MoveInAndChangeOfEnergySupplier"
)

// Valid reports whether p is one of the known process types.
func (p ProcessType) Valid() bool {
	switch p {
	case ProcessChangeOfSupplier, ProcessChangeOfBalanceSupplier, ProcessChangeOfEnergySupplier,
		ProcessMoveIn, ProcessMoveInAndChangeOfBalanceSupplier, ProcessMoveInAndChangeOfEnergySupplier:
		return true
	}
	return false
}

// IsMoveIn reports whether the flow registers a new end user on the metering point.
func (p ProcessType) IsMoveIn() bool {
	switch p {
	case ProcessMoveIn, ProcessMoveInAndChangeOfBalanceSupplier, ProcessMoveInAndChangeOfEnergySupplier:
		return true
	}
	return false
}

// Permission returns the scope permission granted by the process.
func (p ProcessType) Permission() PermissionType {
	switch p {
	case ProcessChangeOfSupplier:
		return PermissionChangeOfSupplierForPerson
	case ProcessChangeOfBalanceSupplier:
		return PermissionChangeOfBalanceSupplierForPerson
	case ProcessChangeOfEnergySupplier:
		return PermissionChangeOfEnergySupplierForPerson
	case ProcessMoveIn:
		return PermissionMoveInForPerson
	case ProcessMoveInAndChangeOfBalanceSupplier:
		return PermissionMoveInAndChangeOfBalanceSupplierForPerson
	case ProcessMoveInAndChangeOfEnergySupplier:
		return PermissionMoveInAndChangeOfEnergySupplierForPerson
	}
	return ""
}

const (
	defaultPendingValidity = 30 * 24 * time.Hour
	moveInPendingValidity  = 28 * 24 * time.Hour

	// Grants are valid 30 days from issuance; consumers exhaust them well
	// before that when the market process completes.
	grantValidity = 30 * 24 * time.Hour
)

// PendingValidity returns how long a pending request or document stays
// confirmable. Move-in flows use the shorter 28-day window.
func (p ProcessType) PendingValidity() time.Duration {
	if p.IsMoveIn() {
		return moveInPendingValidity
	}
	return defaultPendingValidity
}

// RequestStatus is the authorization-request state. Accepted, Rejected and
// Expired are terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "Pending"
	RequestStatusAccepted RequestStatus = "Accepted"
	RequestStatusRejected RequestStatus = "Rejected"
	RequestStatusExpired  RequestStatus = "Expired"
)

// DocumentStatus is the authorization-document state. Signed, Rejected and
// Expired are terminal.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "Pending"
	DocumentStatusSigned   DocumentStatus = "Signed"
	DocumentStatusRejected DocumentStatus = "Rejected"
	DocumentStatusExpired  DocumentStatus = "Expired"
)

// GrantStatus is the grant state, mutated only through consumption.
type GrantStatus string

const (
	GrantStatusActive    GrantStatus = "Active"
	GrantStatusExhausted GrantStatus = "Exhausted"
	GrantStatusRevoked   GrantStatus = "Revoked"
	GrantStatusExpired   GrantStatus = "Expired"
)

// Valid reports whether s is a known grant status.
func (s GrantStatus) Valid() bool {
	switch s {
	case GrantStatusActive, GrantStatusExhausted, GrantStatusRevoked, GrantStatusExpired:
		return true
	}
	return false
}

// SourceType names which entity a grant was issued from.
type SourceType string

const (
	SourceDocument SourceType = "Document"
	SourceRequest  SourceType = "Request"
)

// Property is process-specific key/value metadata stored with a request or
// document (metering point address, contract name, signer NIN and so on).
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PropertySignerNin is the property key under which document creation embeds
// the end user's national identity number for later signature validation.
const PropertySignerNin = "signerNin"

// Request is a promise that a document will later be produced and signed.
type Request struct {
	ID            uuid.UUID     `json:"id"`
	Type          ProcessType   `json:"type"`
	Status        RequestStatus `json:"status"`
	RequestedBy   uuid.UUID     `json:"requestedBy"`
	RequestedFrom uuid.UUID     `json:"requestedFrom"`
	RequestedTo   uuid.UUID     `json:"requestedTo"`
	ApprovedBy    *uuid.UUID    `json:"approvedBy,omitempty"`
	GrantID       *uuid.UUID    `json:"grantId,omitempty"`
	ValidTo       time.Time     `json:"validTo"`
	Properties    []Property    `json:"properties"`
	Scopes        []Scope       `json:"scopes"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Document is the dual-signed consent contract. File holds the current
// envelope (system-signed at creation, dual-signed once confirmed);
// OriginalFile holds the rendered content used for the byte-match check.
type Document struct {
	ID            uuid.UUID      `json:"id"`
	Type          ProcessType    `json:"type"`
	Status        DocumentStatus `json:"status"`
	File          []byte         `json:"file,omitempty"`
	OriginalFile  []byte         `json:"-"`
	RequestedBy   uuid.UUID      `json:"requestedBy"`
	RequestedFrom uuid.UUID      `json:"requestedFrom"`
	RequestedTo   uuid.UUID      `json:"requestedTo"`
	SignedBy      *uuid.UUID     `json:"signedBy,omitempty"`
	GrantID       *uuid.UUID     `json:"grantId,omitempty"`
	ValidTo       time.Time      `json:"validTo"`
	Properties    []Property     `json:"properties"`
	Scopes        []Scope        `json:"scopes"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Property returns the value stored under key, if any.
func (d *Document) Property(key string) (string, bool) {
	for _, p := range d.Properties {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Grant is the authorization issued from a confirmed document or accepted
// request. Immutable except for its status.
type Grant struct {
	ID         uuid.UUID   `json:"id"`
	Status     GrantStatus `json:"grantStatus"`
	GrantedFor uuid.UUID   `json:"grantedFor"`
	GrantedBy  uuid.UUID   `json:"grantedBy"`
	GrantedTo  uuid.UUID   `json:"grantedTo"`
	GrantedAt  time.Time   `json:"grantedAt"`
	ValidFrom  time.Time   `json:"validFrom"`
	ValidTo    time.Time   `json:"validTo"`
	SourceType SourceType  `json:"sourceType"`
	SourceID   uuid.UUID   `json:"sourceId"`
	ScopeIDs   []uuid.UUID `json:"scopeIds"`
}

// ScopeSpec describes a scope to be created with a request or document.
type ScopeSpec struct {
	ResourceType ResourceType
	ResourceID   string
	Permission   PermissionType
}

// Command is the normalized output of business-process validation, carrying
// everything needed to create a request or a document.
type Command struct {
	Process         ProcessType
	RequestedBy     Identifier
	RequestedFrom   Identifier
	RequestedTo     Identifier
	EndUserPersonID string
	Scopes          []ScopeSpec
	Properties      map[string]string
}
