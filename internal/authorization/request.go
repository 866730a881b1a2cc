package authorization

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestService drives the authorization-request lifecycle: create as
// Pending, then accept (issuing a grant) or reject.
type RequestService struct {
	store    Store
	resolver *Resolver
	now      func() time.Time
}

// RequestOption configures a RequestService.
type RequestOption func(*RequestService)

// WithRequestClock overrides the time source, mainly for tests.
func WithRequestClock(now func() time.Time) RequestOption {
	return func(s *RequestService) { s.now = now }
}

// NewRequestService wires the request lifecycle over a store and resolver.
func NewRequestService(store Store, resolver *Resolver, opts ...RequestOption) *RequestService {
	s := &RequestService{store: store, resolver: resolver, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest resolves the three parties of the validated command and stores
// a Pending request with the process-specific validity window.
func (s *RequestService) CreateRequest(ctx context.Context, cmd Command) (*Request, error) {
	if !cmd.Process.Valid() {
		return nil, fmt.Errorf("%w: unknown process type %q", ErrInvalidInput, cmd.Process)
	}
	requestedBy, err := s.resolver.Resolve(ctx, cmd.RequestedBy)
	if err != nil {
		return nil, err
	}
	requestedFrom, err := s.resolver.Resolve(ctx, cmd.RequestedFrom)
	if err != nil {
		return nil, err
	}
	requestedTo, err := s.resolver.Resolve(ctx, cmd.RequestedTo)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Type:          cmd.Process,
		Status:        RequestStatusPending,
		RequestedBy:   requestedBy.ID,
		RequestedFrom: requestedFrom.ID,
		RequestedTo:   requestedTo.ID,
		ValidTo:       s.now().Add(cmd.Process.PendingValidity()),
		Properties:    commandProperties(cmd),
		Scopes:        commandScopes(cmd),
	}
	if err := s.store.Requests().Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// FindRequest returns the request by id.
func (s *RequestService) FindRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.store.Requests().Find(ctx, id)
}

// ListRequests returns all requests in creation order.
func (s *RequestService) ListRequests(ctx context.Context) ([]*Request, error) {
	return s.store.Requests().List(ctx)
}

// AcceptRequest flips a pending request to Accepted and issues its grant in
// one transaction. Only the party the request was directed at may accept.
func (s *RequestService) AcceptRequest(ctx context.Context, id uuid.UUID, approver Identifier) (*Request, error) {
	req, err := s.store.Requests().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestStatusPending {
		return nil, fmt.Errorf("%w: request is %s", ErrIllegalState, req.Status)
	}
	if s.now().After(req.ValidTo) {
		return nil, ErrExpired
	}
	approvedBy, err := s.resolver.Resolve(ctx, approver)
	if err != nil {
		return nil, err
	}
	if approvedBy.ID != req.RequestedFrom {
		return nil, ErrNotAuthorized
	}

	var grant *Grant
	err = s.store.WithinTx(ctx, func(tx Store) error {
		grant, err = issueGrantTx(ctx, tx, grantSource{
			sourceType:    SourceRequest,
			sourceID:      req.ID,
			requestedBy:   req.RequestedBy,
			requestedFrom: req.RequestedFrom,
			scopes:        req.Scopes,
		}, s.now())
		if err != nil {
			return err
		}
		return tx.Requests().SetAccepted(ctx, req.ID, approvedBy.ID, grant.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Requests().Find(ctx, id)
}

// RejectRequest flips a pending request to Rejected. No grant is issued.
func (s *RequestService) RejectRequest(ctx context.Context, id uuid.UUID, approver Identifier) (*Request, error) {
	req, err := s.store.Requests().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != RequestStatusPending {
		return nil, fmt.Errorf("%w: request is %s", ErrIllegalState, req.Status)
	}
	approvedBy, err := s.resolver.Resolve(ctx, approver)
	if err != nil {
		return nil, err
	}
	if approvedBy.ID != req.RequestedFrom {
		return nil, ErrNotAuthorized
	}
	if err := s.store.Requests().SetRejected(ctx, req.ID); err != nil {
		return nil, err
	}
	return s.store.Requests().Find(ctx, id)
}

func commandProperties(cmd Command) []Property {
	props := make([]Property, 0, len(cmd.Properties))
	for k, v := range cmd.Properties {
		props = append(props, Property{Key: k, Value: v})
	}
	return props
}

func commandScopes(cmd Command) []Scope {
	scopes := make([]Scope, 0, len(cmd.Scopes))
	for _, spec := range cmd.Scopes {
		scopes = append(scopes, Scope{
			AuthorizedResourceType: spec.ResourceType,
			AuthorizedResourceID:   spec.ResourceID,
			PermissionType:         spec.Permission,
		})
	}
	return scopes
}
