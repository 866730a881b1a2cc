package authorization

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*InMemory)(nil)

// InMemory is a map-backed Store used in tests and the smoke tool. WithinTx
// serializes callers under the store mutex; there is no rollback.
type InMemory struct {
	mu        sync.Mutex
	parties   map[uuid.UUID]*Party
	requests  map[uuid.UUID]*Request
	documents map[uuid.UUID]*Document
	grants    map[uuid.UUID]*Grant
	order     []uuid.UUID

	now func() time.Time
}

// NewInMemory returns an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		parties:   make(map[uuid.UUID]*Party),
		requests:  make(map[uuid.UUID]*Request),
		documents: make(map[uuid.UUID]*Document),
		grants:    make(map[uuid.UUID]*Grant),
		now:       time.Now,
	}
}

func (m *InMemory) Parties() PartyStore      { return &memPartyStore{m} }
func (m *InMemory) Requests() RequestStore   { return &memRequestStore{m} }
func (m *InMemory) Documents() DocumentStore { return &memDocumentStore{m} }
func (m *InMemory) Grants() GrantStore       { return &memGrantStore{m} }

func (m *InMemory) WithinTx(_ context.Context, fn func(Store) error) error {
	return fn(m)
}

type memPartyStore struct{ m *InMemory }

func (s *memPartyStore) Insert(_ context.Context, p *Party) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.parties {
		if existing.Type == p.Type && existing.ExternalResourceID == p.ExternalResourceID {
			return nil
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.m.now()
	}
	cp := *p
	s.m.parties[p.ID] = &cp
	return nil
}

func (s *memPartyStore) FindByTypeAndResource(_ context.Context, t PartyType, resourceID string) (*Party, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, p := range s.m.parties {
		if p.Type == t && p.ExternalResourceID == resourceID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memPartyStore) Find(_ context.Context, id uuid.UUID) (*Party, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.parties[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type memRequestStore struct{ m *InMemory }

func (s *memRequestStore) Create(_ context.Context, r *Request) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := s.m.now()
	r.CreatedAt, r.UpdatedAt = now, now
	for i := range r.Scopes {
		if r.Scopes[i].ID == uuid.Nil {
			r.Scopes[i].ID = uuid.New()
		}
		if r.Scopes[i].CreatedAt.IsZero() {
			r.Scopes[i].CreatedAt = now
		}
	}
	cp := cloneRequest(r)
	s.m.requests[r.ID] = cp
	s.m.order = append(s.m.order, r.ID)
	return nil
}

func (s *memRequestStore) Find(_ context.Context, id uuid.UUID) (*Request, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	r, ok := s.m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRequest(r), nil
}

func (s *memRequestStore) List(_ context.Context) ([]*Request, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var res []*Request
	for _, id := range s.m.order {
		if r, ok := s.m.requests[id]; ok {
			res = append(res, cloneRequest(r))
		}
	}
	return res, nil
}

func (s *memRequestStore) SetAccepted(_ context.Context, id, approvedBy, grantID uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	r, ok := s.m.requests[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = RequestStatusAccepted
	r.ApprovedBy = &approvedBy
	r.GrantID = &grantID
	r.UpdatedAt = s.m.now()
	return nil
}

func (s *memRequestStore) SetRejected(_ context.Context, id uuid.UUID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	r, ok := s.m.requests[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = RequestStatusRejected
	r.UpdatedAt = s.m.now()
	return nil
}

type memDocumentStore struct{ m *InMemory }

func (s *memDocumentStore) Create(_ context.Context, d *Document) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := s.m.now()
	d.CreatedAt, d.UpdatedAt = now, now
	for i := range d.Scopes {
		if d.Scopes[i].ID == uuid.Nil {
			d.Scopes[i].ID = uuid.New()
		}
		if d.Scopes[i].CreatedAt.IsZero() {
			d.Scopes[i].CreatedAt = now
		}
	}
	cp := cloneDocument(d)
	s.m.documents[d.ID] = cp
	s.m.order = append(s.m.order, d.ID)
	return nil
}

func (s *memDocumentStore) Find(_ context.Context, id uuid.UUID) (*Document, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	d, ok := s.m.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(d), nil
}

func (s *memDocumentStore) List(_ context.Context) ([]*Document, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var res []*Document
	for _, id := range s.m.order {
		if d, ok := s.m.documents[id]; ok {
			res = append(res, cloneDocument(d))
		}
	}
	return res, nil
}

func (s *memDocumentStore) SetSigned(_ context.Context, id, signedBy, grantID uuid.UUID, signedFile []byte) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	d, ok := s.m.documents[id]
	if !ok {
		return ErrNotFound
	}
	d.Status = DocumentStatusSigned
	d.SignedBy = &signedBy
	d.GrantID = &grantID
	d.File = append([]byte(nil), signedFile...)
	d.UpdatedAt = s.m.now()
	return nil
}

type memGrantStore struct{ m *InMemory }

func (s *memGrantStore) Insert(_ context.Context, g *Grant) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.grants {
		if existing.SourceType == g.SourceType && existing.SourceID == g.SourceID {
			return ErrIllegalState
		}
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	cp := *g
	cp.ScopeIDs = append([]uuid.UUID(nil), g.ScopeIDs...)
	s.m.grants[g.ID] = &cp
	s.m.order = append(s.m.order, g.ID)
	return nil
}

func (s *memGrantStore) Find(_ context.Context, id uuid.UUID) (*Grant, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	g, ok := s.m.grants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	cp.ScopeIDs = append([]uuid.UUID(nil), g.ScopeIDs...)
	return &cp, nil
}

func (s *memGrantStore) List(_ context.Context) ([]*Grant, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var res []*Grant
	for _, id := range s.m.order {
		if g, ok := s.m.grants[id]; ok {
			cp := *g
			cp.ScopeIDs = append([]uuid.UUID(nil), g.ScopeIDs...)
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *memGrantStore) UpdateStatus(_ context.Context, id uuid.UUID, status GrantStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	g, ok := s.m.grants[id]
	if !ok {
		return ErrNotFound
	}
	g.Status = status
	return nil
}

func cloneRequest(r *Request) *Request {
	cp := *r
	cp.Properties = append([]Property(nil), r.Properties...)
	cp.Scopes = append([]Scope(nil), r.Scopes...)
	if r.ApprovedBy != nil {
		v := *r.ApprovedBy
		cp.ApprovedBy = &v
	}
	if r.GrantID != nil {
		v := *r.GrantID
		cp.GrantID = &v
	}
	return &cp
}

func cloneDocument(d *Document) *Document {
	cp := *d
	cp.File = append([]byte(nil), d.File...)
	cp.OriginalFile = append([]byte(nil), d.OriginalFile...)
	cp.Properties = append([]Property(nil), d.Properties...)
	cp.Scopes = append([]Scope(nil), d.Scopes...)
	if d.SignedBy != nil {
		v := *d.SignedBy
		cp.SignedBy = &v
	}
	if d.GrantID != nil {
		v := *d.GrantID
		cp.GrantID = &v
	}
	return &cp
}
