package authorization

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/elhub/auth-grant-manager-sub001/internal/obs"
)

// FileGenerator renders the contract document for the end user.
type FileGenerator interface {
	Generate(ctx context.Context, signerNin string, properties map[string]string) ([]byte, error)
}

// FileSigner applies the system signature to rendered content.
type FileSigner interface {
	Sign(ctx context.Context, content []byte) ([]byte, error)
}

// SignatureValidator checks a returned signed file against the original
// content and the expected signer identity. Implemented by pades.Validator.
type SignatureValidator interface {
	Validate(signedFile, original []byte, expectedNin string) error
}

// DocumentService drives the authorization-document lifecycle: generate and
// system-sign at creation, then confirm with the end user's counter-signature.
type DocumentService struct {
	store     Store
	resolver  *Resolver
	generator FileGenerator
	signer    FileSigner
	validator SignatureValidator
	now       func() time.Time
}

// DocumentOption configures a DocumentService.
type DocumentOption func(*DocumentService)

// WithDocumentClock overrides the time source, mainly for tests.
func WithDocumentClock(now func() time.Time) DocumentOption {
	return func(s *DocumentService) { s.now = now }
}

// NewDocumentService wires the document lifecycle.
func NewDocumentService(store Store, resolver *Resolver, generator FileGenerator, signer FileSigner, validator SignatureValidator, opts ...DocumentOption) *DocumentService {
	s := &DocumentService{
		store:     store,
		resolver:  resolver,
		generator: generator,
		signer:    signer,
		validator: validator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDocument resolves the command's parties, renders the contract,
// system-signs it and stores the Pending document. The signer's national
// identity number is kept as a document property so confirmation can check
// the counter-signature against it.
func (s *DocumentService) CreateDocument(ctx context.Context, cmd Command) (*Document, error) {
	if !cmd.Process.Valid() {
		return nil, fmt.Errorf("%w: unknown process type %q", ErrInvalidInput, cmd.Process)
	}
	if cmd.RequestedFrom.IDType != IDTypeNationalID {
		return nil, fmt.Errorf("%w: document requestedFrom must be a person", ErrInvalidInput)
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

	signerNin := cmd.RequestedFrom.IDValue
	content, err := s.generator.Generate(ctx, signerNin, cmd.Properties)
	if err != nil {
		return nil, fmt.Errorf("generate document: %w", err)
	}
	signed, err := s.signer.Sign(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("sign document: %w", err)
	}

	doc := &Document{
		Type:          cmd.Process,
		Status:        DocumentStatusPending,
		File:          signed,
		OriginalFile:  content,
		RequestedBy:   requestedBy.ID,
		RequestedFrom: requestedFrom.ID,
		RequestedTo:   requestedTo.ID,
		ValidTo:       s.now().Add(cmd.Process.PendingValidity()),
		Properties:    append(commandProperties(cmd), Property{Key: PropertySignerNin, Value: signerNin}),
		Scopes:        commandScopes(cmd),
	}
	if err := s.store.Documents().Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument returns the document if the caller is a party to it. The party
// the process is directed at (requestedTo) never sees the contract itself.
func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID, caller Identifier) (*Document, error) {
	doc, err := s.store.Documents().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	if p.ID != doc.RequestedBy && p.ID != doc.RequestedFrom {
		return nil, ErrNotAuthorized
	}
	return doc, nil
}

// ListDocuments returns all documents in creation order.
func (s *DocumentService) ListDocuments(ctx context.Context) ([]*Document, error) {
	return s.store.Documents().List(ctx)
}

// ConfirmDocument completes the dual-signature protocol. Checks run in a fixed
// order so callers always see the most fundamental failure: existence, state,
// expiry, submitter identity, then signature validation. On success the
// document flips to Signed and its grant is issued in the same transaction.
func (s *DocumentService) ConfirmDocument(ctx context.Context, id uuid.UUID, requestedBy Identifier, signedFile []byte) (*Document, error) {
	doc, err := s.store.Documents().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != DocumentStatusPending {
		return nil, fmt.Errorf("%w: document is %s", ErrIllegalState, doc.Status)
	}
	if s.now().After(doc.ValidTo) {
		return nil, ErrExpired
	}
	submitter, err := s.resolver.Resolve(ctx, requestedBy)
	if err != nil {
		return nil, err
	}
	if submitter.ID != doc.RequestedBy {
		return nil, ErrInvalidRequestedBy
	}

	expectedNin, ok := doc.Property(PropertySignerNin)
	if !ok {
		return nil, fmt.Errorf("%w: document has no signer identity", ErrIllegalState)
	}
	if err := s.validator.Validate(signedFile, doc.OriginalFile, expectedNin); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx Store) error {
		grant, err := issueGrantTx(ctx, tx, grantSource{
			sourceType:    SourceDocument,
			sourceID:      doc.ID,
			requestedBy:   doc.RequestedBy,
			requestedFrom: doc.RequestedFrom,
			scopes:        doc.Scopes,
		}, s.now())
		if err != nil {
			return err
		}
		return tx.Documents().SetSigned(ctx, doc.ID, submitter.ID, grant.ID, signedFile)
	})
	if err != nil {
		return nil, err
	}
	obs.DocumentConfirmed()
	return s.store.Documents().Find(ctx, id)
}
