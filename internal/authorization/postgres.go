package authorization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ Store = (*PGStore)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
	q  querier
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db, q: db}
}

func (s *PGStore) Parties() PartyStore      { return &pgPartyStore{q: s.q} }
func (s *PGStore) Requests() RequestStore   { return &pgRequestStore{q: s.q, store: s} }
func (s *PGStore) Documents() DocumentStore { return &pgDocumentStore{q: s.q, store: s} }
func (s *PGStore) Grants() GrantStore       { return &pgGrantStore{q: s.q} }

// WithinTx runs fn against a transaction-scoped store. Nested calls reuse the
// surrounding transaction.
func (s *PGStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&PGStore{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Party store ---------------------------------------------------------------

type pgPartyStore struct{ q querier }

func (s *pgPartyStore) Insert(ctx context.Context, p *Party) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := s.q.ExecContext(ctx,
		`insert into authorization_party(id, party_type, external_resource_id)
		 values($1,$2,$3)
		 on conflict (party_type, external_resource_id) do nothing`,
		p.ID, p.Type, p.ExternalResourceID,
	)
	return err
}

func (s *pgPartyStore) FindByTypeAndResource(ctx context.Context, t PartyType, resourceID string) (*Party, error) {
	row := s.q.QueryRowContext(ctx,
		`select id, party_type, external_resource_id, created_at
		 from authorization_party where party_type=$1 and external_resource_id=$2`,
		t, resourceID,
	)
	return scanParty(row)
}

func (s *pgPartyStore) Find(ctx context.Context, id uuid.UUID) (*Party, error) {
	row := s.q.QueryRowContext(ctx,
		`select id, party_type, external_resource_id, created_at
		 from authorization_party where id=$1`, id,
	)
	return scanParty(row)
}

func scanParty(row *sql.Row) (*Party, error) {
	var p Party
	if err := row.Scan(&p.ID, &p.Type, &p.ExternalResourceID, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Scope helpers -------------------------------------------------------------

func insertScopes(ctx context.Context, q querier, linkTable, ownerColumn string, ownerID uuid.UUID, scopes []Scope) error {
	for i := range scopes {
		sc := &scopes[i]
		if sc.ID == uuid.Nil {
			sc.ID = uuid.New()
		}
		if _, err := q.ExecContext(ctx,
			`insert into authorization_scope(id, authorized_resource_type, authorized_resource_id, permission_type)
			 values($1,$2,$3,$4)`,
			sc.ID, sc.AuthorizedResourceType, sc.AuthorizedResourceID, sc.PermissionType,
		); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`insert into `+linkTable+`(`+ownerColumn+`, scope_id) values($1,$2)`,
			ownerID, sc.ID,
		); err != nil {
			return err
		}
	}
	return nil
}

func loadScopes(ctx context.Context, q querier, linkTable, ownerColumn string, ownerID uuid.UUID) ([]Scope, error) {
	rows, err := q.QueryContext(ctx,
		`select s.id, s.authorized_resource_type, s.authorized_resource_id, s.permission_type, s.created_at
		 from authorization_scope s
		 join `+linkTable+` l on l.scope_id=s.id
		 where l.`+ownerColumn+`=$1
		 order by s.created_at`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []Scope
	for rows.Next() {
		var sc Scope
		if err := rows.Scan(&sc.ID, &sc.AuthorizedResourceType, &sc.AuthorizedResourceID, &sc.PermissionType, &sc.CreatedAt); err != nil {
			return nil, err
		}
		scopes = append(scopes, sc)
	}
	return scopes, rows.Err()
}

func insertProperties(ctx context.Context, q querier, table, ownerColumn string, ownerID uuid.UUID, props []Property) error {
	for _, p := range props {
		if _, err := q.ExecContext(ctx,
			`insert into `+table+`(`+ownerColumn+`, key, value) values($1,$2,$3)`,
			ownerID, p.Key, p.Value,
		); err != nil {
			return err
		}
	}
	return nil
}

func loadProperties(ctx context.Context, q querier, table, ownerColumn string, ownerID uuid.UUID) ([]Property, error) {
	rows, err := q.QueryContext(ctx,
		`select key, value from `+table+` where `+ownerColumn+`=$1 order by key`, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

// Request store -------------------------------------------------------------

type pgRequestStore struct {
	q     querier
	store *PGStore
}

func (s *pgRequestStore) Create(ctx context.Context, r *Request) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return s.store.WithinTx(ctx, func(tx Store) error {
		q := tx.(*PGStore).q
		if _, err := q.ExecContext(ctx,
			`insert into authorization_request(id, request_type, status, requested_by, requested_from, requested_to, valid_to)
			 values($1,$2,$3,$4,$5,$6,$7)`,
			r.ID, r.Type, r.Status, r.RequestedBy, r.RequestedFrom, r.RequestedTo, r.ValidTo,
		); err != nil {
			return err
		}
		if err := insertProperties(ctx, q, "authorization_request_property", "request_id", r.ID, r.Properties); err != nil {
			return err
		}
		return insertScopes(ctx, q, "authorization_request_scope", "request_id", r.ID, r.Scopes)
	})
}

const requestColumns = `id, request_type, status, requested_by, requested_from, requested_to, approved_by, grant_id, valid_to, created_at, updated_at`

func (s *pgRequestStore) Find(ctx context.Context, id uuid.UUID) (*Request, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+requestColumns+` from authorization_request where id=$1`, id)
	r, err := scanRequest(row)
	if err != nil {
		return nil, err
	}
	if r.Properties, err = loadProperties(ctx, s.q, "authorization_request_property", "request_id", r.ID); err != nil {
		return nil, err
	}
	if r.Scopes, err = loadScopes(ctx, s.q, "authorization_request_scope", "request_id", r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *pgRequestStore) List(ctx context.Context) ([]*Request, error) {
	rows, err := s.q.QueryContext(ctx,
		`select `+requestColumns+` from authorization_request order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Request
	for rows.Next() {
		r, err := scanRequestRows(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *pgRequestStore) SetAccepted(ctx context.Context, id, approvedBy, grantID uuid.UUID) error {
	return execExpectingRow(ctx, s.q,
		`update authorization_request
		 set status=$2, approved_by=$3, grant_id=$4, updated_at=now()
		 where id=$1`,
		id, RequestStatusAccepted, approvedBy, grantID,
	)
}

func (s *pgRequestStore) SetRejected(ctx context.Context, id uuid.UUID) error {
	return execExpectingRow(ctx, s.q,
		`update authorization_request set status=$2, updated_at=now() where id=$1`,
		id, RequestStatusRejected,
	)
}

func scanRequest(row *sql.Row) (*Request, error) {
	var (
		r          Request
		approvedBy uuid.NullUUID
		grantID    uuid.NullUUID
	)
	if err := row.Scan(&r.ID, &r.Type, &r.Status, &r.RequestedBy, &r.RequestedFrom, &r.RequestedTo,
		&approvedBy, &grantID, &r.ValidTo, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	applyNullable(&r.ApprovedBy, approvedBy)
	applyNullable(&r.GrantID, grantID)
	return &r, nil
}

func scanRequestRows(rows *sql.Rows) (*Request, error) {
	var (
		r          Request
		approvedBy uuid.NullUUID
		grantID    uuid.NullUUID
	)
	if err := rows.Scan(&r.ID, &r.Type, &r.Status, &r.RequestedBy, &r.RequestedFrom, &r.RequestedTo,
		&approvedBy, &grantID, &r.ValidTo, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	applyNullable(&r.ApprovedBy, approvedBy)
	applyNullable(&r.GrantID, grantID)
	return &r, nil
}

// Document store ------------------------------------------------------------

type pgDocumentStore struct {
	q     querier
	store *PGStore
}

func (s *pgDocumentStore) Create(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return s.store.WithinTx(ctx, func(tx Store) error {
		q := tx.(*PGStore).q
		if _, err := q.ExecContext(ctx,
			`insert into authorization_document(id, document_type, status, file, original_file, requested_by, requested_from, requested_to, valid_to)
			 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			d.ID, d.Type, d.Status, d.File, d.OriginalFile, d.RequestedBy, d.RequestedFrom, d.RequestedTo, d.ValidTo,
		); err != nil {
			return err
		}
		if err := insertProperties(ctx, q, "authorization_document_property", "document_id", d.ID, d.Properties); err != nil {
			return err
		}
		return insertScopes(ctx, q, "authorization_document_scope", "document_id", d.ID, d.Scopes)
	})
}

const documentColumns = `id, document_type, status, file, original_file, requested_by, requested_from, requested_to, signed_by, grant_id, valid_to, created_at, updated_at`

func (s *pgDocumentStore) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+documentColumns+` from authorization_document where id=$1`, id)
	d, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if d.Properties, err = loadProperties(ctx, s.q, "authorization_document_property", "document_id", d.ID); err != nil {
		return nil, err
	}
	if d.Scopes, err = loadScopes(ctx, s.q, "authorization_document_scope", "document_id", d.ID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *pgDocumentStore) List(ctx context.Context) ([]*Document, error) {
	rows, err := s.q.QueryContext(ctx,
		`select `+documentColumns+` from authorization_document order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (s *pgDocumentStore) SetSigned(ctx context.Context, id, signedBy, grantID uuid.UUID, signedFile []byte) error {
	return execExpectingRow(ctx, s.q,
		`update authorization_document
		 set status=$2, signed_by=$3, grant_id=$4, file=$5, updated_at=now()
		 where id=$1`,
		id, DocumentStatusSigned, signedBy, grantID, signedFile,
	)
}

func scanDocument(row *sql.Row) (*Document, error) {
	var (
		d        Document
		signedBy uuid.NullUUID
		grantID  uuid.NullUUID
	)
	if err := row.Scan(&d.ID, &d.Type, &d.Status, &d.File, &d.OriginalFile,
		&d.RequestedBy, &d.RequestedFrom, &d.RequestedTo,
		&signedBy, &grantID, &d.ValidTo, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	applyNullable(&d.SignedBy, signedBy)
	applyNullable(&d.GrantID, grantID)
	return &d, nil
}

func scanDocumentRows(rows *sql.Rows) (*Document, error) {
	var (
		d        Document
		signedBy uuid.NullUUID
		grantID  uuid.NullUUID
	)
	if err := rows.Scan(&d.ID, &d.Type, &d.Status, &d.File, &d.OriginalFile,
		&d.RequestedBy, &d.RequestedFrom, &d.RequestedTo,
		&signedBy, &grantID, &d.ValidTo, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	applyNullable(&d.SignedBy, signedBy)
	applyNullable(&d.GrantID, grantID)
	return &d, nil
}

// Grant store ---------------------------------------------------------------

type pgGrantStore struct{ q querier }

func (s *pgGrantStore) Insert(ctx context.Context, g *Grant) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if _, err := s.q.ExecContext(ctx,
		`insert into authorization_grant(id, grant_status, granted_for, granted_by, granted_to, granted_at, valid_from, valid_to, source_type, source_id)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		g.ID, g.Status, g.GrantedFor, g.GrantedBy, g.GrantedTo, g.GrantedAt, g.ValidFrom, g.ValidTo, g.SourceType, g.SourceID,
	); err != nil {
		// The unique (source_type, source_id) index backs the issue-once rule.
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: grant already issued for %s %s", ErrIllegalState, g.SourceType, g.SourceID)
		}
		return err
	}
	for _, scopeID := range g.ScopeIDs {
		if _, err := s.q.ExecContext(ctx,
			`insert into authorization_grant_scope(grant_id, scope_id) values($1,$2)`,
			g.ID, scopeID,
		); err != nil {
			return err
		}
	}
	return nil
}

const grantColumns = `id, grant_status, granted_for, granted_by, granted_to, granted_at, valid_from, valid_to, source_type, source_id`

func (s *pgGrantStore) Find(ctx context.Context, id uuid.UUID) (*Grant, error) {
	row := s.q.QueryRowContext(ctx,
		`select `+grantColumns+` from authorization_grant where id=$1`, id)
	var g Grant
	if err := row.Scan(&g.ID, &g.Status, &g.GrantedFor, &g.GrantedBy, &g.GrantedTo,
		&g.GrantedAt, &g.ValidFrom, &g.ValidTo, &g.SourceType, &g.SourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	if g.ScopeIDs, err = s.scopeIDs(ctx, g.ID); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *pgGrantStore) List(ctx context.Context) ([]*Grant, error) {
	rows, err := s.q.QueryContext(ctx,
		`select `+grantColumns+` from authorization_grant order by granted_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.Status, &g.GrantedFor, &g.GrantedBy, &g.GrantedTo,
			&g.GrantedAt, &g.ValidFrom, &g.ValidTo, &g.SourceType, &g.SourceID); err != nil {
			return nil, err
		}
		res = append(res, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, g := range res {
		var err error
		if g.ScopeIDs, err = s.scopeIDs(ctx, g.ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *pgGrantStore) UpdateStatus(ctx context.Context, id uuid.UUID, status GrantStatus) error {
	return execExpectingRow(ctx, s.q,
		`update authorization_grant set grant_status=$2 where id=$1`,
		id, status,
	)
}

func (s *pgGrantStore) scopeIDs(ctx context.Context, grantID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.q.QueryContext(ctx,
		`select scope_id from authorization_grant_scope where grant_id=$1`, grantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// helpers -------------------------------------------------------------------

func execExpectingRow(ctx context.Context, q querier, query string, args ...any) error {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func applyNullable(dst **uuid.UUID, src uuid.NullUUID) {
	if src.Valid {
		v := src.UUID
		*dst = &v
	}
}
