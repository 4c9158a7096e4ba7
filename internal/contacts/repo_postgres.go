package contacts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"outdial-platform/internal/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists contacts in the externally owned relational store.
//
// Assumed tables:
// - contacts (dedupe_hash UNIQUE)
// - do_not_call (phone_e164 PRIMARY KEY)
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

// ErrDuplicatePhone signals a phone_e164 uniqueness violation on create.
var ErrDuplicatePhone = errors.New("contact with this phone already exists")

const contactColumns = `id, first_name, last_name, phone, phone_e164, email, tags, source, dedupe_hash, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c Contact) (Contact, error) {
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return Contact{}, apperr.Storef("encode tags: %v", err)
	}

	const q = `
INSERT INTO contacts (` + contactColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err = s.db.ExecContext(ctx, q,
		c.ID, c.FirstName, c.LastName, c.Phone, c.PhoneE164,
		c.Email, string(tags), c.Source, c.DedupeHash, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Contact{}, ErrDuplicatePhone
		}
		return Contact{}, apperr.Storef("insert contact: %v", err)
	}
	return c, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Contact, error) {
	const q = `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	c, err := scanContact(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, apperr.NotFoundf("Contact not found")
		}
		return Contact{}, apperr.Storef("get contact: %v", err)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context, lq ListQuery) (ListResult, error) {
	if lq.Page < 1 {
		lq.Page = 1
	}
	if lq.PerPage < 1 || lq.PerPage > 100 {
		lq.PerPage = 20
	}

	where, args := buildContactWhere(lq)

	var total int
	countQ := `SELECT COUNT(*) FROM contacts` + where
	if err := s.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return ListResult{}, apperr.Storef("count contacts: %v", err)
	}

	args = append(args, lq.PerPage, (lq.Page-1)*lq.PerPage)
	listQ := fmt.Sprintf(
		`SELECT `+contactColumns+` FROM contacts%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, listQ, args...)
	if err != nil {
		return ListResult{}, apperr.Storef("list contacts: %v", err)
	}
	defer rows.Close()

	out := ListResult{Page: lq.Page, PerPage: lq.PerPage, Total: total, Contacts: []Contact{}}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return ListResult{}, apperr.Storef("scan contact: %v", err)
		}
		out.Contacts = append(out.Contacts, c)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, apperr.Storef("list contacts: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByFilter(ctx context.Context, f Filter) ([]Contact, error) {
	var conds []string
	var args []any

	if len(f.IDs) > 0 {
		ids, err := json.Marshal(f.IDs)
		if err != nil {
			return nil, apperr.Storef("encode ids: %v", err)
		}
		args = append(args, string(ids))
		conds = append(conds, fmt.Sprintf(`id IN (SELECT jsonb_array_elements_text($%d::jsonb))`, len(args)))
	}
	if len(f.Tags) > 0 {
		tags, err := json.Marshal(f.Tags)
		if err != nil {
			return nil, apperr.Storef("encode tags: %v", err)
		}
		args = append(args, string(tags))
		conds = append(conds, fmt.Sprintf(`tags @> $%d::jsonb`, len(args)))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		conds = append(conds, fmt.Sprintf(`source = $%d`, len(args)))
	}

	q := `SELECT ` + contactColumns + ` FROM contacts`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Storef("filter contacts: %v", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, apperr.Storef("scan contact: %v", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storef("filter contacts: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) ExistingPhones(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phone_e164 FROM contacts`)
	if err != nil {
		return nil, apperr.Storef("list phones: %v", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, apperr.Storef("scan phone: %v", err)
		}
		out[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storef("list phones: %v", err)
	}
	return out, nil
}

func buildContactWhere(lq ListQuery) (string, []any) {
	var conds []string
	var args []any

	if lq.Q != "" {
		args = append(args, "%"+lq.Q+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)`, n, n, n))
	}
	if len(lq.Tags) > 0 {
		tags, _ := json.Marshal(lq.Tags)
		args = append(args, string(tags))
		conds = append(conds, fmt.Sprintf(`tags @> $%d::jsonb`, len(args)))
	}
	if lq.Source != "" {
		args = append(args, lq.Source)
		conds = append(conds, fmt.Sprintf(`source = $%d`, len(args)))
	}
	if lq.Phone != "" {
		args = append(args, lq.Phone)
		conds = append(conds, fmt.Sprintf(`phone_e164 = $%d`, len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(r rowScanner) (Contact, error) {
	var c Contact
	var firstName, lastName, phone, email, source sql.NullString
	var tagsRaw sql.NullString

	if err := r.Scan(
		&c.ID, &firstName, &lastName, &phone, &c.PhoneE164,
		&email, &tagsRaw, &source, &c.DedupeHash, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return Contact{}, err
	}
	c.FirstName = firstName.String
	c.LastName = lastName.String
	c.Phone = phone.String
	c.Email = email.String
	c.Source = source.String
	if tagsRaw.Valid && tagsRaw.String != "" {
		if err := json.Unmarshal([]byte(tagsRaw.String), &c.Tags); err != nil {
			return Contact{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	return c, nil
}

// PostgresDNCStore persists the do-not-call list.
type PostgresDNCStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresDNCStore(db *sql.DB) *PostgresDNCStore {
	return &PostgresDNCStore{db: db, clock: time.Now}
}

func (s *PostgresDNCStore) IsListed(ctx context.Context, phoneE164 string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM do_not_call WHERE phone_e164 = $1)`
	var listed bool
	if err := s.db.QueryRowContext(ctx, q, phoneE164).Scan(&listed); err != nil {
		return false, apperr.Storef("dnc lookup: %v", err)
	}
	return listed, nil
}

func (s *PostgresDNCStore) ListPhones(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phone_e164 FROM do_not_call`)
	if err != nil {
		return nil, apperr.Storef("dnc list: %v", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, apperr.Storef("dnc scan: %v", err)
		}
		out[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storef("dnc list: %v", err)
	}
	return out, nil
}

func (s *PostgresDNCStore) Add(ctx context.Context, e DNCEntry) error {
	const q = `
INSERT INTO do_not_call (phone_e164, reason, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (phone_e164) DO NOTHING
`
	if _, err := s.db.ExecContext(ctx, q, e.PhoneE164, e.Reason, s.clock().UTC()); err != nil {
		return apperr.Storef("dnc add: %v", err)
	}
	return nil
}

func (s *PostgresDNCStore) Remove(ctx context.Context, phoneE164 string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM do_not_call WHERE phone_e164 = $1`, phoneE164); err != nil {
		return apperr.Storef("dnc remove: %v", err)
	}
	return nil
}

func (s *PostgresDNCStore) List(ctx context.Context) ([]DNCEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phone_e164, reason, created_at FROM do_not_call ORDER BY created_at DESC`)
	if err != nil {
		return nil, apperr.Storef("dnc list: %v", err)
	}
	defer rows.Close()

	var out []DNCEntry
	for rows.Next() {
		var e DNCEntry
		var reason sql.NullString
		if err := rows.Scan(&e.PhoneE164, &reason, &e.CreatedAt); err != nil {
			return nil, apperr.Storef("dnc scan: %v", err)
		}
		e.Reason = reason.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storef("dnc list: %v", err)
	}
	return out, nil
}
