package certstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const memoryDSN = "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)"

// Store keeps client certificates in SQLite.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

func WithLogger(logger *slog.Logger) func(*Store) {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for the created timestamp.
func WithClock(now func() time.Time) func(*Store) {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens the database at path, creating the schema if needed.
// An empty path opens an in-memory database.
func Open(ctx context.Context, path string, opts ...func(*Store)) (*Store, error) {
	s := &Store{
		now: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger = s.logger.WithGroup("certstore")

	dsn := memoryDSN
	if path != "" {
		// the driver splits the DSN on the first '?' and SQLite treats '#' as a fragment
		if strings.ContainsAny(path, "?#") {
			return nil, fmt.Errorf("database path %q must not contain '?' or '#'", path)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// each :memory: connection is its own database
	db.SetMaxOpenConns(1)
	s.db = db

	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	s.logger.DebugContext(ctx, "database opened", slog.String("path", path))

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS client_certificates (
			id              text PRIMARY KEY,
			name            text NOT NULL,
			type            text NOT NULL,
			created         integer NOT NULL,
			cert_data       blob NOT NULL,
			cert_passphrase text,
			key_data        blob,
			key_passphrase  text
		);
	`)
	if err != nil {
		return fmt.Errorf("create client_certificates table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_client_certificates_created ON client_certificates (created);`)
	if err != nil {
		return fmt.Errorf("create created index: %w", err)
	}

	return nil
}

type row struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Type           string         `db:"type"`
	Created        int64          `db:"created"`
	CertData       []byte         `db:"cert_data"`
	CertPassphrase sql.NullString `db:"cert_passphrase"`
	KeyData        []byte         `db:"key_data"`
	KeyPassphrase  sql.NullString `db:"key_passphrase"`
}

func (r row) certificate() Certificate {
	c := Certificate{
		ID:      r.ID,
		Name:    r.Name,
		Type:    Type(r.Type),
		Created: time.UnixMilli(r.Created).UTC(),
		Cert: CertData{
			Data:       r.CertData,
			Passphrase: nullStringPtr(r.CertPassphrase),
		},
	}

	if len(r.KeyData) > 0 {
		c.Key = &CertData{
			Data:       r.KeyData,
			Passphrase: nullStringPtr(r.KeyPassphrase),
		}
	}

	return c
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func ptrNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// List returns every certificate, newest first.
func (s *Store) List(ctx context.Context) ([]Certificate, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM client_certificates ORDER BY created DESC, id"); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}

	certs := make([]Certificate, 0, len(rows))
	for _, r := range rows {
		certs = append(certs, r.certificate())
	}

	return certs, nil
}

// Get returns the certificate with the given id or [ErrNotFound].
func (s *Store) Get(ctx context.Context, id string) (*Certificate, error) {
	var r row
	if err := s.db.GetContext(ctx, &r, "SELECT * FROM client_certificates WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}

	c := r.certificate()
	return &c, nil
}

// Insert validates and stores the request, returning the stored record.
// An empty name is replaced with the certificate's common name when it can be read.
func (s *Store) Insert(ctx context.Context, req ImportRequest) (*Certificate, error) {
	certs, err := s.InsertAll(ctx, []ImportRequest{req})
	if err != nil {
		return nil, err
	}

	return &certs[0], nil
}

// InsertAll validates every request before storing any of them, then stores
// them in a single transaction. Either all requests are stored or none are.
func (s *Store) InsertAll(ctx context.Context, reqs []ImportRequest) ([]Certificate, error) {
	certs := make([]Certificate, 0, len(reqs))
	for i, req := range reqs {
		if err := req.Validate(); err != nil {
			if len(reqs) == 1 {
				return nil, fmt.Errorf("invalid import request: %w", err)
			}
			return nil, fmt.Errorf("invalid import request %d: %w", i, err)
		}

		certs = append(certs, s.newCertificate(ctx, req))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, c := range certs {
		if err := insertCertificate(ctx, tx, c); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	for _, c := range certs {
		s.logger.DebugContext(ctx, "certificate imported",
			slog.String("id", c.ID),
			slog.String("type", string(c.Type)),
			slog.Bool("key", c.HasKey()),
		)
	}

	return certs, nil
}

func (s *Store) newCertificate(ctx context.Context, req ImportRequest) Certificate {
	c := Certificate{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Type:    req.Type,
		Created: s.now().UTC().Truncate(time.Millisecond),
		Cert:    req.Cert,
		Key:     req.Key,
	}

	if c.Name == "" {
		if summary, err := Inspect(c); err == nil {
			c.Name = summary.CommonName
		} else {
			s.logger.DebugContext(ctx, "cannot derive name from certificate", slog.Any("err", err))
		}
	}

	return c
}

func insertCertificate(ctx context.Context, db sqlx.ExecerContext, c Certificate) error {
	var keyData any
	var keyPassphrase sql.NullString
	if c.Key != nil {
		keyData = c.Key.Data
		keyPassphrase = ptrNullString(c.Key.Passphrase)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO client_certificates (id, name, type, created, cert_data, cert_passphrase, key_data, key_passphrase)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Type), c.Created.UnixMilli(), c.Cert.Data, ptrNullString(c.Cert.Passphrase), keyData, keyPassphrase,
	)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}

	return nil
}

// Delete removes the certificate with the given id or returns [ErrNotFound].
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM client_certificates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.logger.DebugContext(ctx, "certificate deleted", slog.String("id", id))

	return nil
}

// DeleteAll removes every certificate and returns how many were removed.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM client_certificates")
	if err != nil {
		return 0, fmt.Errorf("delete all certificates: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete all certificates: %w", err)
	}

	s.logger.DebugContext(ctx, "certificates cleared", slog.Int64("count", n))

	return n, nil
}
