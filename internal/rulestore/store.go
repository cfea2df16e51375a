// Package rulestore keeps named rulebases in PostgreSQL so a fleet of
// normalizers can load the same rules.
package rulestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang/compiler"
	"github.com/PhucNguyen204/lognorm/pkg/lognorm"
)

var (
	ErrNotFound = errors.New("rulebase not found")
	ErrNoSchema = errors.New("rulebase table missing")
)

// postgres error class for undefined_table
const codeUndefinedTable = "42P01"

const schema = `CREATE TABLE IF NOT EXISTS lognorm_rulebases (
	name       TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Rulebase is one stored rulebase. Body is empty in List results.
type Rulebase struct {
	Name      string    `json:"name"`
	Body      string    `json:"body,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	db   *sql.DB
	comp *compiler.Compiler
}

// New wraps an open database. opts are the options rulebases are validated
// with before they are written.
func New(db *sql.DB, opts ir.CtxOpt) *Store {
	return &Store{db: db, comp: compiler.New(nil, opts)}
}

// Open connects to PostgreSQL and checks the connection.
func Open(ctx context.Context, dsn string, opts ir.CtxOpt) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping rule store: %w", err)
	}
	return New(db, opts), nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SourceName is the source a stored rulebase reports in errors and metadata.
func SourceName(name string) string { return "db:" + name }

// Validate compiles body the way LoadInto will, without touching the database.
func (s *Store) Validate(name, body string) error {
	var err error
	if compiler.IsYAMLPath(name) {
		_, err = s.comp.CompileYAML(SourceName(name), []byte(body))
	} else {
		_, err = s.comp.CompileString(SourceName(name), body)
	}
	return err
}

// Put validates body and inserts or replaces the rulebase called name.
func (s *Store) Put(ctx context.Context, name, body string) error {
	if name == "" {
		return errors.New("rulebase name is empty")
	}
	if err := s.Validate(name, body); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO lognorm_rulebases(name, body, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET body=EXCLUDED.body, updated_at=EXCLUDED.updated_at`,
		name, body,
	)
	return wrap("put "+name, err)
}

func (s *Store) Get(ctx context.Context, name string) (*Rulebase, error) {
	rb := &Rulebase{Name: name}
	err := s.db.QueryRowContext(ctx,
		`SELECT body, updated_at FROM lognorm_rulebases WHERE name = $1`, name,
	).Scan(&rb.Body, &rb.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, wrap("get "+name, err)
	}
	return rb, nil
}

// List returns every stored rulebase name ordered by name.
func (s *Store) List(ctx context.Context) ([]Rulebase, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, updated_at FROM lognorm_rulebases ORDER BY name`)
	if err != nil {
		return nil, wrap("list", err)
	}
	defer rows.Close()

	var out []Rulebase
	for rows.Next() {
		var rb Rulebase
		if err := rows.Scan(&rb.Name, &rb.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rb)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lognorm_rulebases WHERE name = $1`, name)
	if err != nil {
		return wrap("delete "+name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// LoadInto loads the stored rulebase name into c.
func (s *Store) LoadInto(ctx context.Context, c *lognorm.Context, name string) (int, error) {
	rb, err := s.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	return c.LoadSamplesNamed(SourceName(name), rb.Body)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUndefinedTable {
		return fmt.Errorf("%s: %w (run InitSchema): %v", op, ErrNoSchema, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
