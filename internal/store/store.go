// Package store provides SQLite-backed persistence for the function catalog
// and the decision audit log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TanveerShahriar/Thesis/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrFunctionNotFound is returned when a catalog entry does not exist.
var ErrFunctionNotFound = errors.New("function not found")

// Store provides access to the spread SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS functions (
		id TEXT PRIMARY KEY,
		signature TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		params TEXT NOT NULL,
		param_types TEXT NOT NULL,
		statement_count INTEGER NOT NULL DEFAULT 0,
		cost TEXT,
		source TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		subject TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name);
	CREATE INDEX IF NOT EXISTS idx_pdr_action ON pdr(action);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Function Operations ---

// UpsertFunction inserts a catalog entry or replaces the entry with the same
// signature. The entry keeps its original ID and creation time on update.
func (s *Store) UpsertFunction(info *models.FunctionInfo) (*models.FunctionInfo, error) {
	if info.Signature == "" {
		return nil, fmt.Errorf("upsert %q: empty signature", info.Name)
	}
	params, err := json.Marshal(nonNil(info.Params))
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	types, err := json.Marshal(nonNil(info.ParamTypes))
	if err != nil {
		return nil, fmt.Errorf("encode param types: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO functions (id, signature, name, params, param_types, statement_count, cost, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(signature) DO UPDATE SET
			name = excluded.name,
			params = excluded.params,
			param_types = excluded.param_types,
			statement_count = excluded.statement_count,
			cost = excluded.cost,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		uuid.New().String(), info.Signature, info.Name, string(params), string(types),
		info.StatementCount, info.CostExpr, info.Source, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert function: %w", err)
	}
	return s.GetFunction(info.Signature)
}

// GetFunction retrieves a catalog entry by signature. It returns nil, nil when
// no entry exists.
func (s *Store) GetFunction(signature string) (*models.FunctionInfo, error) {
	row := s.db.QueryRow(
		`SELECT id, signature, name, params, param_types, statement_count, cost, source, created_at, updated_at
		 FROM functions WHERE signature = ?`,
		signature,
	)
	info, err := scanFunction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query function: %w", err)
	}
	return info, nil
}

// ListFunctions returns all catalog entries ordered by signature.
func (s *Store) ListFunctions() ([]models.FunctionInfo, error) {
	rows, err := s.db.Query(
		`SELECT id, signature, name, params, param_types, statement_count, cost, source, created_at, updated_at
		 FROM functions ORDER BY signature`,
	)
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer rows.Close()

	var out []models.FunctionInfo
	for rows.Next() {
		info, err := scanFunction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		out = append(out, *info)
	}
	return out, rows.Err()
}

// DeleteFunction removes the catalog entry with the given signature.
func (s *Store) DeleteFunction(signature string) error {
	res, err := s.db.Exec(`DELETE FROM functions WHERE signature = ?`, signature)
	if err != nil {
		return fmt.Errorf("delete function: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", signature, ErrFunctionNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFunction(sc scanner) (*models.FunctionInfo, error) {
	var info models.FunctionInfo
	var params, types string
	var cost, source sql.NullString

	err := sc.Scan(&info.ID, &info.Signature, &info.Name, &params, &types,
		&info.StatementCount, &cost, &source, &info.CreatedAt, &info.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(params), &info.Params); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	if err := json.Unmarshal([]byte(types), &info.ParamTypes); err != nil {
		return nil, fmt.Errorf("decode param types: %w", err)
	}
	info.CostExpr = cost.String
	info.Source = source.String
	return &info, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(action, inputsHash, outcome, subject, details string) (*models.PDREntry, error) {
	pdr := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		Subject:    subject,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO pdr (id, action, inputs_hash, outcome, subject, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pdr.ID, pdr.Action, pdr.InputsHash, pdr.Outcome, pdr.Subject, pdr.Details, pdr.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return pdr, nil
}

// ListPDR returns the most recent records, newest first, optionally filtered
// by action. A limit of zero or less returns at most 100 records.
func (s *Store) ListPDR(action string, limit int) ([]models.PDREntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, action, inputs_hash, outcome, subject, details, timestamp FROM pdr`
	var args []interface{}

	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pdr: %w", err)
	}
	defer rows.Close()

	var entries []models.PDREntry
	for rows.Next() {
		var e models.PDREntry
		var subject, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &subject, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pdr: %w", err)
		}
		e.Subject = subject.String
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
