// Package storage provides SQLite-backed persistence for derivations, their
// scenarios and notification state.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/strategia/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db             *sql.DB
	maxDerivations int
}

// Notified is the last notification sent for a symbol.
type Notified struct {
	Symbol    string
	Signature string
	SentAt    time.Time
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/strategia/data.db.
func New(maxDerivations int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "strategia", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s, err := open(db, maxDerivations)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func open(db *sql.DB, maxDerivations int) (*Storage, error) {
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if maxDerivations <= 0 {
		maxDerivations = 1000
	}
	s := &Storage{db: db, maxDerivations: maxDerivations}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS derivations (
			id          TEXT PRIMARY KEY,
			symbol      TEXT NOT NULL,
			price       REAL NOT NULL,
			tick        REAL NOT NULL,
			fallback    INTEGER NOT NULL DEFAULT 0,
			derived_at  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scenarios (
			id              TEXT PRIMARY KEY,
			derivation_id   TEXT NOT NULL REFERENCES derivations(id) ON DELETE CASCADE,
			rank            INTEGER NOT NULL,
			direction       TEXT NOT NULL,
			entry           REAL NOT NULL,
			stop            REAL NOT NULL,
			tp1             REAL,
			tp2             REAL,
			rr              REAL NOT NULL,
			rr_net          REAL NOT NULL,
			confidence      REAL NOT NULL,
			signal_score    INTEGER NOT NULL,
			momentum        REAL NOT NULL,
			status          TEXT NOT NULL,
			source          TEXT NOT NULL,
			explanation     TEXT,
			trigger_text    TEXT,
			invalidation    TEXT,
			note            TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS notified (
			symbol      TEXT PRIMARY KEY,
			signature   TEXT NOT NULL,
			sent_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_derivations_symbol ON derivations(symbol, derived_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_scenarios_derivation ON scenarios(derivation_id, rank)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveDerivation stores a derivation and its ranked scenarios. An empty ID is
// replaced by a fresh UUID, which is written back into d.
func (s *Storage) SaveDerivation(d *models.Derivation) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid derivation: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO derivations (id, symbol, price, tick, fallback, derived_at)
		VALUES (?,?,?,?,?,?)`,
		d.ID, d.Symbol, d.Price, d.Tick, boolToInt(d.Fallback), d.DerivedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert derivation: %w", err)
	}

	for rank, sc := range d.Scenarios {
		_, err = tx.Exec(`
			INSERT INTO scenarios
				(id, derivation_id, rank, direction, entry, stop, tp1, tp2, rr, rr_net,
				 confidence, signal_score, momentum, status, source,
				 explanation, trigger_text, invalidation, note)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			uuid.New().String(), d.ID, rank, string(sc.Direction), sc.Entry, sc.Stop,
			nullFloat(sc.TP1), nullFloat(sc.TP2), sc.RR, sc.RRNet,
			sc.Confidence, sc.SignalScore, sc.Momentum, string(sc.Status), string(sc.Source),
			sc.Explanation, sc.Trigger, sc.Invalidation, sc.Note,
		)
		if err != nil {
			return fmt.Errorf("failed to insert scenario: %w", err)
		}
	}

	return tx.Commit()
}

// GetLatestDerivation returns the most recent derivation for symbol.
func (s *Storage) GetLatestDerivation(symbol string) (*models.Derivation, error) {
	ds, err := s.ListDerivations(symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(ds) == 0 {
		return nil, fmt.Errorf("derivation for %s: %w", symbol, ErrNotFound)
	}
	return &ds[0], nil
}

// ListDerivations returns up to limit derivations for symbol, newest first.
func (s *Storage) ListDerivations(symbol string, limit int) ([]models.Derivation, error) {
	if limit <= 0 {
		limit = s.maxDerivations
	}
	rows, err := s.db.Query(`
		SELECT id, symbol, price, tick, fallback, derived_at
		FROM derivations WHERE symbol = ?
		ORDER BY derived_at DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query derivations: %w", err)
	}

	var out []models.Derivation
	for rows.Next() {
		var d models.Derivation
		var fallback int
		var derivedAtNano int64
		if err := rows.Scan(&d.ID, &d.Symbol, &d.Price, &d.Tick, &fallback, &derivedAtNano); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan derivation: %w", err)
		}
		d.Fallback = fallback != 0
		d.DerivedAt = time.Unix(0, derivedAtNano)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Scenarios are loaded after the cursor is closed: the pool holds one connection.
	for i := range out {
		scs, err := s.loadScenarios(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Scenarios = scs
	}
	if out == nil {
		out = []models.Derivation{}
	}
	return out, nil
}

func (s *Storage) loadScenarios(derivationID string) ([]models.Scenario, error) {
	rows, err := s.db.Query(`
		SELECT direction, entry, stop, tp1, tp2, rr, rr_net, confidence, signal_score,
		       momentum, status, source, explanation, trigger_text, invalidation, note
		FROM scenarios WHERE derivation_id = ? ORDER BY rank`, derivationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	var out []models.Scenario
	for rows.Next() {
		var sc models.Scenario
		var dir, status, source string
		var tp1, tp2 sql.NullFloat64
		var explanation, trigger, invalidation, note sql.NullString
		err := rows.Scan(
			&dir, &sc.Entry, &sc.Stop, &tp1, &tp2, &sc.RR, &sc.RRNet, &sc.Confidence,
			&sc.SignalScore, &sc.Momentum, &status, &source,
			&explanation, &trigger, &invalidation, &note,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		sc.Direction = models.Direction(dir)
		sc.Status = models.Status(status)
		sc.Source = models.Source(source)
		if tp1.Valid {
			sc.TP1 = models.Float(tp1.Float64)
		}
		if tp2.Valid {
			sc.TP2 = models.Float(tp2.Float64)
		}
		sc.Explanation = explanation.String
		sc.Trigger = trigger.String
		sc.Invalidation = invalidation.String
		sc.Note = note.String
		out = append(out, sc)
	}
	return out, rows.Err()
}

// RotateDerivations keeps at most maxDerivations newest derivations.
// Cascading deletes remove their scenarios.
func (s *Storage) RotateDerivations() error {
	_, err := s.db.Exec(`
		DELETE FROM derivations WHERE id NOT IN (
			SELECT id FROM derivations ORDER BY derived_at DESC LIMIT ?
		)`, s.maxDerivations)
	if err != nil {
		return fmt.Errorf("failed to rotate derivations: %w", err)
	}
	return nil
}

// SaveNotified records the signature last notified for a symbol.
func (s *Storage) SaveNotified(n Notified) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO notified (symbol, signature, sent_at)
		VALUES (?,?,?)`,
		n.Symbol, n.Signature, n.SentAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save notification state: %w", err)
	}
	return nil
}

// LoadNotified returns the notification state of every symbol.
func (s *Storage) LoadNotified() (map[string]Notified, error) {
	rows, err := s.db.Query(`SELECT symbol, signature, sent_at FROM notified`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification state: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Notified)
	for rows.Next() {
		var n Notified
		var sentAtNano int64
		if err := rows.Scan(&n.Symbol, &n.Signature, &sentAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan notification state: %w", err)
		}
		n.SentAt = time.Unix(0, sentAtNano)
		out[n.Symbol] = n
	}
	return out, rows.Err()
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
