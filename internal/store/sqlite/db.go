// Package sqlite stores finished match results in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"presidente/internal/domain"
	"presidente/internal/ports"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a match id has no stored result.
var ErrNotFound = errors.New("match result not found")

// Store implements ports.ResultsPort on a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and applies pending migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if looksLikeFilePath(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func sqliteDSN(dbPath string) string {
	if strings.HasPrefix(dbPath, "file:") || dbPath == ":memory:" {
		return dbPath
	}
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath)
}

func looksLikeFilePath(p string) bool {
	return p != ":memory:" && !strings.HasPrefix(p, "file:")
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate migration versions: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("readdir migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		if applied[name] {
			continue
		}
		body, err := fs.ReadFile(migrationsFS, "migrations/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		// go-sqlite3 runs every statement in a multi-statement Exec.
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// RecordMatch inserts the match and its four seats in one transaction.
func (s *Store) RecordMatch(ctx context.Context, result ports.MatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO matches(match_id, ended_at) VALUES (?, ?)`,
		result.MatchID, result.EndedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert match %s: %w", result.MatchID, err)
	}
	for _, seat := range result.Seats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_seats(match_id, seat, user_id, name, finish_position, is_bot) VALUES (?, ?, ?, ?, ?, ?)`,
			result.MatchID, seat.Seat, seat.UserID, seat.Name, seat.FinishPosition, seat.IsBot); err != nil {
			return fmt.Errorf("insert seat %d of %s: %w", seat.Seat, result.MatchID, err)
		}
	}
	return tx.Commit()
}

// MatchResult loads a stored result by match id.
func (s *Store) MatchResult(ctx context.Context, matchID string) (ports.MatchResult, error) {
	res := ports.MatchResult{MatchID: matchID}

	var endedAt string
	err := s.db.QueryRowContext(ctx, `SELECT ended_at FROM matches WHERE match_id = ?`, matchID).Scan(&endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrNotFound
	}
	if err != nil {
		return res, fmt.Errorf("load match %s: %w", matchID, err)
	}
	if res.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
		return res, fmt.Errorf("parse ended_at of %s: %w", matchID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seat, user_id, name, finish_position, is_bot FROM match_seats WHERE match_id = ? ORDER BY seat`, matchID)
	if err != nil {
		return res, fmt.Errorf("load seats of %s: %w", matchID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var seat ports.SeatResult
		if err := rows.Scan(&seat.Seat, &seat.UserID, &seat.Name, &seat.FinishPosition, &seat.IsBot); err != nil {
			return res, fmt.Errorf("scan seat of %s: %w", matchID, err)
		}
		if seat.Seat < 0 || seat.Seat >= domain.NumSeats {
			return res, fmt.Errorf("match %s has out of range seat %d", matchID, seat.Seat)
		}
		res.Seats[seat.Seat] = seat
	}
	return res, rows.Err()
}

// Leaderboard ranks human players by how often they finished first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]ports.Standing, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, COUNT(*) AS played, SUM(CASE WHEN finish_position = 1 THEN 1 ELSE 0 END) AS firsts
		FROM match_seats
		WHERE is_bot = 0
		GROUP BY name
		ORDER BY firsts DESC, played DESC, name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []ports.Standing{}
	for rows.Next() {
		var e ports.Standing
		if err := rows.Scan(&e.Name, &e.MatchesPlayed, &e.Presidente); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var (
	_ ports.ResultsPort   = (*Store)(nil)
	_ ports.StandingsPort = (*Store)(nil)
)
