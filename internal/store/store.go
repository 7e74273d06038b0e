// Package store keeps a SQLite index of saved day totals.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/bongostats/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const dayLayout = "2006-01-02"

// Store wraps SQLite access for the day history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_totals (
			day TEXT PRIMARY KEY,
			key_presses INTEGER NOT NULL,
			mouse_clicks INTEGER NOT NULL,
			minutes_open REAL NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS daily_keys (
			day TEXT NOT NULL,
			code INTEGER NOT NULL,
			presses INTEGER NOT NULL,
			PRIMARY KEY (day, code)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_daily_keys_code ON daily_keys(code);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertDay records the totals of one day. Stored values never decrease, the
// same way the daily files behave.
func (s *Store) UpsertDay(ctx context.Context, day model.DayTotal, keys map[int]int64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	dayKey := day.Day
	if dayKey == "" {
		dayKey = day.Date.Format(dayLayout)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO daily_totals (day, key_presses, mouse_clicks, minutes_open, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET
			key_presses = MAX(key_presses, excluded.key_presses),
			mouse_clicks = MAX(mouse_clicks, excluded.mouse_clicks),
			minutes_open = MAX(minutes_open, excluded.minutes_open),
			updated_at = excluded.updated_at`,
		dayKey, day.KeyPresses, day.MouseClicks, day.MinutesOpen, time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO daily_keys (day, code, presses) VALUES (?, ?, ?)
			 ON CONFLICT(day, code) DO UPDATE SET presses = MAX(presses, excluded.presses)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for code, n := range keys {
			if _, err = stmt.ExecContext(ctx, dayKey, code, n); err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	return err
}

// ListDays returns indexed day totals in date order. Zero bounds are open.
func (s *Store) ListDays(ctx context.Context, from, to time.Time) ([]model.DayTotal, error) {
	where, args := dayRange(from, to)
	query := fmt.Sprintf(`SELECT day, key_presses, mouse_clicks, minutes_open
		FROM daily_totals
		WHERE %s
		ORDER BY day ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var days []model.DayTotal
	for rows.Next() {
		var d model.DayTotal
		if err := rows.Scan(&d.Day, &d.KeyPresses, &d.MouseClicks, &d.MinutesOpen); err != nil {
			return nil, err
		}
		parsed, err := time.ParseInLocation(dayLayout, d.Day, time.Local)
		if err != nil {
			return nil, err
		}
		d.Date = parsed
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// KeyTotals sums indexed key counts between two days, inclusive. Zero bounds
// are open.
func (s *Store) KeyTotals(ctx context.Context, from, to time.Time) (map[int]int64, error) {
	where, args := dayRange(from, to)
	query := fmt.Sprintf(`SELECT code, SUM(presses) FROM daily_keys
		WHERE %s
		GROUP BY code`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int]int64{}
	for rows.Next() {
		var code int
		var count int64
		if err := rows.Scan(&code, &count); err != nil {
			return nil, err
		}
		result[code] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// dayRange builds the WHERE clause for an inclusive day range, skipping zero
// bounds.
func dayRange(from, to time.Time) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if !from.IsZero() {
		clauses = append(clauses, "day >= ?")
		args = append(args, from.Format(dayLayout))
	}
	if !to.IsZero() {
		clauses = append(clauses, "day <= ?")
		args = append(args, to.Format(dayLayout))
	}
	return strings.Join(clauses, " AND "), args
}
