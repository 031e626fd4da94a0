// Package store handles SQLite persistence of analysis history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tuisleep/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when an analysis ID is unknown.
var ErrNotFound = errors.New("analysis not found")

// Fixed-width UTC timestamps keep created_at lexically sortable.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for analysis history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// A single connection serializes writers from the HTTP server.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			source TEXT NOT NULL,
			first_date TEXT NOT NULL,
			last_date TEXT NOT NULL,
			score INTEGER NOT NULL,
			mood TEXT NOT NULL,
			suggestion TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS analysis_days (
			analysis_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			day TEXT NOT NULL,
			total_sleep_hrs REAL NOT NULL,
			prediction REAL NOT NULL,
			PRIMARY KEY (analysis_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAnalysis stores an analysis summary and its per-day predictions.
// A missing ID or creation time is filled in; the stored ID is returned.
func (s *Store) InsertAnalysis(ctx context.Context, rec model.AnalysisRecord, days []model.DayPrediction) (id string, err error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (id, created_at, source, first_date, last_date, score, mood, suggestion)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.UTC().Format(timestampLayout),
		rec.Source,
		rec.FirstDate.Format(model.DateLayout),
		rec.LastDate.Format(model.DateLayout),
		rec.Score,
		rec.Mood,
		rec.Suggestion,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert analysis: %w", err)
	}

	if len(days) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO analysis_days (analysis_id, position, day, total_sleep_hrs, prediction)
			 VALUES (?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		// Dates may repeat; the position keeps rows in supplied order.
		for i, d := range days {
			if _, err = stmt.ExecContext(ctx, rec.ID, i, d.Date.Format(model.DateLayout), d.TotalSleepHrs, d.Prediction); err != nil {
				return "", fmt.Errorf("failed to insert analysis day: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return rec.ID, nil
}

const analysisColumns = `id, created_at, source, first_date, last_date, score, mood, suggestion`

// ListAnalyses returns stored analyses in ascending creation order. Since
// keeps analyses created on or after that time; Last keeps the newest N.
func (s *Store) ListAnalyses(ctx context.Context, cfg model.HistoryConfig) ([]model.AnalysisRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timestampLayout))
	}
	query := fmt.Sprintf(`SELECT %s FROM analyses WHERE %s ORDER BY created_at DESC`,
		analysisColumns, strings.Join(clauses, " AND "))
	if cfg.Last > 0 {
		query += " LIMIT ?"
		args = append(args, cfg.Last)
	}
	query = fmt.Sprintf(`SELECT * FROM (%s) ORDER BY created_at ASC`, query)

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

	var records []model.AnalysisRecord
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetAnalysis loads one stored analysis.
func (s *Store) GetAnalysis(ctx context.Context, id string) (model.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = ?`, id)
	rec, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AnalysisRecord{}, ErrNotFound
	}
	return rec, err
}

// ListAnalysisDays returns the per-day predictions of an analysis in the
// order they were stored.
func (s *Store) ListAnalysisDays(ctx context.Context, id string) ([]model.DayPrediction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, total_sleep_hrs, prediction FROM analysis_days WHERE analysis_id = ? ORDER BY position ASC`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var days []model.DayPrediction
	for rows.Next() {
		var d model.DayPrediction
		var day string
		if err := rows.Scan(&day, &d.TotalSleepHrs, &d.Prediction); err != nil {
			return nil, err
		}
		if d.Date, err = time.Parse(model.DateLayout, day); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner) (model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var createdAt, firstDate, lastDate string
	if err := row.Scan(&rec.ID, &createdAt, &rec.Source, &firstDate, &lastDate, &rec.Score, &rec.Mood, &rec.Suggestion); err != nil {
		return model.AnalysisRecord{}, err
	}
	var err error
	if rec.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return model.AnalysisRecord{}, err
	}
	if rec.FirstDate, err = time.Parse(model.DateLayout, firstDate); err != nil {
		return model.AnalysisRecord{}, err
	}
	if rec.LastDate, err = time.Parse(model.DateLayout, lastDate); err != nil {
		return model.AnalysisRecord{}, err
	}
	return rec, nil
}
