package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ActionRecord is one dispatch attempt stored in the action log.
type ActionRecord struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Kind      string    `json:"kind"`
	X         *float64  `json:"x,omitempty"`
	Y         *float64  `json:"y,omitempty"`
	Result    string    `json:"result"`
	Error     string    `json:"error,omitempty"`
	AtMs      int64     `json:"at_ms"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// ActionRepository provides access to the action log.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action log repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

// Create inserts a record. An empty ID is filled with a new UUID.
func (r *ActionRepository) Create(a *ActionRecord) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO action_log (id, source, kind, x, y, result, error, at_ms, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Source, a.Kind, nullFloat(a.X), nullFloat(a.Y), a.Result, a.Error, a.AtMs, a.LatencyMs, a.CreatedAt,
	)
	return err
}

// GetByID retrieves a record by its ID.
func (r *ActionRepository) GetByID(id string) (*ActionRecord, error) {
	row := r.db.QueryRow(
		`SELECT id, source, kind, x, y, result, error, at_ms, latency_ms, created_at
		 FROM action_log WHERE id = ?`,
		id,
	)

	a, err := scanAction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// List returns up to limit records, newest first. A limit <= 0 returns all.
func (r *ActionRepository) List(limit int) ([]*ActionRecord, error) {
	query := `SELECT id, source, kind, x, y, result, error, at_ms, latency_ms, created_at
		FROM action_log ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ActionRecord
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Prune deletes all but the newest keep records and returns the number removed.
func (r *ActionRepository) Prune(keep int) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM action_log WHERE id NOT IN (
			SELECT id FROM action_log ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAction(s scanner) (*ActionRecord, error) {
	a := &ActionRecord{}
	var x, y sql.NullFloat64

	err := s.Scan(&a.ID, &a.Source, &a.Kind, &x, &y, &a.Result, &a.Error, &a.AtMs, &a.LatencyMs, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	if x.Valid {
		a.X = &x.Float64
	}
	if y.Valid {
		a.Y = &y.Float64
	}
	return a, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
