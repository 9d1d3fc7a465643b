package store

import (
	"database/sql"
	"errors"
	"time"
)

// Jutsu records one triggered session.
type Jutsu struct {
	ID          string     `json:"id"`
	TriggeredAt time.Time  `json:"triggered_at"`
	Confidence  float64    `json:"confidence"`
	Actors      int        `json:"actors"`
	ResetAt     *time.Time `json:"reset_at,omitempty"`
}

// JutsuRepository provides access to the jutsu log.
type JutsuRepository struct {
	db *sql.DB
}

// Jutsus returns the jutsu repository for this store.
func (s *Store) Jutsus() *JutsuRepository {
	return &JutsuRepository{db: s.db}
}

// Create inserts a new jutsu.
func (r *JutsuRepository) Create(j *Jutsu) error {
	_, err := r.db.Exec(
		`INSERT INTO jutsus (id, triggered_at, confidence, actors) VALUES (?, ?, ?, ?)`,
		j.ID, j.TriggeredAt, j.Confidence, j.Actors,
	)
	return err
}

// AddActor increments the number of clones shown by a jutsu.
func (r *JutsuRepository) AddActor(id string) error {
	return r.exec(`UPDATE jutsus SET actors = actors + 1 WHERE id = ?`, id)
}

// MarkReset sets the reset time of a jutsu.
func (r *JutsuRepository) MarkReset(id string, at time.Time) error {
	return r.exec(`UPDATE jutsus SET reset_at = ? WHERE id = ?`, at, id)
}

func (r *JutsuRepository) exec(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a jutsu by its ID.
func (r *JutsuRepository) GetByID(id string) (*Jutsu, error) {
	j, err := scanJutsu(r.db.QueryRow(
		`SELECT id, triggered_at, confidence, actors, reset_at FROM jutsus WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

// List returns the most recent jutsus, newest first. A limit of zero or less returns all.
func (r *JutsuRepository) List(limit int) ([]*Jutsu, error) {
	query := `SELECT id, triggered_at, confidence, actors, reset_at FROM jutsus ORDER BY triggered_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Jutsu
	for rows.Next() {
		j, err := scanJutsu(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Count returns the number of logged jutsus.
func (r *JutsuRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM jutsus`).Scan(&n)
	return n, err
}

func scanJutsu(row interface{ Scan(...any) error }) (*Jutsu, error) {
	j := &Jutsu{}
	var reset sql.NullTime
	if err := row.Scan(&j.ID, &j.TriggeredAt, &j.Confidence, &j.Actors, &reset); err != nil {
		return nil, err
	}
	if reset.Valid {
		t := reset.Time
		j.ResetAt = &t
	}
	return j, nil
}
