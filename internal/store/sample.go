package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ayusman/kagebunshin/internal/gesture"
)

// Sample is one recorded two-hand feature vector.
type Sample struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Label     string    `json:"label"`
	Features  []float64 `json:"features"`
	CreatedAt time.Time `json:"created_at"`
}

// SampleRepository provides CRUD operations for samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts the vectors of one recording run in a single transaction.
func (r *SampleRepository) Create(sessionID, label string, vectors [][]float64) error {
	if !gesture.ValidLabel(label) {
		return fmt.Errorf("invalid label %q", label)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO samples (session_id, label, features, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, v := range vectors {
		if len(v) != gesture.InputSize {
			return fmt.Errorf("sample %d: %w", i, gesture.ErrInputSize)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(sessionID, label, string(data), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// List returns samples ordered by insertion. An empty label returns every sample.
func (r *SampleRepository) List(label string) ([]Sample, error) {
	query := `SELECT id, session_id, label, features, created_at FROM samples`
	var args []any
	if label != "" {
		query += ` WHERE label = ?`
		args = append(args, label)
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Label, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &s.Features); err != nil {
			return nil, fmt.Errorf("sample %d: %w", s.ID, err)
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Counts returns the number of samples per label.
func (r *SampleRepository) Counts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT label, COUNT(*) FROM samples GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{gesture.LabelCloneSign: 0, gesture.LabelNotSign: 0}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// Dataset collects every sample into a training dataset.
func (r *SampleRepository) Dataset() (*gesture.Dataset, error) {
	samples, err := r.List("")
	if err != nil {
		return nil, err
	}

	ds := &gesture.Dataset{}
	for _, s := range samples {
		if err := ds.Add(s.Label, s.Features); err != nil {
			return nil, fmt.Errorf("sample %d: %w", s.ID, err)
		}
	}
	return ds, nil
}

// Import stores every vector of ds under sessionID.
func (r *SampleRepository) Import(sessionID string, ds *gesture.Dataset) error {
	if len(ds.CloneSign) > 0 {
		if err := r.Create(sessionID, gesture.LabelCloneSign, ds.CloneSign); err != nil {
			return err
		}
	}
	if len(ds.NotSign) > 0 {
		if err := r.Create(sessionID, gesture.LabelNotSign, ds.NotSign); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBySession removes the samples of one recording run.
func (r *SampleRepository) DeleteBySession(sessionID string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM samples WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// DeleteAll removes every sample.
func (r *SampleRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM samples`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
