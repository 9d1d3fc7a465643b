package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/kagebunshin/internal/gesture"
)

// activeModelKey is the settings key naming the model the live classifier loads.
const activeModelKey = "active_model"

// Model is a trained classifier as stored in the database.
type Model struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Document  []byte    `json:"-"`
	Positive  int       `json:"positive"`
	Negative  int       `json:"negative"`
	Accuracy  float64   `json:"accuracy"`
	CreatedAt time.Time `json:"created_at"`
}

// Decode parses the stored model document.
func (m *Model) Decode() (*gesture.Model, error) {
	return gesture.UnmarshalModel(m.Document)
}

// ModelRepository provides CRUD operations for trained models.
type ModelRepository struct {
	db *sql.DB
}

// Models returns the model repository for this store.
func (s *Store) Models() *ModelRepository {
	return &ModelRepository{db: s.db}
}

// Create inserts a new model into the database.
func (r *ModelRepository) Create(m *Model) error {
	m.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO models (id, name, document, positive, negative, accuracy, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, string(m.Document), m.Positive, m.Negative, m.Accuracy, m.CreatedAt,
	)
	return err
}

const modelColumns = `id, name, document, positive, negative, accuracy, created_at`

func scanModel(row interface{ Scan(...any) error }) (*Model, error) {
	m := &Model{}
	var doc string
	if err := row.Scan(&m.ID, &m.Name, &doc, &m.Positive, &m.Negative, &m.Accuracy, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.Document = []byte(doc)
	return m, nil
}

// GetByID retrieves a model by its ID.
func (r *ModelRepository) GetByID(id string) (*Model, error) {
	return scanModel(r.db.QueryRow(`SELECT `+modelColumns+` FROM models WHERE id = ?`, id))
}

// Latest returns the most recently trained model.
func (r *ModelRepository) Latest() (*Model, error) {
	return scanModel(r.db.QueryRow(`SELECT ` + modelColumns + ` FROM models ORDER BY created_at DESC, rowid DESC LIMIT 1`))
}

// List retrieves every model, newest first.
func (r *ModelRepository) List() ([]*Model, error) {
	rows, err := r.db.Query(`SELECT ` + modelColumns + ` FROM models ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return models, nil
}

// Delete removes a model by its ID.
func (r *ModelRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM models WHERE id = ?`, id)
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

// SetActive records id as the model the live classifier should use.
func (r *ModelRepository) SetActive(id string) error {
	if _, err := r.GetByID(id); err != nil {
		return err
	}
	return (&SettingsRepository{db: r.db}).Set(activeModelKey, id)
}

// Active returns the active model, falling back to the latest one.
func (r *ModelRepository) Active() (*Model, error) {
	id, err := (&SettingsRepository{db: r.db}).Get(activeModelKey)
	if err == nil {
		m, err := r.GetByID(id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return r.Latest()
}
