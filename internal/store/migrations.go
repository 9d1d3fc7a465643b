package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Samples table - labeled two-hand feature vectors from recording runs
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			label TEXT NOT NULL CHECK(label IN ('clone_sign', 'not_sign')),
			features TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Models table - trained classifier documents
		`CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			document TEXT NOT NULL,
			positive INTEGER NOT NULL DEFAULT 0,
			negative INTEGER NOT NULL DEFAULT 0,
			accuracy REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Jutsus table - one row per triggered session
		`CREATE TABLE IF NOT EXISTS jutsus (
			id TEXT PRIMARY KEY,
			triggered_at DATETIME NOT NULL,
			confidence REAL NOT NULL,
			actors INTEGER NOT NULL DEFAULT 0,
			reset_at DATETIME
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_samples_label ON samples(label)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_session_id ON samples(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jutsus_triggered_at ON jutsus(triggered_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
