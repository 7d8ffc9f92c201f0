package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Action log - one row per dispatch attempt
		`CREATE TABLE IF NOT EXISTS action_log (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL CHECK(source IN ('face', 'hand', 'voice')),
			kind TEXT NOT NULL,
			x REAL,
			y REAL,
			result TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			at_ms INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_action_log_created_at ON action_log(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
