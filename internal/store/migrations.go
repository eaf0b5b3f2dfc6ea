package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per recorded experiment iteration
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			scene TEXT NOT NULL,
			scene_num INTEGER NOT NULL DEFAULT 0,
			iteration INTEGER NOT NULL DEFAULT 0,
			ticks INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Walk samples table - per-tick locomotion diagnostics
		`CREATE TABLE IF NOT EXISTS walk_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			recorded_at DATETIME NOT NULL,
			smoothed_horizontal REAL NOT NULL,
			smoothed_vertical REAL NOT NULL,
			direction_stability REAL NOT NULL,
			vertical_pattern REAL NOT NULL,
			horizontal_pattern REAL NOT NULL,
			avg_speed REAL NOT NULL,
			is_walking INTEGER NOT NULL,
			raw_move_x REAL NOT NULL,
			raw_move_y REAL NOT NULL,
			raw_move_z REAL NOT NULL
		)`,

		// Encumbrance samples table - per-tick hand diagnostics
		`CREATE TABLE IF NOT EXISTS encumbrance_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			recorded_at DATETIME NOT NULL,
			curl_index REAL NOT NULL,
			curl_middle REAL NOT NULL,
			curl_ring REAL NOT NULL,
			curl_pinky REAL NOT NULL,
			avg_grip_curl REAL NOT NULL,
			pinch_index REAL NOT NULL,
			pinch_middle REAL NOT NULL,
			pinch_ring REAL NOT NULL,
			pinch_pinky REAL NOT NULL,
			avg_pinch REAL NOT NULL,
			wrist_x REAL NOT NULL,
			wrist_y REAL NOT NULL,
			wrist_z REAL NOT NULL,
			delta_x REAL NOT NULL,
			delta_y REAL NOT NULL,
			delta_z REAL NOT NULL,
			wrist_stable INTEGER NOT NULL,
			wrist_stable_time REAL NOT NULL DEFAULT 0,
			grip_held INTEGER NOT NULL,
			pinch_held INTEGER NOT NULL,
			encumbered INTEGER NOT NULL
		)`,

		// Hooks table - adapter plugin actions bound to state transitions
		`CREATE TABLE IF NOT EXISTS hooks (
			id TEXT PRIMARY KEY,
			event TEXT NOT NULL,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_walk_samples_session_id ON walk_samples(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_encumbrance_samples_session_id ON encumbrance_samples(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_hooks_event ON hooks(event)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	// Columns added after the first release.
	return s.ensureColumn("encumbrance_samples", "wrist_stable_time", "REAL NOT NULL DEFAULT 0")
}

// ensureColumn adds column to table when an older database lacks it.
func (s *Store) ensureColumn(table, column, decl string) error {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
		table, column,
	).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + decl)
	return err
}
