package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per training run
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			dataset_path TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('running', 'succeeded', 'failed')),
			samples INTEGER NOT NULL DEFAULT 0,
			classes INTEGER NOT NULL DEFAULT 0,
			train_samples INTEGER NOT NULL DEFAULT 0,
			test_samples INTEGER NOT NULL DEFAULT 0,
			accuracy REAL,
			loss REAL,
			lite_accuracy REAL,
			artifact_dir TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		)`,

		// Run epochs table - per-epoch training history
		`CREATE TABLE IF NOT EXISTS run_epochs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			epoch INTEGER NOT NULL,
			loss REAL NOT NULL,
			accuracy REAL NOT NULL,
			val_loss REAL NOT NULL,
			val_accuracy REAL NOT NULL,
			learning_rate REAL NOT NULL
		)`,

		// Run classes table - per-class classification report
		`CREATE TABLE IF NOT EXISTS run_classes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			label TEXT NOT NULL,
			class_id INTEGER NOT NULL,
			precision REAL NOT NULL,
			recall REAL NOT NULL,
			f1 REAL NOT NULL,
			support INTEGER NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_run_epochs_run_id ON run_epochs(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_run_classes_run_id ON run_classes(run_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
