package store

import (
	"database/sql"
)

// ClassResult is one row of a run's classification report.
type ClassResult struct {
	ID        int64
	RunID     string
	Label     string
	ClassID   int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassRepository stores per-class results.
type ClassRepository struct {
	db *sql.DB
}

// Classes returns the class repository for this store.
func (s *Store) Classes() *ClassRepository {
	return &ClassRepository{db: s.db}
}

// Create inserts the report rows of a run in a single transaction.
func (r *ClassRepository) Create(runID string, classes []ClassResult) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO run_classes
		(run_id, label, class_id, precision, recall, f1, support)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range classes {
		if _, err := stmt.Exec(runID, c.Label, c.ClassID, c.Precision, c.Recall, c.F1, c.Support); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByRunID retrieves the report rows of a run in class id order.
func (r *ClassRepository) GetByRunID(runID string) ([]ClassResult, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, label, class_id, precision, recall, f1, support
		 FROM run_classes WHERE run_id = ? ORDER BY class_id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []ClassResult
	for rows.Next() {
		var c ClassResult
		if err := rows.Scan(&c.ID, &c.RunID, &c.Label, &c.ClassID, &c.Precision, &c.Recall, &c.F1, &c.Support); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}

	return classes, rows.Err()
}
