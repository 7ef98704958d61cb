package store

import (
	"database/sql"
)

// Epoch is one row of a run's training history.
type Epoch struct {
	ID           int64
	RunID        string
	Epoch        int
	Loss         float64
	Accuracy     float64
	ValLoss      float64
	ValAccuracy  float64
	LearningRate float64
}

// EpochRepository stores per-epoch training history.
type EpochRepository struct {
	db *sql.DB
}

// Epochs returns the epoch repository for this store.
func (s *Store) Epochs() *EpochRepository {
	return &EpochRepository{db: s.db}
}

// Create inserts the history of a run in a single transaction.
func (r *EpochRepository) Create(runID string, epochs []Epoch) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO run_epochs
		(run_id, epoch, loss, accuracy, val_loss, val_accuracy, learning_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range epochs {
		if _, err := stmt.Exec(runID, e.Epoch, e.Loss, e.Accuracy, e.ValLoss, e.ValAccuracy, e.LearningRate); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByRunID retrieves the history of a run in epoch order.
func (r *EpochRepository) GetByRunID(runID string) ([]Epoch, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, epoch, loss, accuracy, val_loss, val_accuracy, learning_rate
		 FROM run_epochs WHERE run_id = ? ORDER BY epoch`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var epochs []Epoch
	for rows.Next() {
		var e Epoch
		if err := rows.Scan(&e.ID, &e.RunID, &e.Epoch, &e.Loss, &e.Accuracy, &e.ValLoss, &e.ValAccuracy, &e.LearningRate); err != nil {
			return nil, err
		}
		epochs = append(epochs, e)
	}

	return epochs, rows.Err()
}
