package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle state of a training run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of the training pipeline.
type Run struct {
	ID           string
	DatasetPath  string
	Status       RunStatus
	Samples      int
	Classes      int
	TrainSamples int
	TestSamples  int
	Accuracy     *float64
	Loss         *float64
	// LiteAccuracy is nil when the exported model could not be verified.
	LiteAccuracy *float64
	ArtifactDir  string
	Error        string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// RunResult carries the figures recorded when a run succeeds.
type RunResult struct {
	Samples      int
	Classes      int
	TrainSamples int
	TestSamples  int
	Accuracy     float64
	Loss         float64
	LiteAccuracy *float64
	ArtifactDir  string
}

// RunRepository provides CRUD operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

const runColumns = `id, dataset_path, status, samples, classes, train_samples, test_samples,
	accuracy, loss, lite_accuracy, artifact_dir, error, started_at, finished_at`

// Create inserts a running run. An empty ID is replaced with a new UUID.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.Status = RunStatusRunning
	run.StartedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO runs (id, dataset_path, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.DatasetPath, string(run.Status), run.StartedAt,
	)
	return err
}

// Finish marks a run succeeded and stores its results.
func (r *RunRepository) Finish(id string, res RunResult) error {
	return r.exec(
		`UPDATE runs SET status = ?, samples = ?, classes = ?, train_samples = ?, test_samples = ?,
		 accuracy = ?, loss = ?, lite_accuracy = ?, artifact_dir = ?, finished_at = ?
		 WHERE id = ?`,
		string(RunStatusSucceeded), res.Samples, res.Classes, res.TrainSamples, res.TestSamples,
		res.Accuracy, res.Loss, res.LiteAccuracy, res.ArtifactDir, time.Now(), id,
	)
}

// Fail marks a run failed with the given error.
func (r *RunRepository) Fail(id string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return r.exec(
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusFailed), msg, time.Now(), id,
	)
}

func (r *RunRepository) exec(query string, args ...any) error {
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

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves the most recent runs, newest first. A limit <= 0 returns
// every run.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Delete removes a run and its history.
func (r *RunRepository) Delete(id string) error {
	return r.exec(`DELETE FROM runs WHERE id = ?`, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var status string
	var accuracy, loss, liteAccuracy sql.NullFloat64
	var finishedAt sql.NullTime

	err := row.Scan(&run.ID, &run.DatasetPath, &status, &run.Samples, &run.Classes,
		&run.TrainSamples, &run.TestSamples, &accuracy, &loss, &liteAccuracy,
		&run.ArtifactDir, &run.Error, &run.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	run.Accuracy = floatPtr(accuracy)
	run.Loss = floatPtr(loss)
	run.LiteAccuracy = floatPtr(liteAccuracy)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return run, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
