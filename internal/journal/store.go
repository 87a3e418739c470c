package journal

import (
	"fmt"
	"time"

	"github.com/brandon/mailbox-adapter/internal/step"
)

// Run statuses
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Run executes steps in order like step.Sequential and records each one.
// Journal write failures are logged and never stop the steps themselves.
func (j *Journal) Run(op step.Op, steps ...step.Step) error {
	runID, err := j.startRun(op)
	if err != nil {
		j.logger.WithError(err).WithField("op", op.Name).Warn("Failed to journal operation")
		return step.Sequential{}.Run(op, steps...)
	}

	for i, s := range steps {
		runErr := s.Run()
		j.recordStep(runID, i, s.Name, runErr)
		if runErr != nil {
			err := fmt.Errorf("failed to %s: %w", s.Name, runErr)
			j.finishRun(runID, StatusFailed, err)
			return err
		}
	}

	j.finishRun(runID, StatusDone, nil)
	return nil
}

// startRun inserts a running run for op
func (j *Journal) startRun(op step.Op) (int64, error) {
	query := `
		INSERT INTO runs (op, account, folder, message_id, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := j.db.Exec(query, op.Name, op.Key.AccountID, op.Key.FolderID, op.Key.ID, StatusRunning, timestamp(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return id, nil
}

// recordStep stores the outcome of one step
func (j *Journal) recordStep(runID int64, position int, name string, runErr error) {
	status, msg := StatusDone, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	query := `
		INSERT INTO steps (run_id, position, name, status, error, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := j.db.Exec(query, runID, position, name, status, msg, timestamp(time.Now())); err != nil {
		j.logger.WithError(err).WithField("run", runID).Warn("Failed to journal step")
	}
}

// finishRun sets the final status of a run
func (j *Journal) finishRun(runID int64, status string, runErr error) {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}

	query := `UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`
	if _, err := j.db.Exec(query, status, msg, timestamp(time.Now()), runID); err != nil {
		j.logger.WithError(err).WithField("run", runID).Warn("Failed to finish journal run")
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
