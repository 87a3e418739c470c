package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// RunRecord is one journaled operation with its steps
type RunRecord struct {
	ID         int64            `json:"id"`
	Op         string           `json:"op"`
	Key        types.MessageKey `json:"key"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt *time.Time       `json:"finishedAt,omitempty"`
	Steps      []StepRecord     `json:"steps"`
}

// StepRecord is the outcome of one journaled step
type StepRecord struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Query selects journaled runs
type Query struct {
	Account *string
	Op      *string
	Pending bool
	Limit   int
}

// Runs returns journaled runs, newest first
func (j *Journal) Runs(q Query) ([]RunRecord, error) {
	var conditions []string
	var args []interface{}

	if q.Account != nil {
		conditions = append(conditions, "account = ?")
		args = append(args, *q.Account)
	}
	if q.Op != nil {
		conditions = append(conditions, "op = ?")
		args = append(args, *q.Op)
	}
	if q.Pending {
		conditions = append(conditions, "status != ?")
		args = append(args, StatusDone)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Set default limit
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := fmt.Sprintf(`
		SELECT id, op, account, folder, message_id, status, error, started_at, finished_at
		FROM runs
		%s
		ORDER BY id DESC
		LIMIT ?
	`, whereClause)
	args = append(args, limit)

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var startedAt string
		var finishedAt sql.NullString

		err := rows.Scan(
			&run.ID,
			&run.Op,
			&run.Key.AccountID,
			&run.Key.FolderID,
			&run.Key.ID,
			&run.Status,
			&run.Error,
			&startedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start time: %w", err)
		}
		if finishedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
			if err == nil {
				run.FinishedAt = &t
			}
		}

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	for i := range runs {
		steps, err := j.steps(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Steps = steps
	}

	return runs, nil
}

// Pending returns runs that did not complete. A pending run whose append step
// finished may have left a duplicate message behind.
func (j *Journal) Pending(account string) ([]RunRecord, error) {
	q := Query{Pending: true}
	if account != "" {
		q.Account = &account
	}
	return j.Runs(q)
}

// Prune deletes completed runs started before cutoff
func (j *Journal) Prune(cutoff time.Time) (int64, error) {
	result, err := j.db.Exec("DELETE FROM runs WHERE status = ? AND started_at < ?", StatusDone, timestamp(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	return n, nil
}

func (j *Journal) steps(runID int64) ([]StepRecord, error) {
	rows, err := j.db.Query(`
		SELECT position, name, status, error
		FROM steps
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	steps := []StepRecord{}
	for rows.Next() {
		var s StepRecord
		if err := rows.Scan(&s.Position, &s.Name, &s.Status, &s.Error); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
