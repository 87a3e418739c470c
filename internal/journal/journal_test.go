package journal

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailbox-adapter/internal/step"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func noop(name string) step.Step {
	return step.Step{Name: name, Run: func() error { return nil }}
}

func TestJournalRecordsCompletedRun(t *testing.T) {
	j := openJournal(t)
	key := types.MessageKey{AccountID: "acc", FolderID: "Drafts", ID: "4"}

	require.NoError(t, j.Run(step.Op{Name: "update draft", Key: key}, noop("append draft"), noop("delete old draft")))

	runs, err := j.Runs(Query{})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, "update draft", run.Op)
	assert.Equal(t, key, run.Key)
	assert.Equal(t, StatusDone, run.Status)
	assert.NotNil(t, run.FinishedAt)
	assert.Equal(t, []StepRecord{
		{Position: 0, Name: "append draft", Status: StatusDone},
		{Position: 1, Name: "delete old draft", Status: StatusDone},
	}, run.Steps)

	pending, err := j.Pending("")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestJournalRecordsFailedRun(t *testing.T) {
	j := openJournal(t)
	key := types.MessageKey{AccountID: "acc", FolderID: "Drafts", ID: "4"}
	boom := errors.New("connection reset")
	deleted := false

	err := j.Run(step.Op{Name: "update draft", Key: key},
		noop("append draft"),
		step.Step{Name: "flag draft", Run: func() error { return boom }},
		step.Step{Name: "delete old draft", Run: func() error { deleted = true; return nil }},
	)
	require.ErrorIs(t, err, boom)
	assert.False(t, deleted)

	pending, err := j.Pending("acc")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, StatusFailed, pending[0].Status)
	assert.Equal(t, "failed to flag draft: connection reset", pending[0].Error)
	require.Len(t, pending[0].Steps, 2)
	assert.Equal(t, StatusDone, pending[0].Steps[0].Status)
	assert.Equal(t, "connection reset", pending[0].Steps[1].Error)

	other, err := j.Pending("other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestJournalPrune(t *testing.T) {
	j := openJournal(t)
	key := types.MessageKey{AccountID: "acc", FolderID: "Drafts", ID: "1"}

	require.NoError(t, j.Run(step.Op{Name: "create draft", Key: key}, noop("append draft")))
	require.Error(t, j.Run(step.Op{Name: "send draft", Key: key},
		step.Step{Name: "send", Run: func() error { return errors.New("rejected") }}))

	n, err := j.Prune(time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := j.Runs(Query{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "send draft", runs[0].Op)
}

func TestJournalQueryFilters(t *testing.T) {
	j := openJournal(t)
	for _, acc := range []string{"a", "b", "a"} {
		key := types.MessageKey{AccountID: acc, FolderID: "Drafts", ID: "1"}
		require.NoError(t, j.Run(step.Op{Name: "create draft", Key: key}, noop("append draft")))
	}

	account := "a"
	runs, err := j.Runs(Query{Account: &account})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Greater(t, runs[0].ID, runs[1].ID)

	runs, err = j.Runs(Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
