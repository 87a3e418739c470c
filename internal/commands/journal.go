package commands

import (
	"time"

	"github.com/brandon/mailbox-adapter/internal/journal"
)

// journalCommand shows journaled replace-by-copy runs
type journalCommand struct {
	journal *journal.Journal
}

type journalInput struct {
	Account   string `json:"account"`
	Op        string `json:"op"`
	Pending   bool   `json:"pending"`
	Limit     int    `json:"limit"`
	PruneDays int    `json:"pruneDays"`
}

func (c *journalCommand) Name() string {
	return "journal"
}

func (c *journalCommand) Description() string {
	return "Show journaled runs; pending=true lists runs that never completed, pruneDays drops completed runs older than that"
}

func (c *journalCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in journalInput
	if err := decode(params, &in); err != nil {
		return nil, err
	}

	if in.PruneDays > 0 {
		n, err := c.journal.Prune(time.Now().AddDate(0, 0, -in.PruneDays))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"pruned": n}, nil
	}

	q := journal.Query{Pending: in.Pending, Limit: in.Limit}
	if in.Account != "" {
		q.Account = &in.Account
	}
	if in.Op != "" {
		q.Op = &in.Op
	}
	return c.journal.Runs(q)
}
