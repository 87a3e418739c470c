package commands

import (
	"fmt"

	"github.com/brandon/mailbox-adapter/internal/adapter"
	"github.com/brandon/mailbox-adapter/internal/email"
)

// Accounts resolves the adapter client serving an account
type Accounts interface {
	Client(name string) (*adapter.Client, error)
}

// Clients builds one adapter client per configured account on first use
type Clients struct {
	manager *email.AccountManager
	opts    adapter.Options
	clients map[string]*adapter.Client
}

// NewClients creates clients over the accounts of manager
func NewClients(manager *email.AccountManager, opts adapter.Options) *Clients {
	return &Clients{
		manager: manager,
		opts:    opts,
		clients: make(map[string]*adapter.Client),
	}
}

// Client returns the client of the named account. An empty name selects the
// only configured account.
func (c *Clients) Client(name string) (*adapter.Client, error) {
	if name == "" {
		names := c.manager.ListAccounts()
		if len(names) != 1 {
			return nil, fmt.Errorf("account is required when %d accounts are configured", len(names))
		}
		name = names[0]
	}
	if client, ok := c.clients[name]; ok {
		return client, nil
	}

	acc, err := c.manager.GetAccount(name)
	if err != nil {
		return nil, err
	}
	client := adapter.NewForAccount(acc, c.opts)
	c.clients[name] = client
	return client, nil
}
