// Package commands exposes the mailbox operations as named commands taking
// JSON parameters.
package commands

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/internal/journal"
)

// Registry manages the available commands
type Registry struct {
	accounts Accounts
	journal  *journal.Journal
	logger   *logrus.Logger
	commands map[string]Command
}

// Command is one operation callable by name
type Command interface {
	Name() string
	Description() string
	Execute(params map[string]interface{}) (interface{}, error)
}

// NewRegistry creates a registry over accounts. The journal may be nil, in
// which case the journal command is not registered.
func NewRegistry(accounts Accounts, j *journal.Journal, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	reg := &Registry{
		accounts: accounts,
		journal:  j,
		logger:   logger,
		commands: make(map[string]Command),
	}
	reg.registerCommands()
	return reg
}

func (r *Registry) registerCommands() {
	commandList := []Command{
		&foldersCommand{accounts: r.accounts},
		&unreadCommand{accounts: r.accounts},
		&listCommand{accounts: r.accounts},
		&itemCommand{accounts: r.accounts},
		&bodyCommand{accounts: r.accounts},
		&attachmentsCommand{accounts: r.accounts},
		&flagCommand{accounts: r.accounts},
		&moveCommand{accounts: r.accounts},
		&deleteCommand{accounts: r.accounts},
		&sendCommand{accounts: r.accounts, logger: r.logger},
	}
	if r.journal != nil {
		commandList = append(commandList, &journalCommand{journal: r.journal})
	}

	for _, cmd := range commandList {
		r.commands[cmd.Name()] = cmd
		r.logger.WithField("command", cmd.Name()).Debug("Registered command")
	}
	r.logger.WithField("count", len(r.commands)).Debug("Registered commands")
}

// Get returns a command by name
func (r *Registry) Get(name string) (Command, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// List returns all registered commands sorted by name
func (r *Registry) List() []Command {
	commands := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		commands = append(commands, cmd)
	}
	sort.Slice(commands, func(i, j int) bool { return commands[i].Name() < commands[j].Name() })
	return commands
}

// Execute runs the named command
func (r *Registry) Execute(name string, params map[string]interface{}) (interface{}, error) {
	cmd, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", name)
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	r.logger.WithField("command", name).Debug("Executing command")
	return cmd.Execute(params)
}
