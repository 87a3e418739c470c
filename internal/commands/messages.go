package commands

import (
	"github.com/brandon/mailbox-adapter/internal/adapter"
	"github.com/brandon/mailbox-adapter/internal/attribute"
	"github.com/brandon/mailbox-adapter/internal/filter"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// listCommand lists one page of a folder
type listCommand struct {
	accounts Accounts
}

type listInput struct {
	target
	Start      int                    `json:"start"`
	Limit      int                    `json:"limit"`
	Filter     []filter.Clause        `json:"filter"`
	Attributes map[string]interface{} `json:"attributes"`
}

func (c *listCommand) Name() string {
	return "list"
}

func (c *listCommand) Description() string {
	return "List messages of a folder, newest first, with optional filter and attributes"
}

func (c *listCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in listInput
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, err := client(c.accounts, in.target)
	if err != nil {
		return nil, err
	}
	folder, err := in.folderKey(cl.Account())
	if err != nil {
		return nil, err
	}

	items, err := cl.ListMessages(folder, adapter.ListOptions{
		Start:      in.Start,
		Limit:      in.Limit,
		Filter:     in.Filter,
		Attributes: attribute.ParseRequest(in.Attributes),
	})
	if err != nil {
		return nil, err
	}
	total, err := cl.TotalCount(folder, in.Filter)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"items": items,
		"start": in.Start,
		"total": total,
	}, nil
}

// itemCommand shows one message, or one draft for editing
type itemCommand struct {
	accounts Accounts
}

type itemInput struct {
	target
	Draft      bool                   `json:"draft"`
	Attributes map[string]interface{} `json:"attributes"`
}

func (c *itemCommand) Name() string {
	return "item"
}

func (c *itemCommand) Description() string {
	return "Show one message; with draft=true show it as an editable draft"
}

func (c *itemCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in itemInput
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, key, err := message(c.accounts, in.target)
	if err != nil {
		return nil, err
	}

	if in.Draft {
		return cl.GetDraft(key)
	}
	return cl.GetMessage(key, attribute.ParseRequest(in.Attributes))
}

// bodyCommand shows the text bodies of one message
type bodyCommand struct {
	accounts Accounts
}

type bodyInput struct {
	target
	Length uint32 `json:"length"`
}

func (c *bodyCommand) Name() string {
	return "body"
}

func (c *bodyCommand) Description() string {
	return "Show the plain and html bodies of a message, optionally truncated to length bytes"
}

func (c *bodyCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in bodyInput
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, key, err := message(c.accounts, in.target)
	if err != nil {
		return nil, err
	}
	return cl.GetBody(key, in.Length)
}

// flagCommand sets or clears flags of one message
type flagCommand struct {
	accounts Accounts
}

type flagInput struct {
	target
	Flags types.FlagList `json:"flags"`
}

func (c *flagCommand) Name() string {
	return "flag"
}

func (c *flagCommand) Description() string {
	return "Set or clear flags of a message, e.g. flags=[{\"name\":\"Seen\",\"value\":true}]"
}

func (c *flagCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in flagInput
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, key, err := message(c.accounts, in.target)
	if err != nil {
		return nil, err
	}

	if err := cl.SetFlags(key, in.Flags); err != nil {
		return nil, err
	}
	return map[string]interface{}{"key": key, "flags": in.Flags}, nil
}

// moveCommand moves one message to another folder
type moveCommand struct {
	accounts Accounts
}

type moveInput struct {
	target
	To string `json:"to"`
}

func (c *moveCommand) Name() string {
	return "move"
}

func (c *moveCommand) Description() string {
	return "Move a message to the folder named by to"
}

func (c *moveCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in moveInput
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, key, err := message(c.accounts, in.target)
	if err != nil {
		return nil, err
	}

	newKey, err := cl.Move(key, types.FolderKey{AccountID: cl.Account(), FolderID: in.To})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"key": newKey}, nil
}

// deleteCommand expunges one message
type deleteCommand struct {
	accounts Accounts
}

func (c *deleteCommand) Name() string {
	return "delete"
}

func (c *deleteCommand) Description() string {
	return "Delete a message permanently"
}

func (c *deleteCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in target
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, key, err := message(c.accounts, in)
	if err != nil {
		return nil, err
	}

	removed, err := cl.Delete(key)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"key": key, "deleted": removed}, nil
}

// message resolves the client and the message key named by t
func message(accounts Accounts, t target) (*adapter.Client, types.MessageKey, error) {
	cl, err := client(accounts, t)
	if err != nil {
		return nil, types.MessageKey{}, err
	}
	key, err := t.messageKey(cl.Account())
	if err != nil {
		return nil, types.MessageKey{}, err
	}
	return cl, key, nil
}
