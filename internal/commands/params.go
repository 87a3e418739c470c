package commands

import (
	"encoding/json"
	"fmt"

	"github.com/brandon/mailbox-adapter/internal/adapter"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// decode copies params into the fields of v by their json names
func decode(params map[string]interface{}, v interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// target names one folder or one message of an account
type target struct {
	Account string `json:"account"`
	Folder  string `json:"folder"`
	ID      string `json:"id"`
}

func (t target) folderKey(account string) (types.FolderKey, error) {
	if t.Folder == "" {
		return types.FolderKey{}, fmt.Errorf("folder is required")
	}
	return types.FolderKey{AccountID: account, FolderID: t.Folder}, nil
}

func (t target) messageKey(account string) (types.MessageKey, error) {
	folder, err := t.folderKey(account)
	if err != nil {
		return types.MessageKey{}, err
	}
	if t.ID == "" {
		return types.MessageKey{}, fmt.Errorf("id is required")
	}
	return types.MessageKey{AccountID: folder.AccountID, FolderID: folder.FolderID, ID: t.ID}, nil
}

// client resolves the account named by t
func client(accounts Accounts, t target) (*adapter.Client, error) {
	c, err := accounts.Client(t.Account)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	return c, nil
}
