package adapter

import (
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// CreateDraft stores a new draft. An empty folder id selects the account's
// drafts folder.
func (c *Client) CreateDraft(folder types.FolderKey, d types.Draft) (types.Draft, error) {
	const op = "create draft"
	if folder.FolderID == "" {
		folder.FolderID = c.account.DraftsFolder
	}
	if err := c.checkFolder(op, folder); err != nil {
		return types.Draft{}, err
	}
	if d.Key != nil {
		return types.Draft{}, reject(KindPrecondition, op, "draft is already stored as %s", d.Key)
	}

	saved, err := c.drafts.Create(folder, d)
	if err != nil {
		return types.Draft{}, classify(op, err)
	}
	return saved, nil
}

// UpdateDraft replaces a stored draft, body included, and returns it with its new key
func (c *Client) UpdateDraft(d types.Draft) (types.Draft, error) {
	const op = "update draft"
	if err := c.checkDraft(op, d); err != nil {
		return types.Draft{}, err
	}

	saved, err := c.drafts.Update(d)
	if err != nil {
		return types.Draft{}, classify(op, err)
	}
	return saved, nil
}

// UpdateDraftItem replaces the header fields and flags of a stored draft
func (c *Client) UpdateDraftItem(d types.Draft) (types.Draft, error) {
	const op = "update draft item"
	if err := c.checkDraft(op, d); err != nil {
		return types.Draft{}, err
	}

	saved, err := c.drafts.UpdateItem(d)
	if err != nil {
		return types.Draft{}, classify(op, err)
	}
	return saved, nil
}

// Send submits a stored draft
func (c *Client) Send(key types.MessageKey) error {
	const op = "send draft"
	if _, err := c.checkKey(op, key); err != nil {
		return err
	}
	return classify(op, c.drafts.Send(key))
}

func (c *Client) checkDraft(op string, d types.Draft) error {
	if d.Key == nil {
		return reject(KindPrecondition, op, "draft has no message key")
	}
	_, err := c.checkKey(op, *d.Key)
	return err
}
