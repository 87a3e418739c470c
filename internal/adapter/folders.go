package adapter

import (
	"strings"

	"github.com/emersion/go-imap"

	"github.com/brandon/mailbox-adapter/internal/filter"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// ListFolders lists the selectable folders of the account with their role and
// unread count
func (c *Client) ListFolders() ([]types.Folder, error) {
	const op = "list folders"

	infos, err := c.transport.ListMailboxes("*")
	if err != nil {
		return nil, classify(op, err)
	}

	folders := make([]types.Folder, 0, len(infos))
	for _, info := range infos {
		if hasAttr(info.Attributes, imap.NoSelectAttr) {
			continue
		}

		unread, err := c.transport.Unseen(info.Name)
		if err != nil {
			return nil, classify(op, err)
		}

		folders = append(folders, types.Folder{
			Key:         types.FolderKey{AccountID: c.account.Name, FolderID: info.Name},
			Name:        info.Name,
			Delimiter:   info.Delimiter,
			Attributes:  info.Attributes,
			Type:        c.folderType(info),
			UnreadCount: int(unread),
		})
	}
	return folders, nil
}

// folderType classifies a mailbox by its special-use attribute, then by the
// configured role names
func (c *Client) folderType(info *imap.MailboxInfo) types.FolderType {
	switch {
	case strings.EqualFold(info.Name, "INBOX"):
		return types.FolderInbox
	case hasAttr(info.Attributes, imap.DraftsAttr):
		return types.FolderDraft
	case hasAttr(info.Attributes, imap.SentAttr):
		return types.FolderSent
	case hasAttr(info.Attributes, imap.TrashAttr):
		return types.FolderTrash
	case hasAttr(info.Attributes, imap.JunkAttr):
		return types.FolderJunk
	case info.Name == c.account.DraftsFolder:
		return types.FolderDraft
	case c.account.SentFolder != "" && info.Name == c.account.SentFolder:
		return types.FolderSent
	}
	return types.FolderFolder
}

func hasAttr(attrs []string, attr string) bool {
	for _, a := range attrs {
		if strings.EqualFold(a, attr) {
			return true
		}
	}
	return false
}

// UnreadCount returns the number of unseen messages in folder
func (c *Client) UnreadCount(folder types.FolderKey) (int, error) {
	const op = "unread count"
	if err := c.checkFolder(op, folder); err != nil {
		return 0, err
	}

	n, err := c.transport.Unseen(folder.FolderID)
	if err != nil {
		return 0, classify(op, err)
	}
	return int(n), nil
}

// TotalCount returns the number of messages in folder matching the filter
func (c *Client) TotalCount(folder types.FolderKey, clauses []filter.Clause) (int, error) {
	const op = "total count"
	if err := c.checkFolder(op, folder); err != nil {
		return 0, err
	}

	uids, err := c.transport.Search(folder.FolderID, filter.Compile(clauses))
	if err != nil {
		return 0, classify(op, err)
	}
	return len(uids), nil
}
