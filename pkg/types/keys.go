package types

import (
	"fmt"
	"strconv"
)

// FolderKey identifies a mailbox on an account
type FolderKey struct {
	AccountID string `json:"mailAccountId"`
	FolderID  string `json:"mailFolderId"`
}

// MessageKey identifies one message inside a folder. ID is the UID as decimal text.
type MessageKey struct {
	AccountID string `json:"mailAccountId"`
	FolderID  string `json:"mailFolderId"`
	ID        string `json:"id"`
}

// AttachmentKey identifies one attachment inside one message
type AttachmentKey struct {
	MessageKey
	AttachmentID string `json:"attachmentId"`
}

// NewMessageKey creates a message key for uid in folder
func NewMessageKey(folder FolderKey, uid uint32) MessageKey {
	return MessageKey{
		AccountID: folder.AccountID,
		FolderID:  folder.FolderID,
		ID:        strconv.FormatUint(uint64(uid), 10),
	}
}

// Folder returns the key of the folder holding the message
func (k MessageKey) Folder() FolderKey {
	return FolderKey{AccountID: k.AccountID, FolderID: k.FolderID}
}

// UID parses the message id as an IMAP UID
func (k MessageKey) UID() (uint32, error) {
	uid, err := strconv.ParseUint(k.ID, 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid message id %q", k.ID)
	}
	return uint32(uid), nil
}

func (k MessageKey) String() string {
	return k.AccountID + "/" + k.FolderID + "/" + k.ID
}

func (k FolderKey) String() string {
	return k.AccountID + "/" + k.FolderID
}
