package types

import (
	"strings"
	"time"
)

// Address represents a single mailbox address
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// AddressList is an ordered list of addresses in envelope order
type AddressList []Address

// Addresses returns the bare addresses of the list
func (l AddressList) Addresses() []string {
	out := make([]string, 0, len(l))
	for _, a := range l {
		out = append(out, a.Address)
	}
	return out
}

// MessagePart represents one textual body or attachment payload
type MessagePart struct {
	Content  string `json:"contents"`
	Charset  string `json:"charset"`
	MimeType string `json:"mimeType"`
}

// IsBlank reports whether the part has no visible content
func (p MessagePart) IsBlank() bool {
	return strings.TrimSpace(p.Content) == ""
}

// FlagName is one of the supported system flags
type FlagName string

// Supported flags
const (
	FlagSeen     FlagName = "Seen"
	FlagAnswered FlagName = "Answered"
	FlagDraft    FlagName = "Draft"
	FlagFlagged  FlagName = "Flagged"
	FlagRecent   FlagName = "Recent"
)

// IMAP returns the protocol-level system flag
func (f FlagName) IMAP() string {
	return `\` + string(f)
}

// Flag is a flag name with the value it should have
type Flag struct {
	Name  FlagName `json:"name"`
	Value bool     `json:"value"`
}

// FlagList describes a single STORE instruction
type FlagList []Flag

// Split returns the protocol flags to add and to remove
func (l FlagList) Split() (add, remove []string) {
	for _, f := range l {
		if f.Value {
			add = append(add, f.Name.IMAP())
		} else {
			remove = append(remove, f.Name.IMAP())
		}
	}
	return add, remove
}

// Attachment represents a file attached to a message
type Attachment struct {
	Key      *AttachmentKey `json:"key,omitempty"`
	Type     string         `json:"type"`
	Text     string         `json:"text"`
	Size     int            `json:"size"`
	Content  string         `json:"content,omitempty"`
	Encoding string         `json:"encoding"`
}

// Draft represents a message being composed
type Draft struct {
	Key        *MessageKey  `json:"key,omitempty"`
	Subject    string       `json:"subject"`
	From       *Address     `json:"from,omitempty"`
	ReplyTo    *Address     `json:"replyTo,omitempty"`
	To         AddressList  `json:"to"`
	Cc         AddressList  `json:"cc"`
	Bcc        AddressList  `json:"bcc"`
	Date       time.Time    `json:"date"`
	InReplyTo  string       `json:"inReplyTo,omitempty"`
	References string       `json:"references,omitempty"`
	MessageID  string       `json:"messageId,omitempty"`
	Seen       *bool        `json:"seen,omitempty"`
	Flagged    *bool        `json:"flagged,omitempty"`
	Plain      *MessagePart `json:"plain,omitempty"`
	HTML       *MessagePart `json:"html,omitempty"`
	// Origin is the message this draft replies to
	Origin *MessageKey `json:"origin,omitempty"`
}

// WithKey returns a copy of the draft bound to key
func (d Draft) WithKey(key MessageKey) Draft {
	d.Key = &key
	return d
}

// Flags returns the flags the draft carries, Draft included
func (d Draft) Flags() FlagList {
	flags := FlagList{{Name: FlagDraft, Value: true}}
	if d.Seen != nil {
		flags = append(flags, Flag{Name: FlagSeen, Value: *d.Seen})
	}
	if d.Flagged != nil {
		flags = append(flags, Flag{Name: FlagFlagged, Value: *d.Flagged})
	}
	return flags
}

// FolderType classifies a mailbox by its role
type FolderType string

// Folder roles
const (
	FolderInbox  FolderType = "INBOX"
	FolderDraft  FolderType = "DRAFT"
	FolderSent   FolderType = "SENT"
	FolderTrash  FolderType = "TRASH"
	FolderJunk   FolderType = "JUNK"
	FolderFolder FolderType = "FOLDER"
)

// Folder represents an email folder/mailbox
type Folder struct {
	Key         FolderKey  `json:"key"`
	Name        string     `json:"name"`
	Delimiter   string     `json:"delimiter"`
	Attributes  []string   `json:"attributes"`
	Type        FolderType `json:"folderType"`
	UnreadCount int        `json:"unreadCount"`
}
