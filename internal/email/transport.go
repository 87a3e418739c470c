package email

import (
	"errors"
	"fmt"
	"io"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/mail"
)

// ErrNoMessage is returned when a fetched UID does not exist in the folder
var ErrNoMessage = errors.New("message not found")

// Transport is the session-oriented mailbox store the adapter drives.
// UIDs are always IMAP UIDs of the named folder.
type Transport interface {
	ListMailboxes(pattern string) ([]*imap.MailboxInfo, error)
	Unseen(folder string) (uint32, error)
	Search(folder string, criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(folder string, uids []uint32, items []imap.FetchItem) ([]*imap.Message, error)
	Store(folder string, uids []uint32, add, remove []string) error
	Append(folder string, flags []string, raw []byte) (uint32, error)
	Expunge(folder string, uids []uint32) ([]uint32, error)
	Copy(src, dst string, uids []uint32, move bool) (map[uint32]uint32, error)
	Close() error
}

// Sender delivers a composed message. The envelope is derived from the header.
type Sender interface {
	Send(header mail.Header, body io.Reader) error
}

// FullSection is the peek section for the whole raw message
func FullSection() *imap.BodySectionName {
	return &imap.BodySectionName{Peek: true}
}

// RawMessage is one message fetched in full
type RawMessage struct {
	UID   uint32
	Flags []string
	Body  []byte
}

// HasFlag reports whether the message carries flag
func (m *RawMessage) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// FetchRaw fetches the full raw message and its flags without setting \Seen
func FetchRaw(t Transport, folder string, uid uint32) (*RawMessage, error) {
	section := FullSection()
	msgs, err := t.Fetch(folder, []uint32{uid}, []imap.FetchItem{imap.FetchUid, imap.FetchFlags, section.FetchItem()})
	if err != nil {
		return nil, err
	}

	for _, msg := range msgs {
		if msg.Uid != uid {
			continue
		}
		lit := msg.GetBody(section)
		if lit == nil {
			return nil, fmt.Errorf("message %d has no body", uid)
		}
		body, err := io.ReadAll(lit)
		if err != nil {
			return nil, fmt.Errorf("failed to read message %d: %w", uid, err)
		}
		return &RawMessage{UID: uid, Flags: msg.Flags, Body: body}, nil
	}

	return nil, ErrNoMessage
}

// CarryFlags returns the flags a replacement copy of a message keeps.
// \Recent and \Deleted are dropped.
func CarryFlags(flags []string) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if f == imap.RecentFlag || f == imap.DeletedFlag {
			continue
		}
		out = append(out, f)
	}
	return out
}
