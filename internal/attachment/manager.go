package attachment

import (
	"encoding/base64"
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/internal/compose"
	"github.com/brandon/mailbox-adapter/internal/email"
	"github.com/brandon/mailbox-adapter/internal/mimepart"
	"github.com/brandon/mailbox-adapter/internal/step"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Manager lists and rewrites the attachments of stored messages
type Manager struct {
	transport email.Transport
	composer  compose.Attachments
	sequencer step.Sequencer
	logger    *logrus.Logger
}

// NewManager creates a manager. A nil sequencer runs steps sequentially.
func NewManager(t email.Transport, seq step.Sequencer, logger *logrus.Logger) *Manager {
	if seq == nil {
		seq = step.Sequential{}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		transport: t,
		composer:  compose.Attachments{IDFor: IDFor},
		sequencer: seq,
		logger:    logger,
	}
}

// List returns the named attachments of the message, keyed with their ids
func (m *Manager) List(key types.MessageKey) ([]types.Attachment, error) {
	uid, err := key.UID()
	if err != nil {
		return nil, err
	}

	msg, err := m.fetchOne(key.FolderID, uid, []imap.FetchItem{imap.FetchUid, imap.FetchBodyStructure})
	if err != nil {
		return nil, err
	}

	sections := mimepart.AttachmentSections(msg.BodyStructure)
	if len(sections) == 0 {
		return []types.Attachment{}, nil
	}

	items := []imap.FetchItem{imap.FetchUid}
	for _, section := range sections {
		items = append(items, section.FetchItem())
	}
	withParts, err := m.fetchOne(key.FolderID, uid, items)
	if err != nil {
		return nil, err
	}

	atts := mimepart.ExtractAttachments(msg.BodyStructure, mimepart.Collect(withParts, sections))
	for i := range atts {
		atts[i] = WithKey(atts[i], key)
	}
	return atts, nil
}

// Create attaches atts to the message. The message is replaced by a new copy
// flagged \Draft; the returned attachments are keyed under the new message.
func (m *Manager) Create(key types.MessageKey, atts []types.Attachment) ([]types.Attachment, error) {
	var newKey types.MessageKey
	err := m.replace("create attachments", key, func(raw []byte) ([]byte, error) {
		return m.composer.Compose(raw, atts)
	}, &newKey)
	if err != nil {
		return nil, err
	}

	out := make([]types.Attachment, 0, len(atts))
	for _, att := range atts {
		if att.Size == 0 {
			if data, err := base64.StdEncoding.DecodeString(att.Content); err == nil {
				att.Size = len(data)
			}
		}
		out = append(out, WithKey(att, newKey))
	}

	m.logger.WithFields(logrus.Fields{
		"message": newKey.String(),
		"count":   len(out),
	}).Info("Attached files")
	return out, nil
}

// Delete detaches the attachment and returns the key of the rewritten message
func (m *Manager) Delete(attKey types.AttachmentKey) (types.MessageKey, error) {
	var newKey types.MessageKey
	err := m.replace("delete attachment", attKey.MessageKey, func(raw []byte) ([]byte, error) {
		return m.composer.Remove(raw, attKey.AttachmentID)
	}, &newKey)
	if err != nil {
		return types.MessageKey{}, err
	}
	return newKey, nil
}

// replace fetches the message, rewrites it, appends the result, flags it \Draft
// and expunges the original
func (m *Manager) replace(op string, key types.MessageKey, rewrite func([]byte) ([]byte, error), newKey *types.MessageKey) error {
	uid, err := key.UID()
	if err != nil {
		return err
	}
	folder := key.FolderID

	var (
		raw      *email.RawMessage
		composed []byte
		newUID   uint32
	)
	return m.sequencer.Run(step.Op{Name: op, Key: key},
		step.Step{Name: "fetch message", Run: func() error {
			raw, err = email.FetchRaw(m.transport, folder, uid)
			return err
		}},
		step.Step{Name: "compose message", Run: func() error {
			composed, err = rewrite(raw.Body)
			return err
		}},
		step.Step{Name: "append message", Run: func() error {
			newUID, err = m.transport.Append(folder, email.CarryFlags(raw.Flags), composed)
			if err == nil {
				*newKey = types.NewMessageKey(key.Folder(), newUID)
			}
			return err
		}},
		step.Step{Name: "flag draft", Run: func() error {
			return m.transport.Store(folder, []uint32{newUID}, []string{imap.DraftFlag}, nil)
		}},
		step.Step{Name: "delete old message", Run: func() error {
			_, err := m.transport.Expunge(folder, []uint32{uid})
			return err
		}},
	)
}

func (m *Manager) fetchOne(folder string, uid uint32, items []imap.FetchItem) (*imap.Message, error) {
	msgs, err := m.transport.Fetch(folder, []uint32{uid}, items)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if msg.Uid == uid {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("uid %d in %s: %w", uid, folder, email.ErrNoMessage)
}
