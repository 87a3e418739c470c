// Package draft creates, updates, sends, moves and deletes drafts on an
// append-only mailbox store. Every update stores a new copy and expunges the
// old one, so each update returns a new message key.
package draft

import (
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/internal/compose"
	"github.com/brandon/mailbox-adapter/internal/email"
	"github.com/brandon/mailbox-adapter/internal/step"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

var (
	// ErrNoKey is returned when an update is asked for a draft that was never stored
	ErrNoKey = errors.New("draft has no message key")
	// ErrNotADraft is returned when sending a message without the \Draft flag
	ErrNotADraft = errors.New("message is not a draft")
	// ErrCrossAccount is returned when moving a message to another account
	ErrCrossAccount = errors.New("cannot move a message between accounts")
	// ErrNoRecipients is returned when sending a draft without recipients
	ErrNoRecipients = errors.New("draft has no recipients")
)

// Options configures a Lifecycle
type Options struct {
	// Account is the id of the account the transport belongs to
	Account string
	// SentFolder receives a copy of every sent draft. Empty disables the copy.
	SentFolder string
	Sequencer  step.Sequencer
	Logger     *logrus.Logger
	Now        func() time.Time
}

// Lifecycle drives drafts through create, update, send and delete
type Lifecycle struct {
	transport  email.Transport
	sender     email.Sender
	body       compose.Body
	header     compose.Header
	sequencer  step.Sequencer
	account    string
	sentFolder string
	logger     *logrus.Logger
}

// New creates a draft lifecycle over the given transports
func New(t email.Transport, s email.Sender, opts Options) *Lifecycle {
	if opts.Sequencer == nil {
		opts.Sequencer = step.Sequential{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Lifecycle{
		transport:  t,
		sender:     s,
		header:     compose.Header{Now: opts.Now},
		sequencer:  opts.Sequencer,
		account:    opts.Account,
		sentFolder: opts.SentFolder,
		logger:     opts.Logger,
	}
}

// Create stores a new draft in folder and returns it bound to its key.
// Passing a draft that already has a key is a programming error.
func (l *Lifecycle) Create(folder types.FolderKey, d types.Draft) (types.Draft, error) {
	if d.Key != nil {
		panic(fmt.Sprintf("draft already stored as %s", d.Key))
	}

	var (
		raw    []byte
		err    error
		newUID uint32
	)
	op := step.Op{Name: "create draft", Key: types.MessageKey{AccountID: folder.AccountID, FolderID: folder.FolderID}}
	err = l.sequencer.Run(op,
		step.Step{Name: "compose body", Run: func() error {
			raw, err = l.body.Compose(nil, d)
			return err
		}},
		step.Step{Name: "compose header", Run: func() error {
			raw, err = l.header.Compose(raw, &d)
			return err
		}},
		step.Step{Name: "append draft", Run: func() error {
			newUID, err = l.transport.Append(folder.FolderID, nil, raw)
			return err
		}},
		l.flagStep(folder.FolderID, &newUID, d.Flags()),
	)
	if err != nil {
		return types.Draft{}, err
	}

	key := types.NewMessageKey(folder, newUID)
	l.logger.WithField("draft", key.String()).Info("Created draft")
	return d.WithKey(key), nil
}

// Update replaces the stored draft with one recomposed from d, body included
func (l *Lifecycle) Update(d types.Draft) (types.Draft, error) {
	return l.replace("update draft", d, true)
}

// UpdateItem replaces the stored draft with one whose header fields come from d.
// The body of the stored draft is kept.
func (l *Lifecycle) UpdateItem(d types.Draft) (types.Draft, error) {
	return l.replace("update draft item", d, false)
}

func (l *Lifecycle) replace(opName string, d types.Draft, withBody bool) (types.Draft, error) {
	if d.Key == nil {
		return types.Draft{}, ErrNoKey
	}
	oldKey := *d.Key
	uid, err := oldKey.UID()
	if err != nil {
		return types.Draft{}, err
	}
	folder := oldKey.FolderID

	var (
		stored *email.RawMessage
		raw    []byte
		newUID uint32
	)
	steps := []step.Step{
		{Name: "fetch draft", Run: func() error {
			stored, err = email.FetchRaw(l.transport, folder, uid)
			if err == nil {
				raw = stored.Body
			}
			return err
		}},
	}
	if withBody {
		steps = append(steps, step.Step{Name: "compose body", Run: func() error {
			raw, err = l.body.Compose(raw, d)
			return err
		}})
	}
	steps = append(steps,
		step.Step{Name: "compose header", Run: func() error {
			raw, err = l.header.Compose(raw, &d)
			return err
		}},
		step.Step{Name: "append draft", Run: func() error {
			newUID, err = l.transport.Append(folder, email.CarryFlags(stored.Flags), raw)
			return err
		}},
		l.flagStep(folder, &newUID, d.Flags()),
		step.Step{Name: "delete old draft", Run: func() error {
			_, err := l.transport.Expunge(folder, []uint32{uid})
			return err
		}},
	)

	if err := l.sequencer.Run(step.Op{Name: opName, Key: oldKey}, steps...); err != nil {
		return types.Draft{}, err
	}

	key := types.NewMessageKey(oldKey.Folder(), newUID)
	l.logger.WithFields(logrus.Fields{
		"old": oldKey.String(),
		"new": key.String(),
	}).Info("Replaced draft")
	return d.WithKey(key), nil
}

// flagStep sets flags on the UID the append step stores in uid
func (l *Lifecycle) flagStep(folder string, uid *uint32, flags types.FlagList) step.Step {
	return step.Step{Name: "flag draft", Run: func() error {
		add, remove := flags.Split()
		return l.transport.Store(folder, []uint32{*uid}, add, remove)
	}}
}

// Delete expunges the message and reports whether it was removed
func (l *Lifecycle) Delete(key types.MessageKey) (bool, error) {
	uid, err := key.UID()
	if err != nil {
		return false, err
	}

	removed, err := l.transport.Expunge(key.FolderID, []uint32{uid})
	if err != nil {
		return false, err
	}
	return len(removed) > 0, nil
}

// Move moves the message to folder and returns its new key. A folder with the
// same id as the message's returns the key unchanged without any transport call,
// whatever account it names.
func (l *Lifecycle) Move(key types.MessageKey, folder types.FolderKey) (types.MessageKey, error) {
	if key.FolderID == folder.FolderID {
		return key, nil
	}
	if key.AccountID != folder.AccountID {
		return types.MessageKey{}, ErrCrossAccount
	}
	uid, err := key.UID()
	if err != nil {
		return types.MessageKey{}, err
	}

	mapping, err := l.transport.Copy(key.FolderID, folder.FolderID, []uint32{uid}, true)
	if err != nil {
		return types.MessageKey{}, err
	}
	newUID, ok := mapping[uid]
	if !ok {
		return types.MessageKey{}, fmt.Errorf("uid %d in %s: %w", uid, key.FolderID, email.ErrNoMessage)
	}
	return types.NewMessageKey(folder, newUID), nil
}

// markAnswered flags the origin of a sent reply. Failures are only logged.
func (l *Lifecycle) markAnswered(origin types.MessageKey) {
	log := l.logger.WithField("origin", origin.String())
	if origin.AccountID != l.account {
		log.Debug("Reply origin belongs to another account")
		return
	}
	uid, err := origin.UID()
	if err != nil {
		log.WithError(err).Warn("Invalid reply origin")
		return
	}
	if err := l.transport.Store(origin.FolderID, []uint32{uid}, []string{imap.AnsweredFlag}, nil); err != nil {
		log.WithError(err).Warn("Failed to mark reply origin as answered")
	}
}
