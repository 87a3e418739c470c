package draft

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	netmail "net/mail"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime"

	"github.com/brandon/mailbox-adapter/internal/compose"
	"github.com/brandon/mailbox-adapter/internal/email"
	"github.com/brandon/mailbox-adapter/internal/step"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Send delivers the stored draft. A message without the \Draft flag is
// rejected before anything else is issued. When the draft replies to a
// message of the same account that message is flagged \Answered afterwards.
func (l *Lifecycle) Send(key types.MessageKey) error {
	uid, err := key.UID()
	if err != nil {
		return err
	}

	var (
		stored *email.RawMessage
		out    *outgoing
	)
	err = l.sequencer.Run(step.Op{Name: "send draft", Key: key},
		step.Step{Name: "fetch draft", Run: func() error {
			stored, err = email.FetchRaw(l.transport, key.FolderID, uid)
			if err != nil {
				return err
			}
			if !stored.HasFlag(imap.DraftFlag) {
				return ErrNotADraft
			}
			return nil
		}},
		step.Step{Name: "prepare draft", Run: func() error {
			out, err = prepare(stored.Body)
			return err
		}},
		step.Step{Name: "send draft", Run: func() error {
			return l.sender.Send(out.header, bytes.NewReader(out.body))
		}},
	)
	if err != nil {
		return err
	}

	l.logger.WithField("draft", key.String()).Info("Sent draft")

	if out.origin != nil {
		l.markAnswered(*out.origin)
	}
	l.copyToSent(out)
	return nil
}

// outgoing is a draft ready for submission
type outgoing struct {
	header mail.Header
	body   []byte
	origin *types.MessageKey
}

// bytes renders the message as submitted
func (o *outgoing) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := textproto.WriteHeader(&buf, o.header.Header.Header); err != nil {
		return nil, err
	}
	buf.Write(o.body)
	return buf.Bytes(), nil
}

// prepare parses a stored draft, checks it has recipients and strips the
// draft info header
func prepare(raw []byte) (*outgoing, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse draft: %w", err)
	}

	recipients := 0
	for _, key := range []string{"To", "Cc", "Bcc"} {
		if env.GetHeader(key) == "" {
			continue
		}
		list, err := env.AddressList(key)
		if err != nil && !errors.Is(err, netmail.ErrHeaderNotPresent) {
			return nil, fmt.Errorf("failed to parse %s: %w", key, err)
		}
		recipients += len(list)
	}
	if recipients == 0 {
		return nil, ErrNoRecipients
	}

	br := bufio.NewReader(bytes.NewReader(raw))
	th, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft header: %w", err)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft body: %w", err)
	}

	out := &outgoing{
		header: mail.Header{Header: message.Header{Header: th}},
		body:   body,
	}
	if token := env.GetHeader(compose.DraftInfoHeader); token != "" {
		if origin, ok := compose.DecodeDraftInfo(token); ok {
			out.origin = &origin
		}
	}
	out.header.Del(compose.DraftInfoHeader)
	return out, nil
}

// copyToSent stores the sent message in the sent folder. Failures are only logged.
func (l *Lifecycle) copyToSent(o *outgoing) {
	if l.sentFolder == "" {
		return
	}
	log := l.logger.WithField("folder", l.sentFolder)

	raw, err := o.bytes()
	if err != nil {
		log.WithError(err).Warn("Failed to render sent copy")
		return
	}
	if _, err := l.transport.Append(l.sentFolder, []string{imap.SeenFlag}, raw); err != nil {
		log.WithError(err).Warn("Failed to store sent copy")
	}
}
