package compose

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Header rewrites the envelope header fields of a message and leaves its body untouched
type Header struct {
	// Now stamps a Date on messages that have none. Defaults to time.Now.
	Now func() time.Time
}

// Compose returns raw with its header fields set from d. A nil draft returns raw as is.
// Fields d leaves unset (nil address, nil list, empty string, nil origin) keep
// their stored value; a non-nil empty list clears the field.
func (c Header) Compose(raw []byte, d *types.Draft) ([]byte, error) {
	if d == nil {
		return raw, nil
	}

	br := bufio.NewReader(bytes.NewReader(raw))
	th, err := textproto.ReadHeader(br)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	h := mail.Header{Header: message.Header{Header: th}}

	setAddress(&h, "From", d.From)
	setAddress(&h, "Reply-To", d.ReplyTo)
	setAddressList(&h, "To", d.To)
	setAddressList(&h, "Cc", d.Cc)
	setAddressList(&h, "Bcc", d.Bcc)
	if d.Subject != "" {
		h.SetSubject(d.Subject)
	}

	switch {
	case !d.Date.IsZero():
		h.SetDate(d.Date)
	case !h.Has("Date"):
		h.SetDate(c.now())
	}

	setRaw(&h, "In-Reply-To", d.InReplyTo)
	setRaw(&h, "References", d.References)

	if d.MessageID != "" {
		h.Set("Message-Id", d.MessageID)
	} else if !h.Has("Message-Id") {
		if err := h.GenerateMessageID(); err != nil {
			return nil, fmt.Errorf("failed to generate message id: %w", err)
		}
	}

	if d.Origin != nil {
		h.Set(DraftInfoHeader, EncodeDraftInfo(*d.Origin))
	}

	if !h.Has("Mime-Version") {
		h.Set("MIME-Version", "1.0")
	}

	var buf bytes.Buffer
	if err := textproto.WriteHeader(&buf, h.Header.Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := io.Copy(&buf, br); err != nil {
		return nil, fmt.Errorf("failed to copy body: %w", err)
	}
	return buf.Bytes(), nil
}

func (c Header) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func setAddress(h *mail.Header, key string, addr *types.Address) {
	if addr == nil {
		return
	}
	setAddressList(h, key, types.AddressList{*addr})
}

func setAddressList(h *mail.Header, key string, list types.AddressList) {
	if list == nil {
		return
	}
	addrs := make([]*mail.Address, 0, len(list))
	for _, a := range list {
		if a.Address == "" {
			continue
		}
		name := a.Name
		if name == a.Address {
			name = ""
		}
		addrs = append(addrs, &mail.Address{Name: name, Address: a.Address})
	}
	h.SetAddressList(key, addrs)
}

func setRaw(h *mail.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}
