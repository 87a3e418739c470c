package compose

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/emersion/go-message/mail"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// ErrNoAttachment is returned by Remove when no attachment has the given id
var ErrNoAttachment = errors.New("attachment not found")

// Attachments adds and removes attachment parts
type Attachments struct {
	// IDFor computes the id of an attachment as listings report it
	IDFor func(types.Attachment) string
}

// Compose returns target with atts appended as attachment parts.
// Attachment content must be base64 encoded.
func (Attachments) Compose(target []byte, atts []types.Attachment) ([]byte, error) {
	doc, err := parse(target)
	if err != nil {
		return nil, err
	}

	for _, att := range atts {
		if att.Encoding != "base64" {
			return nil, fmt.Errorf("unsupported attachment encoding %q", att.Encoding)
		}
		body, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode attachment %s: %w", att.Text, err)
		}

		mimeType := att.Type
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		var h mail.AttachmentHeader
		h.SetContentType(mimeType, nil)
		h.SetFilename(att.Text)
		doc.parts = append(doc.parts, part{header: h, body: body})
	}

	return doc.bytes()
}

// Remove returns target without the attachment whose id matches
func (c Attachments) Remove(target []byte, id string) ([]byte, error) {
	if c.IDFor == nil {
		return nil, errors.New("attachment id function is not set")
	}
	doc, err := parse(target)
	if err != nil {
		return nil, err
	}

	kept := doc.parts[:0]
	removed := false
	for _, p := range doc.parts {
		if att, ok := p.attachment(); ok && !removed && c.IDFor(att) == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	if !removed {
		return nil, ErrNoAttachment
	}
	doc.parts = kept

	return doc.bytes()
}
