package adapter

import (
	"encoding/base64"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// ListAttachments lists the named attachments of a message
func (c *Client) ListAttachments(key types.MessageKey) ([]types.Attachment, error) {
	const op = "list attachments"
	if _, err := c.checkKey(op, key); err != nil {
		return nil, err
	}

	atts, err := c.attachments.List(key)
	if err != nil {
		return nil, classify(op, err)
	}
	return atts, nil
}

// CreateAttachments attaches files to a message. The message is replaced, so
// the returned attachments carry the key of the new message.
func (c *Client) CreateAttachments(key types.MessageKey, atts []types.Attachment) ([]types.Attachment, error) {
	const op = "create attachments"
	if _, err := c.checkKey(op, key); err != nil {
		return nil, err
	}
	if len(atts) == 0 {
		return nil, reject(KindInvalidArgument, op, "no attachments given")
	}
	for _, att := range atts {
		if att.Text == "" {
			return nil, reject(KindInvalidArgument, op, "attachment has no name")
		}
		if att.Encoding != "base64" {
			return nil, reject(KindInvalidArgument, op, "attachment %s: unsupported encoding %q", att.Text, att.Encoding)
		}
		if _, err := base64.StdEncoding.DecodeString(att.Content); err != nil {
			return nil, reject(KindInvalidArgument, op, "attachment %s: %v", att.Text, err)
		}
	}

	created, err := c.attachments.Create(key, atts)
	if err != nil {
		return nil, classify(op, err)
	}
	return created, nil
}

// DeleteAttachment detaches an attachment and returns the key of the rewritten message
func (c *Client) DeleteAttachment(attKey types.AttachmentKey) (types.MessageKey, error) {
	const op = "delete attachment"
	if _, err := c.checkKey(op, attKey.MessageKey); err != nil {
		return types.MessageKey{}, err
	}
	if attKey.AttachmentID == "" {
		return types.MessageKey{}, reject(KindInvalidArgument, op, "attachment id is empty")
	}

	newKey, err := c.attachments.Delete(attKey)
	if err != nil {
		return types.MessageKey{}, classify(op, err)
	}
	return newKey, nil
}
