package commands

import (
	"fmt"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// attachmentsCommand lists, adds or removes attachments of one message
type attachmentsCommand struct {
	accounts Accounts
}

type attachmentsInput struct {
	target
	Add    []types.Attachment `json:"add"`
	Remove string             `json:"remove"`
}

func (c *attachmentsCommand) Name() string {
	return "attachments"
}

func (c *attachmentsCommand) Description() string {
	return "List the attachments of a message; add base64 attachments with add, detach one by id with remove"
}

func (c *attachmentsCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in attachmentsInput
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, key, err := message(c.accounts, in.target)
	if err != nil {
		return nil, err
	}

	switch {
	case len(in.Add) > 0 && in.Remove != "":
		return nil, fmt.Errorf("add and remove cannot be combined")
	case len(in.Add) > 0:
		return cl.CreateAttachments(key, in.Add)
	case in.Remove != "":
		newKey, err := cl.DeleteAttachment(types.AttachmentKey{MessageKey: key, AttachmentID: in.Remove})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"key": newKey}, nil
	}
	return cl.ListAttachments(key)
}
