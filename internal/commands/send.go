package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// sendCommand sends a stored draft, or stores and sends a new one
type sendCommand struct {
	accounts Accounts
	logger   *logrus.Logger
}

type sendInput struct {
	target
	Draft *types.Draft `json:"draft"`
}

func (c *sendCommand) Name() string {
	return "send"
}

func (c *sendCommand) Description() string {
	return "Send the draft named by folder and id, or store the given draft in the drafts folder and send it"
}

func (c *sendCommand) Execute(params map[string]interface{}) (interface{}, error) {
	var in sendInput
	if err := decode(params, &in); err != nil {
		return nil, err
	}
	cl, err := client(c.accounts, in.target)
	if err != nil {
		return nil, err
	}

	var key types.MessageKey
	switch {
	case in.Draft != nil && in.ID != "":
		return nil, fmt.Errorf("either id or draft must be given, not both")
	case in.Draft != nil:
		d := *in.Draft
		d.Key = nil
		saved, err := cl.CreateDraft(types.FolderKey{AccountID: cl.Account(), FolderID: in.Folder}, d)
		if err != nil {
			return nil, err
		}
		key = *saved.Key
	default:
		key, err = in.messageKey(cl.Account())
		if err != nil {
			return nil, err
		}
	}

	if err := cl.Send(key); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"account": cl.Account(),
		"draft":   key.String(),
	}).Info("Draft sent")

	return map[string]interface{}{
		"success": true,
		"key":     key,
	}, nil
}
