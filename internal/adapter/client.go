// Package adapter implements the mailbox operations contract for one account
// on top of an IMAP transport and an SMTP sender.
package adapter

import (
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/internal/attachment"
	"github.com/brandon/mailbox-adapter/internal/config"
	"github.com/brandon/mailbox-adapter/internal/draft"
	"github.com/brandon/mailbox-adapter/internal/email"
	"github.com/brandon/mailbox-adapter/internal/step"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Options configures a Client
type Options struct {
	// ListLimit is the page size used when a list request names none
	ListLimit int
	Sequencer step.Sequencer
	Logger    *logrus.Logger
}

// Client serves mailbox operations for a single account.
// It is not safe for concurrent use.
type Client struct {
	account     *config.AccountConfig
	transport   email.Transport
	sender      email.Sender
	drafts      *draft.Lifecycle
	attachments *attachment.Manager
	listLimit   int
	logger      *logrus.Logger
}

// New creates a client for account
func New(account *config.AccountConfig, t email.Transport, s email.Sender, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Sequencer == nil {
		opts.Sequencer = step.Sequential{}
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 50
	}

	return &Client{
		account:   account,
		transport: t,
		sender:    s,
		drafts: draft.New(t, s, draft.Options{
			Account:    account.Name,
			SentFolder: account.SentFolder,
			Sequencer:  opts.Sequencer,
			Logger:     opts.Logger,
		}),
		attachments: attachment.NewManager(t, opts.Sequencer, opts.Logger),
		listLimit:   opts.ListLimit,
		logger:      opts.Logger,
	}
}

// NewForAccount creates a client over the IMAP and SMTP clients of an account
func NewForAccount(acc *email.Account, opts Options) *Client {
	return New(acc.Config, acc.IMAP, acc.SMTP, opts)
}

// Account returns the id of the account the client serves
func (c *Client) Account() string {
	return c.account.Name
}

// Close closes the transport
func (c *Client) Close() error {
	return c.transport.Close()
}

// checkFolder verifies the folder belongs to this account
func (c *Client) checkFolder(op string, folder types.FolderKey) error {
	if folder.AccountID != c.account.Name {
		return reject(KindIdentity, op, "folder %s does not belong to account %s", folder, c.account.Name)
	}
	if folder.FolderID == "" {
		return reject(KindInvalidArgument, op, "folder id is empty")
	}
	return nil
}

// checkKey verifies the message belongs to this account and returns its UID
func (c *Client) checkKey(op string, key types.MessageKey) (uint32, error) {
	if err := c.checkFolder(op, key.Folder()); err != nil {
		return 0, err
	}
	uid, err := key.UID()
	if err != nil {
		return 0, reject(KindInvalidArgument, op, "%v", err)
	}
	return uid, nil
}
