package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/commands"
	"github.com/emersion/go-message/charset"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/internal/config"
)

func init() {
	// Envelope subjects and names arrive as encoded words in any charset.
	imap.CharsetReader = charset.Reader
}

// UIDPLUS response codes
const (
	codeAppendUID imap.StatusRespCode = "APPENDUID"
	codeCopyUID   imap.StatusRespCode = "COPYUID"
)

// IMAPClient wraps an IMAP client connection
type IMAPClient struct {
	config   *config.AccountConfig
	conn     *Lazy[*client.Client]
	logger   *logrus.Logger
	selected string
}

// NewIMAPClient creates a new IMAP client (does not connect immediately)
func NewIMAPClient(cfg *config.AccountConfig) (*IMAPClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("account config is required")
	}
	c := &IMAPClient{
		config: cfg,
		logger: logrus.New(),
	}
	c.conn = NewLazy(c.dial)
	return c, nil
}

// dial opens and authenticates a new connection
func (c *IMAPClient) dial() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.config.IMAPHost, c.config.IMAPPort)
	tlsConfig := &tls.Config{
		ServerName: c.config.IMAPHost,
		MinVersion: tls.VersionTLS12,
	}

	var (
		cl  *client.Client
		err error
	)
	switch c.config.IMAPSecurity {
	case config.SecurityNone, config.SecurityStartTLS:
		cl, err = client.Dial(addr)
	default:
		cl, err = client.DialTLS(addr, tlsConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if c.config.IMAPSecurity == config.SecurityStartTLS {
		if err := cl.StartTLS(tlsConfig); err != nil {
			cl.Logout() //nolint:errcheck
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if err := cl.Login(c.config.IMAPUsername, c.config.IMAPPassword); err != nil {
		c.logger.WithError(err).Error("Failed to login to IMAP server")
		cl.Logout() //nolint:errcheck
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	c.selected = ""
	c.logger.WithField("account", c.config.Name).Info("Connected to IMAP server")
	return cl, nil
}

// Connect establishes the connection if it is not open yet
func (c *IMAPClient) Connect() error {
	_, err := c.conn.Get()
	return err
}

// Close closes the IMAP connection
func (c *IMAPClient) Close() error {
	cl, ok := c.conn.Reset()
	if !ok {
		return nil
	}
	c.selected = ""
	return cl.Logout()
}

// SetLogger sets the logger for the client
func (c *IMAPClient) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// selectFolder selects folder read-write unless it is already selected
func (c *IMAPClient) selectFolder(folder string) (*client.Client, error) {
	cl, err := c.conn.Get()
	if err != nil {
		return nil, err
	}
	if c.selected == folder && cl.State() == imap.SelectedState {
		return cl, nil
	}

	if _, err := cl.Select(folder, false); err != nil {
		c.selected = ""
		return nil, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}
	c.selected = folder
	return cl, nil
}

// ListMailboxes lists all mailboxes matching pattern
func (c *IMAPClient) ListMailboxes(pattern string) ([]*imap.MailboxInfo, error) {
	cl, err := c.conn.Get()
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- cl.List("", pattern, mailboxes)
	}()

	var infos []*imap.MailboxInfo
	for m := range mailboxes {
		infos = append(infos, m)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return infos, nil
}

// status runs STATUS on folder
func (c *IMAPClient) status(folder string, items ...imap.StatusItem) (*imap.MailboxStatus, error) {
	cl, err := c.conn.Get()
	if err != nil {
		return nil, err
	}

	mbox, err := cl.Status(folder, items)
	if err != nil {
		return nil, fmt.Errorf("failed to get status of %s: %w", folder, err)
	}
	return mbox, nil
}

// Unseen returns the number of messages without \Seen in folder
func (c *IMAPClient) Unseen(folder string) (uint32, error) {
	mbox, err := c.status(folder, imap.StatusUnseen)
	if err != nil {
		return 0, err
	}
	return mbox.Unseen, nil
}

// Search returns the UIDs in folder matching criteria
func (c *IMAPClient) Search(folder string, criteria *imap.SearchCriteria) ([]uint32, error) {
	cl, err := c.selectFolder(folder)
	if err != nil {
		return nil, err
	}

	uids, err := cl.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}

	return uids, nil
}

// Fetch fetches items for the given UIDs in server order
func (c *IMAPClient) Fetch(folder string, uids []uint32, items []imap.FetchItem) ([]*imap.Message, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	cl, err := c.selectFolder(folder)
	if err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	c.logger.WithFields(logrus.Fields{
		"folder": folder,
		"uids":   seqSet.String(),
		"items":  items,
	}).Debug("Fetching messages")

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	go func() {
		done <- cl.UidFetch(seqSet, items, messages)
	}()

	var result []*imap.Message
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return result, nil
}

// Store adds and removes flags on the given UIDs
func (c *IMAPClient) Store(folder string, uids []uint32, add, remove []string) error {
	if len(uids) == 0 || (len(add) == 0 && len(remove) == 0) {
		return nil
	}
	cl, err := c.selectFolder(folder)
	if err != nil {
		return err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	if len(add) > 0 {
		if err := cl.UidStore(seqSet, imap.FormatFlagsOp(imap.AddFlags, true), flagValues(add), nil); err != nil {
			return fmt.Errorf("failed to add flags: %w", err)
		}
	}
	if len(remove) > 0 {
		if err := cl.UidStore(seqSet, imap.FormatFlagsOp(imap.RemoveFlags, true), flagValues(remove), nil); err != nil {
			return fmt.Errorf("failed to remove flags: %w", err)
		}
	}
	return nil
}

// Append stores raw in folder and returns the UID it was assigned
func (c *IMAPClient) Append(folder string, flags []string, raw []byte) (uint32, error) {
	cl, err := c.conn.Get()
	if err != nil {
		return 0, err
	}

	next, err := c.status(folder, imap.StatusUidNext)
	if err != nil {
		return 0, err
	}

	cmd := &commands.Append{
		Mailbox: folder,
		Flags:   flags,
		Date:    time.Now(),
		Message: bytes.NewBuffer(raw),
	}
	status, err := cl.Execute(cmd, nil)
	if err == nil {
		err = status.Err()
	}
	if err != nil {
		return 0, fmt.Errorf("failed to append to %s: %w", folder, err)
	}

	uid := next.UidNext
	if status.Code == codeAppendUID && len(status.Arguments) >= 2 {
		if n, err := imap.ParseNumber(status.Arguments[1]); err == nil {
			uid = n
		}
	}

	c.logger.WithFields(logrus.Fields{
		"folder": folder,
		"uid":    uid,
		"size":   len(raw),
	}).Info("Appended message")
	return uid, nil
}

// Expunge removes the given UIDs from folder and returns those that were removed
func (c *IMAPClient) Expunge(folder string, uids []uint32) ([]uint32, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	existing, err := c.Search(folder, uidCriteria(uids))
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}

	cl, err := c.selectFolder(folder)
	if err != nil {
		return nil, err
	}
	uidplus, _ := cl.Support("UIDPLUS")

	if uidplus {
		if err := c.Store(folder, existing, []string{imap.DeletedFlag}, nil); err != nil {
			return nil, err
		}
		seqSet := new(imap.SeqSet)
		seqSet.AddNum(existing...)
		status, err := cl.Execute(&commands.Uid{Cmd: &uidExpunge{SeqSet: seqSet}}, nil)
		if err == nil {
			err = status.Err()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to expunge: %w", err)
		}
	} else if err := c.expungeOnly(folder, existing); err != nil {
		return nil, err
	}

	remaining, err := c.Search(folder, uidCriteria(existing))
	if err != nil {
		return nil, err
	}
	return difference(existing, remaining), nil
}

// Copy copies the given UIDs from src to dst and returns the source to destination UID map.
// With move set the source messages are expunged afterwards.
func (c *IMAPClient) Copy(src, dst string, uids []uint32, move bool) (map[uint32]uint32, error) {
	if len(uids) == 0 {
		return map[uint32]uint32{}, nil
	}

	next, err := c.status(dst, imap.StatusUidNext)
	if err != nil {
		return nil, err
	}

	cl, err := c.selectFolder(src)
	if err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	status, err := cl.Execute(&commands.Uid{Cmd: &commands.Copy{SeqSet: seqSet, Mailbox: dst}}, nil)
	if err == nil {
		err = status.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to copy to %s: %w", dst, err)
	}

	mapping, ok := copyUIDs(status)
	if !ok {
		// Without COPYUID the server assigns new UIDs in source UID order from UIDNEXT.
		sorted := append([]uint32(nil), uids...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		mapping = make(map[uint32]uint32, len(sorted))
		for i, uid := range sorted {
			mapping[uid] = next.UidNext + uint32(i)
		}
	}

	if move {
		if _, err := c.Expunge(src, uids); err != nil {
			return nil, err
		}
	}

	c.logger.WithFields(logrus.Fields{
		"from":  src,
		"to":    dst,
		"count": len(mapping),
		"move":  move,
	}).Info("Copied messages")
	return mapping, nil
}

// uidExpunge is the UIDPLUS EXPUNGE command, sent wrapped in UID
type uidExpunge struct {
	SeqSet *imap.SeqSet
}

func (cmd *uidExpunge) Command() *imap.Command {
	return &imap.Command{
		Name:      "EXPUNGE",
		Arguments: []interface{}{cmd.SeqSet},
	}
}

// copyUIDs reads the COPYUID code of a tagged response
func copyUIDs(status *imap.StatusResp) (map[uint32]uint32, bool) {
	if status.Code != codeCopyUID || len(status.Arguments) < 3 {
		return nil, false
	}

	srcSet, err := parseSeqSetArg(status.Arguments[1])
	if err != nil {
		return nil, false
	}
	dstSet, err := parseSeqSetArg(status.Arguments[2])
	if err != nil {
		return nil, false
	}

	srcs, dsts := expand(srcSet), expand(dstSet)
	if len(srcs) != len(dsts) {
		return nil, false
	}

	mapping := make(map[uint32]uint32, len(srcs))
	for i := range srcs {
		mapping[srcs[i]] = dsts[i]
	}
	return mapping, true
}

func parseSeqSetArg(arg interface{}) (*imap.SeqSet, error) {
	s, ok := arg.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected set argument %v", arg)
	}
	return imap.ParseSeqSet(s)
}

// expand lists the numbers of a set in order. Sets from COPYUID never contain '*'.
func expand(set *imap.SeqSet) []uint32 {
	var nums []uint32
	for _, seq := range set.Set {
		for n := seq.Start; n <= seq.Stop; n++ {
			nums = append(nums, n)
		}
	}
	return nums
}

// expungeOnly runs a plain EXPUNGE that removes only uids. Other messages
// already flagged \Deleted are unflagged for the duration and flagged again
// afterwards, even when the expunge fails.
func (c *IMAPClient) expungeOnly(folder string, uids []uint32) (err error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	criteria.Not = []*imap.SearchCriteria{uidCriteria(uids)}
	others, err := c.Search(folder, criteria)
	if err != nil {
		return err
	}

	if len(others) > 0 {
		if err := c.Store(folder, others, nil, []string{imap.DeletedFlag}); err != nil {
			return err
		}
		defer func() {
			if restoreErr := c.Store(folder, others, []string{imap.DeletedFlag}, nil); restoreErr != nil {
				c.logger.WithError(restoreErr).WithField("folder", folder).Error("Failed to restore deleted flags")
				if err == nil {
					err = restoreErr
				}
			}
		}()
	}

	if err := c.Store(folder, uids, []string{imap.DeletedFlag}, nil); err != nil {
		return err
	}

	cl, err := c.selectFolder(folder)
	if err != nil {
		return err
	}
	if err := cl.Expunge(nil); err != nil {
		return fmt.Errorf("failed to expunge: %w", err)
	}
	return nil
}

func uidCriteria(uids []uint32) *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddNum(uids...)
	return criteria
}

func difference(all, remove []uint32) []uint32 {
	gone := make(map[uint32]bool, len(remove))
	for _, uid := range remove {
		gone[uid] = true
	}

	var out []uint32
	for _, uid := range all {
		if !gone[uid] {
			out = append(out, uid)
		}
	}
	return out
}

func flagValues(flags []string) []interface{} {
	values := make([]interface{}, len(flags))
	for i, f := range flags {
		values[i] = f
	}
	return values
}
