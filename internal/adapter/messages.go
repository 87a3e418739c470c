package adapter

import (
	"sort"
	"strings"

	"github.com/emersion/go-imap"

	"github.com/brandon/mailbox-adapter/internal/attribute"
	"github.com/brandon/mailbox-adapter/internal/filter"
	"github.com/brandon/mailbox-adapter/internal/mimepart"
	"github.com/brandon/mailbox-adapter/internal/projection"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// ListOptions selects one page of a message list
type ListOptions struct {
	Start      int
	Limit      int
	Filter     []filter.Clause
	Attributes attribute.Request
}

// Body holds the text bodies of a message
type Body struct {
	Plain types.MessagePart `json:"plain"`
	HTML  types.MessagePart `json:"html"`
}

// draftForce is force-included when projecting a draft for editing
var draftForce = []types.Attr{
	types.AttrDraft, types.AttrCc, types.AttrBcc, types.AttrReplyTo, types.AttrPlain, types.AttrHTML,
}

// ListMessages returns a page of the folder's messages matching the filter,
// newest UID first
func (c *Client) ListMessages(folder types.FolderKey, opts ListOptions) ([]types.ListItem, error) {
	const op = "list messages"
	if err := c.checkFolder(op, folder); err != nil {
		return nil, err
	}
	if opts.Start < 0 {
		return nil, reject(KindInvalidArgument, op, "negative start %d", opts.Start)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = c.listLimit
	}

	uids, err := c.transport.Search(folder.FolderID, filter.Compile(opts.Filter))
	if err != nil {
		return nil, classify(op, err)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })

	if opts.Start >= len(uids) {
		return []types.ListItem{}, nil
	}
	end := opts.Start + limit
	if end > len(uids) {
		end = len(uids)
	}
	page := uids[opts.Start:end]

	set := attribute.Resolve(opts.Attributes, attribute.ListDefaults, nil, nil)
	raws, err := c.fetch(folder.FolderID, page, set)
	if err != nil {
		return nil, classify(op, err)
	}
	return projection.ProjectMany(raws, folder, set), nil
}

// GetMessage returns the full projection of one message
func (c *Client) GetMessage(key types.MessageKey, req attribute.Request) (types.Item, error) {
	const op = "get message"
	rec, err := c.project(op, key, attribute.Resolve(req, attribute.Defaults, attribute.ItemForce, nil))
	if err != nil {
		return types.Item{}, err
	}

	item, err := types.NewItem(rec)
	if err != nil {
		return types.Item{}, reject(KindInvalidArgument, op, "%v", err)
	}
	return item, nil
}

// GetDraft returns the projection of a draft with everything needed to edit it
func (c *Client) GetDraft(key types.MessageKey) (types.DraftItem, error) {
	const op = "get draft"
	rec, err := c.project(op, key, attribute.Resolve(nil, attribute.Defaults, draftForce, nil))
	if err != nil {
		return types.DraftItem{}, err
	}

	item, err := types.NewDraftItem(rec)
	if err != nil {
		return types.DraftItem{}, reject(KindInvalidArgument, op, "%v", err)
	}
	if !item.IsDraft() {
		return types.DraftItem{}, reject(KindNotADraft, op, "message %s is not a draft", key)
	}
	return item, nil
}

// GetBody returns the plain and html bodies of a message, each truncated to
// length bytes when length > 0
func (c *Client) GetBody(key types.MessageKey, length uint32) (Body, error) {
	const op = "get body"
	set := attribute.Set{
		types.AttrPlain: {Length: length},
		types.AttrHTML:  {Length: length},
	}
	rec, err := c.project(op, key, set)
	if err != nil {
		return Body{}, err
	}
	return Body{Plain: rec.Part(types.AttrPlain), HTML: rec.Part(types.AttrHTML)}, nil
}

// project fetches and projects a single message
func (c *Client) project(op string, key types.MessageKey, set attribute.Set) (types.Record, error) {
	uid, err := c.checkKey(op, key)
	if err != nil {
		return types.Record{}, err
	}

	raws, err := c.fetch(key.FolderID, []uint32{uid}, set)
	if err != nil {
		return types.Record{}, classify(op, err)
	}
	if len(raws) == 0 {
		return types.Record{}, reject(KindNotFound, op, "message %s not found", key)
	}
	return projection.ProjectOne(raws[0], key.Folder(), set), nil
}

// fetch runs the first pass for uids, then fetches the body parts the set needs.
// Messages that share the same part layout are fetched together. The result
// follows the order of uids; UIDs the server did not return are skipped.
func (c *Client) fetch(folder string, uids []uint32, set attribute.Set) ([]projection.Raw, error) {
	msgs, err := c.transport.Fetch(folder, uids, projection.FetchItems(set))
	if err != nil {
		return nil, err
	}
	byUID := make(map[uint32]*imap.Message, len(msgs))
	for _, msg := range msgs {
		byUID[msg.Uid] = msg
	}

	type group struct {
		sections []*imap.BodySectionName
		uids     []uint32
	}
	groups := map[string]*group{}
	var order []string
	for _, uid := range uids {
		msg, ok := byUID[uid]
		if !ok {
			continue
		}
		sections := mimepart.Plan(msg.BodyStructure, set)
		if len(sections) == 0 {
			continue
		}
		k := sectionsKey(sections)
		g, ok := groups[k]
		if !ok {
			g = &group{sections: sections}
			groups[k] = g
			order = append(order, k)
		}
		g.uids = append(g.uids, uid)
	}

	parts := make(map[uint32]mimepart.Fetched)
	for _, k := range order {
		g := groups[k]
		items := []imap.FetchItem{imap.FetchUid}
		for _, s := range g.sections {
			items = append(items, s.FetchItem())
		}

		c.logger.WithField("folder", folder).WithField("items", items).Debug("Fetching body parts")
		withParts, err := c.transport.Fetch(folder, g.uids, items)
		if err != nil {
			return nil, err
		}
		for _, msg := range withParts {
			parts[msg.Uid] = mimepart.Collect(msg, g.sections)
		}
	}

	raws := make([]projection.Raw, 0, len(uids))
	for _, uid := range uids {
		msg, ok := byUID[uid]
		if !ok {
			continue
		}
		raws = append(raws, projection.Raw{Message: msg, Parts: parts[uid]})
	}
	return raws, nil
}

func sectionsKey(sections []*imap.BodySectionName) string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = string(s.FetchItem())
	}
	return strings.Join(names, " ")
}

// SetFlags applies a flag instruction to the message
func (c *Client) SetFlags(key types.MessageKey, flags types.FlagList) error {
	const op = "set flags"
	uid, err := c.checkKey(op, key)
	if err != nil {
		return err
	}

	add, remove := flags.Split()
	return classify(op, c.transport.Store(key.FolderID, []uint32{uid}, add, remove))
}

// Move moves the message to folder and returns its new key
func (c *Client) Move(key types.MessageKey, folder types.FolderKey) (types.MessageKey, error) {
	const op = "move message"
	if _, err := c.checkKey(op, key); err != nil {
		return types.MessageKey{}, err
	}
	if folder.FolderID == "" {
		return types.MessageKey{}, reject(KindInvalidArgument, op, "folder id is empty")
	}

	newKey, err := c.drafts.Move(key, folder)
	if err != nil {
		return types.MessageKey{}, classify(op, err)
	}
	return newKey, nil
}

// Delete expunges the message and reports whether it was removed
func (c *Client) Delete(key types.MessageKey) (bool, error) {
	const op = "delete message"
	if _, err := c.checkKey(op, key); err != nil {
		return false, err
	}

	removed, err := c.drafts.Delete(key)
	if err != nil {
		return false, classify(op, err)
	}
	return removed, nil
}
