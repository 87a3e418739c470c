package adapter_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailbox-adapter/internal/adapter"
	"github.com/brandon/mailbox-adapter/internal/attribute"
	"github.com/brandon/mailbox-adapter/internal/email"
	"github.com/brandon/mailbox-adapter/internal/filter"
	"github.com/brandon/mailbox-adapter/internal/mailtest"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

var (
	inbox   = types.FolderKey{AccountID: "acc", FolderID: "INBOX"}
	archive = types.FolderKey{AccountID: "acc", FolderID: "Archive"}
	welcome = types.NewMessageKey(inbox, 6)
)

type fixture struct {
	imap   *mailtest.IMAPServer
	smtp   *mailtest.SMTPServer
	rec    *mailtest.Recorder
	client *adapter.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		imap: mailtest.StartIMAP(t, "Drafts", "Sent", "Archive"),
		smtp: mailtest.StartSMTP(t),
	}
	f.rec = mailtest.NewRecorder(f.imap.Transport(t))

	account := mailtest.Account("acc", f.imap, f.smtp)
	sender, err := email.NewSMTPClient(account)
	require.NoError(t, err)
	sender.SetLogger(mailtest.Logger())
	t.Cleanup(func() { sender.Close() })

	f.client = adapter.New(account, f.rec, sender, adapter.Options{
		ListLimit: 10,
		Logger:    mailtest.Logger(),
	})
	return f
}

// seed adds n plain messages to INBOX after the built-in one, UIDs 7 onward
func (f *fixture) seed(t *testing.T, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		f.imap.Seed(t, "INBOX", nil, fmt.Sprintf(
			"From: Bob <bob@example.org>\r\n"+
				"To: alice@example.org\r\n"+
				"Subject: Note %d\r\n"+
				"Date: Tue, 1 Jun 2021 10:0%d:00 +0000\r\n"+
				"Content-Type: text/plain; charset=utf-8\r\n"+
				"\r\n"+
				"Body of note %d\r\n", i, i, i))
	}
}

func ids(items []types.ListItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Key.ID
	}
	return out
}

func TestForeignAccountRejectedBeforeTransport(t *testing.T) {
	f := setup(t)
	foreign := types.FolderKey{AccountID: "other", FolderID: "INBOX"}
	foreignKey := types.NewMessageKey(foreign, 6)

	_, err := f.client.ListMessages(foreign, adapter.ListOptions{})
	assert.ErrorIs(t, err, adapter.ErrIdentity)
	_, err = f.client.GetMessage(foreignKey, nil)
	assert.ErrorIs(t, err, adapter.ErrIdentity)
	err = f.client.Send(foreignKey)
	assert.ErrorIs(t, err, adapter.ErrIdentity)
	_, err = f.client.Delete(foreignKey)
	assert.ErrorIs(t, err, adapter.ErrIdentity)
	_, err = f.client.DeleteAttachment(types.AttachmentKey{MessageKey: foreignKey, AttachmentID: "x"})
	assert.ErrorIs(t, err, adapter.ErrIdentity)

	assert.Empty(t, f.rec.Calls)
}

func TestInvalidRequestsRejectedBeforeTransport(t *testing.T) {
	f := setup(t)

	_, err := f.client.GetMessage(types.MessageKey{AccountID: "acc", FolderID: "INBOX", ID: "abc"}, nil)
	assert.ErrorIs(t, err, adapter.ErrInvalidArgument)

	keyed := types.Draft{Subject: "x"}.WithKey(welcome)
	_, err = f.client.CreateDraft(types.FolderKey{AccountID: "acc"}, keyed)
	assert.ErrorIs(t, err, adapter.ErrPrecondition)

	_, err = f.client.UpdateDraft(types.Draft{Subject: "x"})
	assert.ErrorIs(t, err, adapter.ErrPrecondition)

	_, err = f.client.CreateAttachments(welcome, []types.Attachment{{Text: "a.txt", Content: "aGk=", Encoding: "7bit"}})
	assert.ErrorIs(t, err, adapter.ErrInvalidArgument)

	_, err = f.client.CreateAttachments(welcome, []types.Attachment{{Text: "a.txt", Content: "%%%", Encoding: "base64"}})
	assert.ErrorIs(t, err, adapter.ErrInvalidArgument)

	_, err = f.client.ListMessages(inbox, adapter.ListOptions{Start: -1})
	assert.ErrorIs(t, err, adapter.ErrInvalidArgument)

	assert.Empty(t, f.rec.Calls)
}

func TestListFolders(t *testing.T) {
	f := setup(t)
	f.rec.UnseenCounts["INBOX"] = 3

	folders, err := f.client.ListFolders()
	require.NoError(t, err)

	roles := map[string]types.FolderType{}
	unread := map[string]int{}
	for _, folder := range folders {
		assert.Equal(t, "acc", folder.Key.AccountID)
		roles[folder.Name] = folder.Type
		unread[folder.Name] = folder.UnreadCount
	}
	assert.Equal(t, types.FolderInbox, roles["INBOX"])
	assert.Equal(t, types.FolderDraft, roles["Drafts"])
	assert.Equal(t, types.FolderSent, roles["Sent"])
	assert.Equal(t, types.FolderFolder, roles["Archive"])
	assert.Equal(t, 3, unread["INBOX"])
}

func TestListMessagesPaging(t *testing.T) {
	f := setup(t)
	f.seed(t, 3)

	page, err := f.client.ListMessages(inbox, adapter.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"9", "8"}, ids(page))
	assert.Equal(t, "Note 3", page[0].String(types.AttrSubject))
	require.NotNil(t, page[0].Preview)
	assert.Contains(t, page[0].Preview.Content, "Body of note 3")

	page, err = f.client.ListMessages(inbox, adapter.ListOptions{Start: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "6"}, ids(page))

	page, err = f.client.ListMessages(inbox, adapter.ListOptions{Start: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestListMessagesFilterAndAttributes(t *testing.T) {
	f := setup(t)
	f.seed(t, 3)

	page, err := f.client.ListMessages(inbox, adapter.ListOptions{
		Filter:     []filter.Clause{{Property: "id", Operator: "in", Value: []any{"6", "8"}}},
		Attributes: attribute.Include(types.AttrSubject),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"8", "6"}, ids(page))
	assert.True(t, page[0].Has(types.AttrSubject))
	assert.False(t, page[0].Has(types.AttrFrom))
	assert.Nil(t, page[0].Preview)

	total, err := f.client.TotalCount(inbox, []filter.Clause{{Property: "id", Operator: ">=", Value: 7}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestGetMessage(t *testing.T) {
	f := setup(t)

	item, err := f.client.GetMessage(welcome, nil)
	require.NoError(t, err)
	assert.Equal(t, "A little message, just for you", item.String(types.AttrSubject))
	assert.True(t, item.Bool(types.AttrSeen))
	assert.True(t, item.Has(types.AttrSize))
	assert.False(t, item.Bool(types.AttrHasAttachments))
	assert.Equal(t, "contact@example.org", item.Address(types.AttrFrom).Address)

	_, err = f.client.GetMessage(types.NewMessageKey(inbox, 99), nil)
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

func TestGetBody(t *testing.T) {
	f := setup(t)

	body, err := f.client.GetBody(welcome, 0)
	require.NoError(t, err)
	assert.Equal(t, "Hi there :)", body.Plain.Content)
	assert.Empty(t, body.HTML.Content)

	body, err = f.client.GetBody(welcome, 2)
	require.NoError(t, err)
	assert.Equal(t, "Hi", body.Plain.Content)
}

func TestSetFlagsAndMove(t *testing.T) {
	f := setup(t)

	err := f.client.SetFlags(welcome, types.FlagList{
		{Name: types.FlagFlagged, Value: true},
		{Name: types.FlagSeen, Value: false},
	})
	require.NoError(t, err)

	item, err := f.client.GetMessage(welcome, attribute.Include(types.AttrFlagged, types.AttrSeen))
	require.NoError(t, err)
	assert.True(t, item.Bool(types.AttrFlagged))
	assert.False(t, item.Bool(types.AttrSeen))

	moved, err := f.client.Move(welcome, archive)
	require.NoError(t, err)
	assert.Equal(t, "Archive", moved.FolderID)

	item, err = f.client.GetMessage(moved, nil)
	require.NoError(t, err)
	assert.True(t, item.Bool(types.AttrFlagged))

	_, err = f.client.GetMessage(welcome, nil)
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	_, err = f.client.Move(moved, types.FolderKey{AccountID: "other", FolderID: "INBOX"})
	assert.ErrorIs(t, err, adapter.ErrPrecondition)
}

func TestDelete(t *testing.T) {
	f := setup(t)

	removed, err := f.client.Delete(welcome)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.client.Delete(welcome)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDraftRoundTrip(t *testing.T) {
	f := setup(t)

	saved, err := f.client.CreateDraft(types.FolderKey{AccountID: "acc"}, types.Draft{
		Subject: "Plans",
		From:    &types.Address{Address: "alice@example.org"},
		To:      types.AddressList{{Address: "bob@example.org"}},
		Cc:      types.AddressList{{Address: "dan@example.org"}},
		Plain:   &types.MessagePart{Content: "Saturday?"},
	})
	require.NoError(t, err)
	require.NotNil(t, saved.Key)
	assert.Equal(t, "Drafts", saved.Key.FolderID)

	d, err := f.client.GetDraft(*saved.Key)
	require.NoError(t, err)
	assert.True(t, d.IsDraft())
	assert.Equal(t, "Plans", d.String(types.AttrSubject))
	assert.Equal(t, []string{"dan@example.org"}, d.AddressList(types.AttrCc).Addresses())
	assert.Contains(t, d.Part(types.AttrPlain).Content, "Saturday?")

	saved.Subject = "Plans (updated)"
	updated, err := f.client.UpdateDraftItem(saved)
	require.NoError(t, err)
	assert.NotEqual(t, *saved.Key, *updated.Key)

	d, err = f.client.GetDraft(*updated.Key)
	require.NoError(t, err)
	assert.Equal(t, "Plans (updated)", d.String(types.AttrSubject))
	assert.Contains(t, d.Part(types.AttrPlain).Content, "Saturday?")

	_, err = f.client.GetDraft(*saved.Key)
	assert.ErrorIs(t, err, adapter.ErrNotFound)

	require.NoError(t, f.client.Send(*updated.Key))
	deliveries := f.smtp.Deliveries()
	require.Len(t, deliveries, 1)
	assert.ElementsMatch(t, []string{"bob@example.org", "dan@example.org"}, deliveries[0].To)
}

func TestGetDraftOfNonDraft(t *testing.T) {
	f := setup(t)

	_, err := f.client.GetDraft(welcome)
	assert.ErrorIs(t, err, adapter.ErrNotADraft)

	err = f.client.Send(welcome)
	assert.ErrorIs(t, err, adapter.ErrNotADraft)
	assert.ErrorIs(t, err, adapter.ErrPrecondition)
	assert.NotErrorIs(t, err, adapter.ErrTransport)
}

func TestAttachments(t *testing.T) {
	f := setup(t)

	saved, err := f.client.CreateDraft(types.FolderKey{AccountID: "acc"}, types.Draft{
		Subject: "Report",
		To:      types.AddressList{{Address: "bob@example.org"}},
		Plain:   &types.MessagePart{Content: "See attached."},
	})
	require.NoError(t, err)

	created, err := f.client.CreateAttachments(*saved.Key, []types.Attachment{
		{Text: "report.pdf", Type: "application/pdf", Content: "JVBERi0=", Encoding: "base64"},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.NotNil(t, created[0].Key)

	listed, err := f.client.ListAttachments(created[0].Key.MessageKey)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created[0].Key.AttachmentID, listed[0].Key.AttachmentID)
	assert.Equal(t, "report.pdf", listed[0].Text)
	assert.Equal(t, "application/pdf", listed[0].Type)

	item, err := f.client.GetMessage(created[0].Key.MessageKey, nil)
	require.NoError(t, err)
	assert.True(t, item.Bool(types.AttrHasAttachments))

	newKey, err := f.client.DeleteAttachment(*listed[0].Key)
	require.NoError(t, err)

	listed, err = f.client.ListAttachments(newKey)
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = f.client.DeleteAttachment(types.AttachmentKey{MessageKey: newKey, AttachmentID: "missing"})
	assert.ErrorIs(t, err, adapter.ErrNotFound)
}

func TestTransportErrors(t *testing.T) {
	f := setup(t)
	boom := errors.New("connection reset")
	f.rec.Fail["Search"] = boom

	_, err := f.client.ListMessages(inbox, adapter.ListOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrTransport)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, boom, adapter.Cause(err))

	var ae *adapter.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "list messages", ae.Op)
	assert.Equal(t, adapter.KindTransport, ae.Kind)
}
