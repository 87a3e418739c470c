package attachment_test

import (
	"encoding/base64"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailbox-adapter/internal/attachment"
	"github.com/brandon/mailbox-adapter/internal/compose"
	"github.com/brandon/mailbox-adapter/internal/email"
	"github.com/brandon/mailbox-adapter/internal/mailtest"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

const draftWithPDF = "From: alice@example.org\r\n" +
	"To: bob@example.org\r\n" +
	"Subject: Report\r\n" +
	"Content-Type: multipart/mixed; boundary=outer\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"see attached\r\n" +
	"--outer\r\n" +
	"Content-Type: application/pdf; name=a.pdf\r\n" +
	"Content-Disposition: attachment; filename=a.pdf\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"JVBERi0=\r\n" +
	"--outer--\r\n"

var pdf = types.Attachment{
	Type:     "application/pdf",
	Text:     "a.pdf",
	Size:     5,
	Content:  base64.StdEncoding.EncodeToString([]byte("%PDF-")),
	Encoding: "base64",
}

func TestIDForIsDeterministic(t *testing.T) {
	a := attachment.IDFor(pdf)
	b := attachment.IDFor(pdf)
	assert.Equal(t, a, b)

	other := pdf
	other.Text = "b.pdf"
	assert.NotEqual(t, a, attachment.IDFor(other))

	// Type and size do not take part in the id.
	retyped := pdf
	retyped.Type = "application/octet-stream"
	retyped.Size = 0
	assert.Equal(t, a, attachment.IDFor(retyped))
}

func TestIDForPanicsOnOtherEncodings(t *testing.T) {
	att := pdf
	att.Encoding = "quoted-printable"
	assert.Panics(t, func() { attachment.IDFor(att) })
}

func setup(t *testing.T) (*attachment.Manager, *mailtest.Recorder, types.MessageKey) {
	t.Helper()
	srv := mailtest.StartIMAP(t, "Drafts")
	srv.Seed(t, "Drafts", []string{imap.DraftFlag, imap.FlaggedFlag}, draftWithPDF)

	rec := mailtest.NewRecorder(srv.Transport(t))
	m := attachment.NewManager(rec, nil, mailtest.Logger())
	key := types.MessageKey{AccountID: "acc", FolderID: "Drafts", ID: "1"}
	return m, rec, key
}

func TestManagerList(t *testing.T) {
	m, _, key := setup(t)

	atts, err := m.List(key)
	require.NoError(t, err)
	require.Len(t, atts, 1)

	got := atts[0]
	assert.Equal(t, "application/pdf", got.Type)
	assert.Equal(t, "a.pdf", got.Text)
	assert.Equal(t, 5, got.Size)
	assert.Equal(t, pdf.Content, got.Content)
	require.NotNil(t, got.Key)
	assert.Equal(t, key, got.Key.MessageKey)
	assert.Equal(t, attachment.IDFor(pdf), got.Key.AttachmentID)
}

func TestManagerListMissingMessage(t *testing.T) {
	m, _, key := setup(t)
	key.ID = "99"

	_, err := m.List(key)
	assert.ErrorIs(t, err, email.ErrNoMessage)
}

func TestManagerCreate(t *testing.T) {
	m, rec, key := setup(t)
	csv := types.Attachment{
		Type:     "text/csv",
		Text:     "data.csv",
		Content:  base64.StdEncoding.EncodeToString([]byte("a,b\n")),
		Encoding: "base64",
	}

	created, err := m.Create(key, []types.Attachment{csv})
	require.NoError(t, err)
	require.Len(t, created, 1)

	newKey := created[0].Key.MessageKey
	assert.Equal(t, "2", newKey.ID)
	assert.Equal(t, 4, created[0].Size)
	assert.Equal(t, []string{"Fetch", "Append", "Store", "Expunge"}, rec.Methods())

	// The listing of the new message agrees with the keys returned by Create.
	listed, err := m.List(newKey)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, attachment.IDFor(pdf), listed[0].Key.AttachmentID)
	assert.Equal(t, created[0].Key.AttachmentID, listed[1].Key.AttachmentID)

	raw, err := email.FetchRaw(rec, "Drafts", 2)
	require.NoError(t, err)
	assert.True(t, raw.HasFlag(imap.DraftFlag))
	assert.True(t, raw.HasFlag(imap.FlaggedFlag))

	_, err = email.FetchRaw(rec, "Drafts", 1)
	assert.ErrorIs(t, err, email.ErrNoMessage)
}

func TestManagerDelete(t *testing.T) {
	m, _, key := setup(t)

	newKey, err := m.Delete(types.AttachmentKey{MessageKey: key, AttachmentID: attachment.IDFor(pdf)})
	require.NoError(t, err)
	assert.Equal(t, "2", newKey.ID)

	listed, err := m.List(newKey)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestManagerDeleteUnknown(t *testing.T) {
	m, rec, key := setup(t)

	_, err := m.Delete(types.AttachmentKey{MessageKey: key, AttachmentID: "nope"})
	assert.ErrorIs(t, err, compose.ErrNoAttachment)
	assert.Equal(t, []string{"Fetch"}, rec.Methods())
}
