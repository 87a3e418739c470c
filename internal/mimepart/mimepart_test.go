package mimepart

import (
	"testing"

	"github.com/emersion/go-imap"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/mailbox-adapter/internal/attribute"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

func mixedStructure() *imap.BodyStructure {
	return &imap.BodyStructure{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*imap.BodyStructure{
			{
				MIMEType:    "multipart",
				MIMESubType: "alternative",
				Parts: []*imap.BodyStructure{
					{
						MIMEType:    "text",
						MIMESubType: "plain",
						Params:      map[string]string{"charset": "UTF-8"},
						Encoding:    "quoted-printable",
					},
					{
						MIMEType:    "text",
						MIMESubType: "html",
						Params:      map[string]string{"charset": "ISO-8859-1"},
						Encoding:    "base64",
					},
				},
			},
			{
				MIMEType:          "application",
				MIMESubType:       "pdf",
				Encoding:          "base64",
				Disposition:       "attachment",
				DispositionParams: map[string]string{"filename": "a.pdf"},
			},
			{
				MIMEType:    "image",
				MIMESubType: "png",
				Encoding:    "base64",
				Disposition: "inline",
			},
			{
				MIMEType:    "application",
				MIMESubType: "octet-stream",
				Encoding:    "base64",
				Disposition: "attachment",
			},
		},
	}
}

func TestContentTypes(t *testing.T) {
	want := map[string]string{
		"1":   "multipart/alternative",
		"1.1": "text/plain",
		"1.2": "text/html",
		"2":   "application/pdf",
		"3":   "image/png",
		"4":   "application/octet-stream",
	}
	if diff := cmp.Diff(want, ContentTypes(mixedStructure())); diff != "" {
		t.Errorf("unexpected content types (-want +got):\n%s", diff)
	}
}

func TestContentTypesSinglePart(t *testing.T) {
	bs := &imap.BodyStructure{MIMEType: "TEXT", MIMESubType: "PLAIN"}
	assert.Equal(t, map[string]string{"1": "text/plain"}, ContentTypes(bs))

	id, ok := FindBody(bs, "plain")
	require.True(t, ok)
	assert.Equal(t, "1", id)
}

func TestFindBody(t *testing.T) {
	bs := mixedStructure()

	id, ok := FindBody(bs, "plain")
	require.True(t, ok)
	assert.Equal(t, "1.1", id)

	id, ok = FindBody(bs, "html")
	require.True(t, ok)
	assert.Equal(t, "1.2", id)

	_, ok = FindBody(bs, "calendar")
	assert.False(t, ok)
}

func TestFindBodySkipsAttachedText(t *testing.T) {
	bs := &imap.BodyStructure{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*imap.BodyStructure{
			{MIMEType: "text", MIMESubType: "plain", Disposition: "attachment",
				DispositionParams: map[string]string{"filename": "notes.txt"}},
			{MIMEType: "text", MIMESubType: "plain"},
		},
	}
	id, ok := FindBody(bs, "plain")
	require.True(t, ok)
	assert.Equal(t, "2", id)
}

func TestHasAttachments(t *testing.T) {
	assert.True(t, HasAttachments(mixedStructure()))

	textOnly := &imap.BodyStructure{
		MIMEType:    "multipart",
		MIMESubType: "alternative",
		Parts: []*imap.BodyStructure{
			{MIMEType: "text", MIMESubType: "plain"},
			{MIMEType: "text", MIMESubType: "html", Disposition: "attachment"},
		},
	}
	assert.False(t, HasAttachments(textOnly))
}

func TestPlanSkipsBodiesWhenNotRequested(t *testing.T) {
	set := attribute.Resolve(attribute.Include(types.AttrSubject, types.AttrHasAttachments), nil, nil, nil)
	assert.Empty(t, Plan(mixedStructure(), set))
}

func TestPlanRequestsPeekWithLength(t *testing.T) {
	req := attribute.Request{types.AttrPlain: {Include: true, Options: attribute.Options{Length: 100}}}
	set := attribute.Resolve(req, nil, nil, nil)

	sections := Plan(mixedStructure(), set)
	require.Len(t, sections, 1)
	assert.True(t, sections[0].Peek)
	assert.Equal(t, []int{1, 1}, sections[0].Path)
	assert.Equal(t, []int{0, 100}, sections[0].Partial)
	assert.Equal(t, imap.FetchItem("BODY.PEEK[1.1]<0.100>"), sections[0].FetchItem())
}

func TestPlanBothBodies(t *testing.T) {
	set := attribute.Resolve(attribute.Include(types.AttrPlain, types.AttrHTML), nil, nil, nil)

	sections := Plan(mixedStructure(), set)
	require.Len(t, sections, 2)
	assert.Equal(t, imap.FetchItem("BODY.PEEK[1.1]"), sections[0].FetchItem())
	assert.Equal(t, imap.FetchItem("BODY.PEEK[1.2]"), sections[1].FetchItem())
}

func TestResolveDecodesBodies(t *testing.T) {
	set := attribute.Resolve(attribute.Include(types.AttrPlain, types.AttrHTML, types.AttrHasAttachments), nil, nil, nil)
	fetched := Fetched{
		"1.1": []byte("Hello=20world"),
		"1.2": []byte("PHA+Y2Fm6TwvcD4="),
	}

	bodies := Resolve(mixedStructure(), fetched, set)

	require.NotNil(t, bodies.Plain)
	assert.Equal(t, types.MessagePart{Content: "Hello world", Charset: "utf-8", MimeType: "text/plain"}, *bodies.Plain)
	require.NotNil(t, bodies.HTML)
	assert.Equal(t, types.MessagePart{Content: "<p>café</p>", Charset: "iso-8859-1", MimeType: "text/html"}, *bodies.HTML)
	require.NotNil(t, bodies.HasAttachments)
	assert.True(t, *bodies.HasAttachments)
}

func TestResolveMissingBodyIsEmpty(t *testing.T) {
	set := attribute.Resolve(attribute.Include(types.AttrHTML), nil, nil, nil)
	bs := &imap.BodyStructure{MIMEType: "text", MIMESubType: "plain"}

	bodies := Resolve(bs, Fetched{}, set)

	assert.Nil(t, bodies.Plain)
	assert.Nil(t, bodies.HasAttachments)
	require.NotNil(t, bodies.HTML)
	assert.Equal(t, types.MessagePart{}, *bodies.HTML)
}

func TestExtractCharset(t *testing.T) {
	assert.Equal(t, "utf-8", ExtractCharset("Content-Type: text/html; charset=UTF-8"))
	assert.Equal(t, "", ExtractCharset("Content-Type: text/plain"))
	assert.Equal(t, "iso-8859-1", ExtractCharset("Content-Type: text/plain;\r\n CHARSET=\"ISO-8859-1\"\r\n\r\n"))
}

func TestExtractAttachments(t *testing.T) {
	bs := mixedStructure()

	sections := AttachmentSections(bs)
	require.Len(t, sections, 2)
	assert.Equal(t, []int{2}, sections[0].Path)
	assert.Equal(t, []int{4}, sections[1].Path)

	fetched := Fetched{"2": []byte("JVBERi0="), "4": []byte("AAEC")}
	want := []types.Attachment{{
		Type:     "application/pdf",
		Text:     "a.pdf",
		Size:     5,
		Content:  "JVBERi0=",
		Encoding: "base64",
	}}
	if diff := cmp.Diff(want, ExtractAttachments(bs, fetched)); diff != "" {
		t.Errorf("unexpected attachments (-want +got):\n%s", diff)
	}
}

func TestCollect(t *testing.T) {
	section := Section([]int{1, 2}, 0)
	resp, err := imap.ParseBodySectionName("BODY[1.2]")
	require.NoError(t, err)

	msg := &imap.Message{Body: map[*imap.BodySectionName]imap.Literal{
		resp: bytesLiteral("hi"),
	}}

	assert.Equal(t, Fetched{"1.2": []byte("hi")}, Collect(msg, []*imap.BodySectionName{section}))
}
