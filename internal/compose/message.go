// Package compose rewrites raw RFC 5322 messages: body, header and attachments.
package compose

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// part is a non-body part carried over unchanged
type part struct {
	header mail.AttachmentHeader
	body   []byte
}

// attachment describes the part the way attachment listings do
func (p part) attachment() (types.Attachment, bool) {
	name, _ := p.header.Filename()
	if name == "" {
		return types.Attachment{}, false
	}
	t, _, _ := p.header.ContentType()
	return types.Attachment{
		Type:     strings.ToLower(t),
		Text:     name,
		Size:     len(p.body),
		Content:  base64.StdEncoding.EncodeToString(p.body),
		Encoding: "base64",
	}, true
}

// document is a parsed message split into header, text bodies and other parts
type document struct {
	header mail.Header
	plain  *types.MessagePart
	html   *types.MessagePart
	parts  []part
}

// parse reads raw into a document. An empty raw message yields an empty document.
func parse(raw []byte) (*document, error) {
	doc := &document{}
	if len(raw) == 0 {
		return doc, nil
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	doc.header = mr.Header

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		body, err := io.ReadAll(p.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read part body: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			t, params, _ := h.ContentType()
			switch {
			case t == "text/plain" && doc.plain == nil:
				doc.plain = &types.MessagePart{Content: string(body), Charset: params["charset"], MimeType: t}
				continue
			case t == "text/html" && doc.html == nil:
				doc.html = &types.MessagePart{Content: string(body), Charset: params["charset"], MimeType: t}
				continue
			}
			doc.parts = append(doc.parts, part{header: mail.AttachmentHeader{Header: h.Header}, body: body})
		case *mail.AttachmentHeader:
			doc.parts = append(doc.parts, part{header: *h, body: body})
		}
	}

	return doc, nil
}

// bytes renders the document as multipart/mixed with a multipart/alternative body
func (d *document) bytes() ([]byte, error) {
	h := d.header.Copy()
	h.Del("Content-Transfer-Encoding")
	h.Del("Content-Disposition")
	if !h.Has("Mime-Version") {
		h.Set("MIME-Version", "1.0")
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create body: %w", err)
	}
	texts := []*types.MessagePart{d.plain, d.html}
	if d.plain == nil && d.html == nil {
		texts = []*types.MessagePart{{MimeType: "text/plain"}}
	}
	for _, text := range texts {
		if text == nil {
			continue
		}
		if err := writeText(iw, text); err != nil {
			return nil, err
		}
	}
	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close body: %w", err)
	}

	for _, p := range d.parts {
		w, err := mw.CreateAttachment(p.header)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment: %w", err)
		}
		if _, err := w.Write(p.body); err != nil {
			return nil, fmt.Errorf("failed to write attachment: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close attachment: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close message: %w", err)
	}
	return buf.Bytes(), nil
}

// writeText writes one body part. Content is always UTF-8.
func writeText(iw *mail.InlineWriter, text *types.MessagePart) error {
	mimeType := strings.ToLower(text.MimeType)
	if mimeType == "" {
		mimeType = "text/plain"
	}

	var h mail.InlineHeader
	h.SetContentType(mimeType, map[string]string{"charset": "utf-8"})
	w, err := iw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", mimeType, err)
	}
	if _, err := io.WriteString(w, text.Content); err != nil {
		return fmt.Errorf("failed to write %s part: %w", mimeType, err)
	}
	return w.Close()
}
