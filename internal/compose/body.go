package compose

import (
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Body replaces the text bodies of a message
type Body struct{}

// Compose returns target with its plain and html bodies replaced by the draft's.
// Header fields and attachments of target are kept. An empty target starts a new message.
func (Body) Compose(target []byte, d types.Draft) ([]byte, error) {
	doc, err := parse(target)
	if err != nil {
		return nil, err
	}
	doc.plain = textPart(d.Plain, "text/plain")
	doc.html = textPart(d.HTML, "text/html")
	return doc.bytes()
}

func textPart(p *types.MessagePart, mimeType string) *types.MessagePart {
	if p == nil {
		return nil
	}
	out := *p
	out.MimeType = mimeType
	out.Charset = "utf-8"
	return &out
}
