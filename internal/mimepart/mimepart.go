// Package mimepart walks IMAP body structures to locate message bodies and attachments.
package mimepart

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"

	"github.com/brandon/mailbox-adapter/internal/attribute"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Fetched holds the raw bytes of fetched parts keyed by part id
type Fetched map[string][]byte

// Bodies is the resolved body content of one message
type Bodies struct {
	Plain          *types.MessagePart
	HTML           *types.MessagePart
	HasAttachments *bool
}

// PartID formats an IMAP part path as "1.2.3"
func PartID(path []int) string {
	ids := make([]string, len(path))
	for i, n := range path {
		ids[i] = strconv.Itoa(n)
	}
	return strings.Join(ids, ".")
}

// ContentType returns the lower-cased type/subtype of a part
func ContentType(part *imap.BodyStructure) string {
	return strings.ToLower(part.MIMEType + "/" + part.MIMESubType)
}

// ContentTypes builds a flat map of part id to content type. The multipart root has no id.
func ContentTypes(bs *imap.BodyStructure) map[string]string {
	cts := make(map[string]string)
	bs.Walk(func(path []int, part *imap.BodyStructure) bool {
		if len(path) > 0 {
			cts[PartID(path)] = ContentType(part)
		}
		return true
	})
	return cts
}

// GetPart returns the part at id, or nil
func GetPart(bs *imap.BodyStructure, id string) *imap.BodyStructure {
	var found *imap.BodyStructure
	bs.Walk(func(path []int, part *imap.BodyStructure) bool {
		if found != nil {
			return false
		}
		if len(path) > 0 && PartID(path) == id {
			found = part
			return false
		}
		return true
	})
	return found
}

// IsAttachment reports whether the part should be presented as an attachment
func IsAttachment(part *imap.BodyStructure) bool {
	switch ContentType(part) {
	case "application/ms-tnef", "application/vnd.ms-tnef", "application/pgp-keys",
		"application/pgp-signature", "application/pkcs7-signature":
		return false
	}

	switch strings.ToLower(part.MIMEType) {
	case "multipart":
		return false
	case "audio", "video":
		return true
	case "application":
		if name, _ := part.Filename(); name != "" {
			return true
		}
	}

	return strings.EqualFold(part.Disposition, "attachment")
}

// HasAttachments reports whether any non-text part is an attachment
func HasAttachments(bs *imap.BodyStructure) bool {
	found := false
	bs.Walk(func(path []int, part *imap.BodyStructure) bool {
		if found {
			return false
		}
		ct := ContentType(part)
		if ct != "text/plain" && ct != "text/html" && IsAttachment(part) {
			found = true
		}
		return true
	})
	return found
}

// FindBody returns the id of the first text/<subtype> part that is not an attachment,
// without descending into attachments or embedded messages.
func FindBody(bs *imap.BodyStructure, subtype string) (string, bool) {
	want := "text/" + strings.ToLower(subtype)
	id := ""
	bs.Walk(func(path []int, part *imap.BodyStructure) bool {
		if id != "" {
			return false
		}
		ct := ContentType(part)
		if ct == "message/rfc822" || (len(path) > 0 && IsAttachment(part)) {
			return false
		}
		if ct == want && len(path) > 0 {
			id = PartID(path)
			return false
		}
		return true
	})
	return id, id != ""
}

// Section returns a peek fetch of the part at path, truncated to length when > 0
func Section(path []int, length uint32) *imap.BodySectionName {
	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Path: append([]int(nil), path...)},
		Peek:         true,
	}
	if length > 0 {
		section.Partial = []int{0, int(length)}
	}
	return section
}

// Plan returns the body sections needed to resolve the requested plain/html bodies.
// It is empty when neither body was asked for.
func Plan(bs *imap.BodyStructure, set attribute.Set) []*imap.BodySectionName {
	plainOpts, wantPlain := attribute.Wants(types.AttrPlain, set)
	htmlOpts, wantHTML := attribute.Wants(types.AttrHTML, set)
	if bs == nil || (!wantPlain && !wantHTML) {
		return nil
	}

	var sections []*imap.BodySectionName
	bs.Walk(func(path []int, part *imap.BodyStructure) bool {
		if len(path) == 0 {
			return true
		}
		switch ContentType(part) {
		case "text/plain":
			if wantPlain {
				sections = append(sections, Section(path, plainOpts.Length))
			}
		case "text/html":
			if wantHTML {
				sections = append(sections, Section(path, htmlOpts.Length))
			}
		}
		return true
	})
	return sections
}

// Collect reads the literals of the given sections from a fetch result
func Collect(msg *imap.Message, sections []*imap.BodySectionName) Fetched {
	fetched := make(Fetched, len(sections))
	for _, section := range sections {
		lit := msg.GetBody(section)
		if lit == nil {
			continue
		}
		b, err := io.ReadAll(lit)
		if err != nil && len(b) == 0 {
			continue
		}
		fetched[PartID(section.Path)] = b
	}
	return fetched
}

// Resolve locates the canonical plain and html bodies and computes hasAttachments,
// each only when requested. A missing body resolves to an empty part.
func Resolve(bs *imap.BodyStructure, fetched Fetched, set attribute.Set) Bodies {
	var bodies Bodies
	if bs == nil {
		return bodies
	}

	if _, ok := attribute.Wants(types.AttrHasAttachments, set); ok {
		has := HasAttachments(bs)
		bodies.HasAttachments = &has
	}
	if _, ok := attribute.Wants(types.AttrPlain, set); ok {
		part := resolveBody(bs, fetched, "plain")
		bodies.Plain = &part
	}
	if _, ok := attribute.Wants(types.AttrHTML, set); ok {
		part := resolveBody(bs, fetched, "html")
		bodies.HTML = &part
	}
	return bodies
}

func resolveBody(bs *imap.BodyStructure, fetched Fetched, subtype string) types.MessagePart {
	id, ok := FindBody(bs, subtype)
	if !ok {
		return types.MessagePart{}
	}
	raw, ok := fetched[id]
	if !ok {
		return types.MessagePart{}
	}
	part := GetPart(bs, id)
	return types.MessagePart{
		Content:  string(Decode(part, raw, true)),
		Charset:  strings.ToLower(strings.TrimSpace(part.Params["charset"])),
		MimeType: "text/" + subtype,
	}
}

// Decode undoes the part's transfer encoding and, for text when transcode is set,
// converts its charset to UTF-8. Whatever was decoded before an error is returned.
func Decode(part *imap.BodyStructure, raw []byte, transcode bool) []byte {
	var h message.Header
	params := map[string]string{}
	if charset := part.Params["charset"]; transcode && charset != "" {
		params["charset"] = charset
	}
	h.SetContentType(ContentType(part), params)
	if part.Encoding != "" {
		h.Set("Content-Transfer-Encoding", part.Encoding)
	}

	e, err := message.New(h, bytes.NewReader(raw))
	if e == nil {
		return raw
	}
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return raw
	}
	b, _ := io.ReadAll(e.Body)
	return b
}

// ExtractCharset returns the lower-cased charset parameter of a raw Content-Type header
func ExtractCharset(header string) string {
	for _, segment := range strings.Split(header, ";") {
		kv := strings.SplitN(segment, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(kv[0]), "charset") {
			return strings.ToLower(strings.Trim(strings.TrimSpace(kv[1]), `"`))
		}
	}
	return ""
}
