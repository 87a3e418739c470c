package mimepart

import (
	"encoding/base64"

	"github.com/emersion/go-imap"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// AttachmentSections returns a peek fetch for every attachment part
func AttachmentSections(bs *imap.BodyStructure) []*imap.BodySectionName {
	var sections []*imap.BodySectionName
	walkAttachments(bs, func(path []int, _ *imap.BodyStructure) {
		sections = append(sections, Section(path, 0))
	})
	return sections
}

// ExtractAttachments decodes every fetched attachment part. Parts without a filename
// are not surfaced.
func ExtractAttachments(bs *imap.BodyStructure, fetched Fetched) []types.Attachment {
	attachments := []types.Attachment{}
	walkAttachments(bs, func(path []int, part *imap.BodyStructure) {
		name, _ := part.Filename()
		if name == "" {
			return
		}
		raw, ok := fetched[PartID(path)]
		if !ok {
			return
		}
		data := Decode(part, raw, false)
		attachments = append(attachments, types.Attachment{
			Type:     ContentType(part),
			Text:     name,
			Size:     len(data),
			Content:  base64.StdEncoding.EncodeToString(data),
			Encoding: "base64",
		})
	})
	return attachments
}

func walkAttachments(bs *imap.BodyStructure, f func(path []int, part *imap.BodyStructure)) {
	if bs == nil {
		return
	}
	bs.Walk(func(path []int, part *imap.BodyStructure) bool {
		if len(path) == 0 {
			return true
		}
		if IsAttachment(part) {
			f(path, part)
			return false
		}
		return ContentType(part) != "message/rfc822"
	})
}
