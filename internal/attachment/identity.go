// Package attachment lists, attaches and detaches message attachments.
package attachment

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Namespace is the UUID namespace attachment ids are derived in
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:mailbox-adapter:attachment"))

// IDFor returns the deterministic id of an attachment: a name-based SHA-1 UUID
// over its file name and base64 content. Only base64 attachments have ids.
func IDFor(att types.Attachment) string {
	if att.Encoding != "base64" {
		panic(fmt.Sprintf("attachment %q: id requires base64 content, got encoding %q", att.Text, att.Encoding))
	}
	return uuid.NewSHA1(Namespace, []byte(att.Text+att.Content)).String()
}

// WithKey returns att keyed under message
func WithKey(att types.Attachment, message types.MessageKey) types.Attachment {
	att.Key = &types.AttachmentKey{MessageKey: message, AttachmentID: IDFor(att)}
	return att
}
