package types

// Attr is the name of a message attribute a caller can request
type Attr string

// Supported message attributes
const (
	AttrHasAttachments Attr = "hasAttachments"
	AttrSize           Attr = "size"
	AttrPlain          Attr = "plain"
	AttrHTML           Attr = "html"
	AttrCc             Attr = "cc"
	AttrBcc            Attr = "bcc"
	AttrReplyTo        Attr = "replyTo"
	AttrFrom           Attr = "from"
	AttrTo             Attr = "to"
	AttrSubject        Attr = "subject"
	AttrDate           Attr = "date"
	AttrSeen           Attr = "seen"
	AttrAnswered       Attr = "answered"
	AttrDraft          Attr = "draft"
	AttrFlagged        Attr = "flagged"
	AttrRecent         Attr = "recent"
	AttrCharset        Attr = "charset"
	AttrReferences     Attr = "references"
	AttrMessageID      Attr = "messageId"
)

// AllAttrs lists the attribute vocabulary
var AllAttrs = []Attr{
	AttrHasAttachments, AttrSize, AttrPlain, AttrHTML, AttrCc, AttrBcc, AttrReplyTo,
	AttrFrom, AttrTo, AttrSubject, AttrDate, AttrSeen, AttrAnswered, AttrDraft,
	AttrFlagged, AttrRecent, AttrCharset, AttrReferences, AttrMessageID,
}

// Valid reports whether a is part of the vocabulary
func (a Attr) Valid() bool {
	for _, known := range AllAttrs {
		if a == known {
			return true
		}
	}
	return false
}
