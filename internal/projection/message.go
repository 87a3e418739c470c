// Package projection builds message records from IMAP fetch results.
package projection

import (
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-imap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/brandon/mailbox-adapter/internal/attribute"
	"github.com/brandon/mailbox-adapter/internal/mimepart"
	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Epoch is the date reported for messages without one
var Epoch = time.Unix(0, 0).UTC()

// Raw is one fetch result: the first-pass message plus any body parts
// fetched in a second pass
type Raw struct {
	Message *imap.Message
	Parts   mimepart.Fetched
}

var (
	envelopeAttrs = []types.Attr{
		types.AttrFrom, types.AttrTo, types.AttrCc, types.AttrBcc, types.AttrReplyTo,
		types.AttrSubject, types.AttrDate, types.AttrMessageID,
	}
	flagAttrs = []types.Attr{
		types.AttrSeen, types.AttrAnswered, types.AttrDraft, types.AttrFlagged, types.AttrRecent,
	}
	structureAttrs = []types.Attr{types.AttrPlain, types.AttrHTML, types.AttrHasAttachments}
)

// ContentTypeSection fetches the top-level Content-Type header without setting \Seen
func ContentTypeSection() *imap.BodySectionName {
	return headerSection("Content-Type")
}

// ReferencesSection fetches the References header without setting \Seen
func ReferencesSection() *imap.BodySectionName {
	return headerSection("References")
}

func headerSection(field string) *imap.BodySectionName {
	return &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier, Fields: []string{field}},
		Peek:         true,
	}
}

// FetchItems returns the first-pass fetch items needed for the attribute set.
// Body content is never part of the first pass.
func FetchItems(set attribute.Set) []imap.FetchItem {
	items := []imap.FetchItem{imap.FetchUid}
	if attribute.WantsAny(set, envelopeAttrs...) {
		items = append(items, imap.FetchEnvelope)
	}
	if attribute.WantsAny(set, flagAttrs...) {
		items = append(items, imap.FetchFlags)
	}
	if attribute.WantsAny(set, types.AttrSize) {
		items = append(items, imap.FetchRFC822Size)
	}
	if attribute.WantsAny(set, structureAttrs...) {
		items = append(items, imap.FetchBodyStructure)
	}
	if attribute.WantsAny(set, types.AttrCharset, types.AttrSubject) {
		items = append(items, ContentTypeSection().FetchItem())
	}
	if attribute.WantsAny(set, types.AttrReferences) {
		items = append(items, ReferencesSection().FetchItem())
	}
	return items
}

// ProjectOne builds the record of a single message
func ProjectOne(raw Raw, folder types.FolderKey, set attribute.Set) types.Record {
	rec := project(raw, folder, set)

	bodies := mimepart.Resolve(raw.Message.BodyStructure, raw.Parts, set)
	if bodies.HasAttachments != nil {
		rec.Set(types.AttrHasAttachments, *bodies.HasAttachments)
	}
	if bodies.Plain != nil {
		rec.Set(types.AttrPlain, *bodies.Plain)
	}
	if bodies.HTML != nil {
		rec.Set(types.AttrHTML, *bodies.HTML)
	}
	return rec
}

// ProjectMany builds list items in input order. Requested bodies collapse into a single
// preview part: plain first, html only when plain is blank.
func ProjectMany(raws []Raw, folder types.FolderKey, set attribute.Set) []types.ListItem {
	items := make([]types.ListItem, 0, len(raws))
	for _, raw := range raws {
		rec := project(raw, folder, set)

		bodies := mimepart.Resolve(raw.Message.BodyStructure, raw.Parts, set)
		if bodies.HasAttachments != nil {
			rec.Set(types.AttrHasAttachments, *bodies.HasAttachments)
		}

		item, err := types.NewListItem(rec, preview(bodies))
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

func preview(bodies mimepart.Bodies) *types.MessagePart {
	switch {
	case bodies.Plain != nil && bodies.HTML != nil:
		if bodies.Plain.IsBlank() {
			return bodies.HTML
		}
		return bodies.Plain
	case bodies.Plain != nil:
		return bodies.Plain
	default:
		return bodies.HTML
	}
}

func project(raw Raw, folder types.FolderKey, set attribute.Set) types.Record {
	msg := raw.Message
	rec := types.NewRecord(types.NewMessageKey(folder, msg.Uid))

	env := msg.Envelope
	if env == nil {
		env = &imap.Envelope{}
	}

	charset := ""
	if attribute.WantsAny(set, types.AttrCharset, types.AttrSubject) {
		charset = mimepart.ExtractCharset(headerText(msg, ContentTypeSection()))
	}

	for a := range set {
		switch a {
		case types.AttrCharset:
			rec.Set(a, charset)
		case types.AttrSubject:
			rec.Set(a, DecodeSubject(env.Subject, charset))
		case types.AttrFrom:
			rec.Set(a, ProjectAddress(env.From))
		case types.AttrReplyTo:
			rec.Set(a, ProjectAddress(env.ReplyTo))
		case types.AttrTo:
			rec.Set(a, ProjectAddressList(env.To))
		case types.AttrCc:
			rec.Set(a, ProjectAddressList(env.Cc))
		case types.AttrBcc:
			rec.Set(a, ProjectAddressList(env.Bcc))
		case types.AttrDate:
			if env.Date.IsZero() {
				rec.Set(a, Epoch)
			} else {
				rec.Set(a, env.Date)
			}
		case types.AttrMessageID:
			rec.Set(a, env.MessageId)
		case types.AttrReferences:
			rec.Set(a, ExtractReferences(headerText(msg, ReferencesSection())))
		case types.AttrSize:
			rec.Set(a, int(msg.Size))
		case types.AttrSeen:
			rec.Set(a, HasFlag(msg.Flags, imap.SeenFlag))
		case types.AttrAnswered:
			rec.Set(a, HasFlag(msg.Flags, imap.AnsweredFlag))
		case types.AttrDraft:
			rec.Set(a, HasFlag(msg.Flags, imap.DraftFlag))
		case types.AttrFlagged:
			rec.Set(a, HasFlag(msg.Flags, imap.FlaggedFlag))
		case types.AttrRecent:
			rec.Set(a, HasFlag(msg.Flags, imap.RecentFlag))
		}
	}
	return rec
}

// HasFlag reports whether flag is set, ignoring case
func HasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

// ExtractReferences returns the value of a raw "References:" header line, or "" when
// the text is in any other format
func ExtractReferences(header string) string {
	const prefix = "References:"
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(unfold(header[len(prefix):]))
}

// DecodeSubject converts a subject sent as raw 8-bit text in charset to UTF-8
func DecodeSubject(subject, charset string) string {
	if charset == "" || utf8.ValidString(subject) {
		return subject
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return subject
	}
	decoded, err := enc.NewDecoder().String(subject)
	if err != nil {
		return subject
	}
	return decoded
}

func headerText(msg *imap.Message, section *imap.BodySectionName) string {
	lit := msg.GetBody(section)
	if lit == nil {
		return ""
	}
	b, err := io.ReadAll(lit)
	if err != nil {
		return ""
	}
	return string(b)
}

func unfold(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "")
	return strings.ReplaceAll(s, "\n", "")
}
