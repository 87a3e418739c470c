package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the generic projection of one message: the owning key plus one value per
// requested attribute. A value is present if and only if it was requested.
type Record struct {
	Key    MessageKey
	Values map[Attr]any
}

// NewRecord creates an empty record owned by key
func NewRecord(key MessageKey) Record {
	return Record{Key: key, Values: make(map[Attr]any)}
}

// Set stores the value of an attribute
func (r Record) Set(a Attr, v any) {
	r.Values[a] = v
}

// Has reports whether the attribute was projected
func (r Record) Has(a Attr) bool {
	_, ok := r.Values[a]
	return ok
}

// String returns a string attribute or ""
func (r Record) String(a Attr) string {
	s, _ := r.Values[a].(string)
	return s
}

// Bool returns a boolean attribute or false
func (r Record) Bool(a Attr) bool {
	b, _ := r.Values[a].(bool)
	return b
}

// Int returns an integer attribute or 0
func (r Record) Int(a Attr) int {
	n, _ := r.Values[a].(int)
	return n
}

// Time returns a time attribute or the zero time
func (r Record) Time(a Attr) time.Time {
	t, _ := r.Values[a].(time.Time)
	return t
}

// Address returns a single address attribute or nil
func (r Record) Address(a Attr) *Address {
	addr, _ := r.Values[a].(*Address)
	return addr
}

// AddressList returns an address list attribute or nil
func (r Record) AddressList(a Attr) AddressList {
	l, _ := r.Values[a].(AddressList)
	return l
}

// Part returns a body part attribute or an empty part
func (r Record) Part(a Attr) MessagePart {
	p, _ := r.Values[a].(MessagePart)
	return p
}

// MarshalJSON flattens the key and the projected values into one object
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+3)
	for k, v := range r.Values {
		out[string(k)] = v
	}
	out["mailAccountId"] = r.Key.AccountID
	out["mailFolderId"] = r.Key.FolderID
	out["id"] = r.Key.ID
	return json.Marshal(out)
}

func (r Record) checkKey() error {
	if r.Key.AccountID == "" || r.Key.FolderID == "" || r.Key.ID == "" {
		return fmt.Errorf("record has incomplete key %q", r.Key.String())
	}
	return nil
}

// ListItem is a summary of a message as shown in a message list
type ListItem struct {
	Record
	Preview *MessagePart
}

// NewListItem creates a list item from a record and its optional preview
func NewListItem(r Record, preview *MessagePart) (ListItem, error) {
	if err := r.checkKey(); err != nil {
		return ListItem{}, err
	}
	return ListItem{Record: r, Preview: preview}, nil
}

// MarshalJSON adds the preview to the flattened record
func (i ListItem) MarshalJSON() ([]byte, error) {
	b, err := i.Record.MarshalJSON()
	if err != nil || i.Preview == nil {
		return b, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	out["previewText"] = i.Preview
	return json.Marshal(out)
}

// Item is the full projection of a single message
type Item struct {
	Record
}

// NewItem creates an item view of r
func NewItem(r Record) (Item, error) {
	if err := r.checkKey(); err != nil {
		return Item{}, err
	}
	return Item{Record: r}, nil
}

// DraftItem is the projection of a message flagged as draft
type DraftItem struct {
	Record
}

// NewDraftItem creates a draft view of r. The draft flag must have been projected.
func NewDraftItem(r Record) (DraftItem, error) {
	if err := r.checkKey(); err != nil {
		return DraftItem{}, err
	}
	if !r.Has(AttrDraft) {
		return DraftItem{}, fmt.Errorf("record %s has no draft attribute", r.Key)
	}
	return DraftItem{Record: r}, nil
}

// IsDraft reports whether the message carries the draft flag
func (d DraftItem) IsDraft() bool {
	return d.Bool(AttrDraft)
}
