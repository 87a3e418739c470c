package mailtest

import (
	"github.com/emersion/go-imap"

	"github.com/brandon/mailbox-adapter/internal/email"
)

// Call is one transport call seen by a Recorder
type Call struct {
	Method string
	Folder string
	UIDs   []uint32
}

// Recorder wraps a transport and records every call made through it
type Recorder struct {
	email.Transport

	Calls []Call
	// UnseenCounts overrides the unread count of a folder
	UnseenCounts map[string]uint32
	// Fail makes a method return the error instead of calling through
	Fail map[string]error
}

var _ email.Transport = (*Recorder)(nil)

// NewRecorder wraps t
func NewRecorder(t email.Transport) *Recorder {
	return &Recorder{
		Transport:    t,
		UnseenCounts: map[string]uint32{},
		Fail:         map[string]error{},
	}
}

// Methods returns the names of the recorded calls in order
func (r *Recorder) Methods() []string {
	names := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		names = append(names, c.Method)
	}
	return names
}

// Reset forgets the recorded calls
func (r *Recorder) Reset() {
	r.Calls = nil
}

func (r *Recorder) record(method, folder string, uids []uint32) error {
	r.Calls = append(r.Calls, Call{Method: method, Folder: folder, UIDs: append([]uint32(nil), uids...)})
	return r.Fail[method]
}

func (r *Recorder) ListMailboxes(pattern string) ([]*imap.MailboxInfo, error) {
	if err := r.record("ListMailboxes", "", nil); err != nil {
		return nil, err
	}
	return r.Transport.ListMailboxes(pattern)
}

func (r *Recorder) Unseen(folder string) (uint32, error) {
	if err := r.record("Unseen", folder, nil); err != nil {
		return 0, err
	}
	if n, ok := r.UnseenCounts[folder]; ok {
		return n, nil
	}
	return r.Transport.Unseen(folder)
}

func (r *Recorder) Search(folder string, criteria *imap.SearchCriteria) ([]uint32, error) {
	if err := r.record("Search", folder, nil); err != nil {
		return nil, err
	}
	return r.Transport.Search(folder, criteria)
}

func (r *Recorder) Fetch(folder string, uids []uint32, items []imap.FetchItem) ([]*imap.Message, error) {
	if err := r.record("Fetch", folder, uids); err != nil {
		return nil, err
	}
	return r.Transport.Fetch(folder, uids, items)
}

func (r *Recorder) Store(folder string, uids []uint32, add, remove []string) error {
	if err := r.record("Store", folder, uids); err != nil {
		return err
	}
	return r.Transport.Store(folder, uids, add, remove)
}

func (r *Recorder) Append(folder string, flags []string, raw []byte) (uint32, error) {
	if err := r.record("Append", folder, nil); err != nil {
		return 0, err
	}
	return r.Transport.Append(folder, flags, raw)
}

func (r *Recorder) Expunge(folder string, uids []uint32) ([]uint32, error) {
	if err := r.record("Expunge", folder, uids); err != nil {
		return nil, err
	}
	return r.Transport.Expunge(folder, uids)
}

func (r *Recorder) Copy(src, dst string, uids []uint32, move bool) (map[uint32]uint32, error) {
	if err := r.record("Copy", src, uids); err != nil {
		return nil, err
	}
	return r.Transport.Copy(src, dst, uids, move)
}
