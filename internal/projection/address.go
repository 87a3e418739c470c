package projection

import (
	"github.com/emersion/go-imap"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// ProjectAddress converts a singular envelope field (from, replyTo). The last entry
// with a non-empty address wins. Returns nil when no entry qualifies.
func ProjectAddress(addrs []*imap.Address) *types.Address {
	var out *types.Address
	for _, a := range addrs {
		if addr, ok := toAddress(a); ok {
			out = &addr
		}
	}
	return out
}

// ProjectAddressList converts a list envelope field (to, cc, bcc), keeping every entry
// with a non-empty address in envelope order. Never nil.
func ProjectAddressList(addrs []*imap.Address) types.AddressList {
	out := types.AddressList{}
	for _, a := range addrs {
		if addr, ok := toAddress(a); ok {
			out = append(out, addr)
		}
	}
	return out
}

func toAddress(a *imap.Address) (types.Address, bool) {
	if a == nil || a.MailboxName == "" || a.HostName == "" {
		return types.Address{}, false
	}
	bare := a.Address()
	name := a.PersonalName
	if name == "" {
		name = bare
	}
	return types.Address{Address: bare, Name: name}, true
}
