// Package attribute resolves the set of message attributes a caller asked for.
package attribute

import (
	"strconv"

	"github.com/brandon/mailbox-adapter/pkg/types"
)

// Options carries the per-attribute configuration
type Options struct {
	// Length truncates plain/html bodies when > 0
	Length uint32
}

// Value is one entry of a request
type Value struct {
	Include bool
	Options Options
}

// Request maps attribute names to what the caller asked for
type Request map[types.Attr]Value

// Set is a resolved attribute set. Presence means wanted.
type Set map[types.Attr]Options

// Defaults are always useful for any message projection
var Defaults = []types.Attr{
	types.AttrFrom, types.AttrTo, types.AttrSubject, types.AttrDate,
	types.AttrSeen, types.AttrAnswered, types.AttrDraft, types.AttrFlagged, types.AttrRecent,
	types.AttrCharset, types.AttrReferences, types.AttrMessageID,
}

// ListDefaults are the defaults for message lists
var ListDefaults = append(append([]types.Attr{}, Defaults...),
	types.AttrPlain, types.AttrSize, types.AttrHasAttachments)

// ItemForce is force-included for a full single-item fetch
var ItemForce = []types.Attr{types.AttrHasAttachments, types.AttrSize}

// Include is a shorthand for a request of plain "true" entries
func Include(attrs ...types.Attr) Request {
	req := make(Request, len(attrs))
	for _, a := range attrs {
		req[a] = Value{Include: true}
	}
	return req
}

// Resolve computes the effective attribute set: defaults minus exclude, then force,
// then the requested overrides. A request without any truthy entry keeps the defaults
// as baseline; otherwise the request replaces them.
func Resolve(requested Request, defaults, force, exclude []types.Attr) Set {
	set := make(Set)

	if !requested.hasTruthy() {
		excluded := make(map[types.Attr]bool, len(exclude))
		for _, a := range exclude {
			excluded[a] = true
		}
		for _, a := range defaults {
			if !excluded[a] {
				set[a] = Options{}
			}
		}
	}

	for _, a := range force {
		set[a] = Options{}
	}

	for a, v := range requested {
		if !a.Valid() {
			continue
		}
		if !v.Include {
			delete(set, a)
			continue
		}
		set[a] = v.Options
	}

	return set
}

// Wants reports whether name was asked for and returns its configuration
func Wants(name types.Attr, set Set) (Options, bool) {
	opts, ok := set[name]
	return opts, ok
}

// WantsAny reports whether any of names was asked for
func WantsAny(set Set, names ...types.Attr) bool {
	for _, n := range names {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}

func (r Request) hasTruthy() bool {
	for a, v := range r {
		if v.Include && a.Valid() {
			return true
		}
	}
	return false
}

// ParseRequest converts a decoded JSON attribute map into a Request.
// true, arrays and objects include (an empty one with default options);
// false and null drop.
func ParseRequest(raw map[string]any) Request {
	req := make(Request, len(raw))
	for k, v := range raw {
		a := types.Attr(k)
		if !a.Valid() {
			continue
		}
		req[a] = parseValue(v)
	}
	return req
}

func parseValue(v any) Value {
	switch val := v.(type) {
	case bool:
		return Value{Include: val}
	case []any:
		return Value{Include: true}
	case map[string]any:
		return Value{Include: true, Options: Options{Length: parseLength(val["length"])}}
	case string:
		return Value{Include: val != ""}
	case float64:
		return Value{Include: val != 0}
	default:
		return Value{}
	}
}

func parseLength(v any) uint32 {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return uint32(n)
		}
	case int:
		if n > 0 {
			return uint32(n)
		}
	case string:
		if l, err := strconv.ParseUint(n, 10, 32); err == nil {
			return uint32(l)
		}
	}
	return 0
}
