// Package filter compiles declarative list filters into IMAP search criteria.
package filter

import (
	"math"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
)

// Clause is one {property, operator, value} filter entry
type Clause struct {
	Property string `json:"property"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// Compile turns clauses into a single OR-combined search expression.
// Unrecognized clauses are ignored; no match yields the match-all criteria.
func Compile(clauses []Clause) *imap.SearchCriteria {
	var exprs []*imap.SearchCriteria
	for _, c := range clauses {
		if expr := compileClause(c); expr != nil {
			exprs = append(exprs, expr)
		}
	}

	if len(exprs) == 0 {
		return imap.NewSearchCriteria()
	}
	return or(exprs)
}

func or(exprs []*imap.SearchCriteria) *imap.SearchCriteria {
	if len(exprs) == 1 {
		return exprs[0]
	}
	criteria := imap.NewSearchCriteria()
	criteria.Or = [][2]*imap.SearchCriteria{{exprs[0], or(exprs[1:])}}
	return criteria
}

func compileClause(c Clause) *imap.SearchCriteria {
	switch c.Property {
	case "id":
		return compileID(c)
	case "recent":
		if c.Operator == "=" && c.Value == true {
			criteria := imap.NewSearchCriteria()
			criteria.WithFlags = []string{imap.RecentFlag}
			return criteria
		}
	}
	return nil
}

func compileID(c Clause) *imap.SearchCriteria {
	switch strings.ToLower(c.Operator) {
	case ">=":
		uid, ok := toUID(c.Value)
		if !ok {
			return nil
		}
		set := new(imap.SeqSet)
		set.AddRange(uid, 0)
		criteria := imap.NewSearchCriteria()
		criteria.Uid = set
		return criteria
	case "in":
		vals := toSlice(c.Value)
		if vals == nil {
			return nil
		}
		set := new(imap.SeqSet)
		for _, v := range vals {
			if uid, ok := toUID(v); ok {
				set.AddNum(uid)
			}
		}
		if set.Empty() {
			return matchNone()
		}
		criteria := imap.NewSearchCriteria()
		criteria.Uid = set
		return criteria
	}
	return nil
}

func toSlice(v any) []any {
	switch vals := v.(type) {
	case []any:
		return vals
	case []string:
		out := make([]any, len(vals))
		for i, s := range vals {
			out[i] = s
		}
		return out
	case []uint32:
		out := make([]any, len(vals))
		for i, n := range vals {
			out[i] = n
		}
		return out
	case []int:
		out := make([]any, len(vals))
		for i, n := range vals {
			out[i] = n
		}
		return out
	}
	return nil
}

// matchNone matches no message: NOT ALL
func matchNone() *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	criteria.Not = []*imap.SearchCriteria{imap.NewSearchCriteria()}
	return criteria
}

func toUID(v any) (uint32, bool) {
	switch n := v.(type) {
	case uint32:
		return n, n > 0
	case int:
		return uint32(n), n > 0 && uint64(n) <= math.MaxUint32
	case int64:
		return uint32(n), n > 0 && n <= math.MaxUint32
	case float64:
		return uint32(n), n >= 1 && n <= math.MaxUint32
	case string:
		uid, err := strconv.ParseUint(strings.TrimSpace(n), 10, 32)
		return uint32(uid), err == nil && uid > 0
	}
	return 0, false
}

// Render formats the criteria as the arguments of a SEARCH command
func Render(criteria *imap.SearchCriteria) string {
	var b strings.Builder
	w := imap.NewWriter(&b)
	cmd := &imap.Command{Tag: "*", Name: "SEARCH", Arguments: criteria.Format()}
	if err := cmd.WriteTo(w); err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(b.String(), "* SEARCH "), "\r\n")
}
