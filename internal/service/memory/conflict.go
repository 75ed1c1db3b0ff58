package memory

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sandevgo/letterdesk/internal/core"
)

// conflictKey groups records that compete for the same slot. One-time
// records only compete within their own session.
type conflictKey struct {
	scope     core.InstructionScope
	category  string
	typ       core.InstructionType
	sessionID string
}

func keyOf(r *core.InstructionRecord) conflictKey {
	k := conflictKey{scope: r.Scope, category: r.Category, typ: r.Type}
	if r.Scope == core.ScopeOneTime {
		k.sessionID = r.SessionID
	}
	return k
}

type indexKey struct {
	scope    core.InstructionScope
	category string
}

func indexKeyOf(r *core.InstructionRecord) indexKey {
	return indexKey{scope: r.Scope, category: r.Category}
}

func normalizeCategory(scope core.InstructionScope, category string) string {
	if scope == core.ScopeAll {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(category))
}

// normalizeText folds case, whitespace and trailing punctuation so that
// "Keep it short." and "keep it  short" compare equal.
func normalizeText(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRightFunc(s, unicode.IsPunct)
}

// outranks reports whether a beats b: higher priority first, then the more
// recent record. ULIDs break exact timestamp ties.
func outranks(a, b *core.InstructionRecord) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// checkReplaceChain walks the Replaces links starting at id and fails if
// the chain loops back on itself.
func checkReplaceChain(records map[string]*core.InstructionRecord, id string) error {
	visited := make(map[string]struct{})
	for cur := id; cur != ""; {
		if _, seen := visited[cur]; seen {
			return fmt.Errorf("%w: %s revisits %s", core.ErrReplaceCycle, id, cur)
		}
		visited[cur] = struct{}{}

		r, ok := records[cur]
		if !ok {
			return nil
		}
		cur = r.Replaces
	}
	return nil
}
