package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/letterdesk/internal/core"
)

const DefaultMaxInstructions = 10

var typeTitles = map[core.InstructionType]string{
	core.InstructionStyle:      "Style",
	core.InstructionFormat:     "Format",
	core.InstructionContent:    "Content",
	core.InstructionPreference: "Preferences",
}

// Formatter renders the applicable instructions as a prompt section.
type Formatter struct {
	store *Store
	Max   int
}

func NewFormatter(store *Store, max int) *Formatter {
	if max <= 0 {
		max = DefaultMaxInstructions
	}
	return &Formatter{store: store, Max: max}
}

// Format returns an empty string when nothing applies.
func (f *Formatter) Format(ctx context.Context, category, sessionID string) string {
	records := f.store.Query(ctx, QueryParams{
		Category:  category,
		SessionID: sessionID,
		Limit:     f.Max,
	})
	return render(records)
}

func render(records []core.InstructionRecord) string {
	if len(records) == 0 {
		return ""
	}

	grouped := make(map[core.InstructionType][]core.InstructionRecord, len(core.InstructionTypes))
	for _, r := range records {
		grouped[r.Type] = append(grouped[r.Type], r)
	}

	var sb strings.Builder
	sb.WriteString("## User Instructions\n")
	sb.WriteString("Follow these preferences from earlier conversations:\n")

	for _, typ := range core.InstructionTypes {
		group := grouped[typ]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n### %s\n", typeTitles[typ])
		for _, r := range group {
			fmt.Fprintf(&sb, "- %s%s (priority %d)\n", r.Text, scopeNote(r), r.Priority)
		}
	}
	return sb.String()
}

func scopeNote(r core.InstructionRecord) string {
	switch r.Scope {
	case core.ScopeCategorySpecific:
		return fmt.Sprintf(" [%s letters]", r.Category)
	case core.ScopeOneTime:
		return " [this session]"
	}
	return ""
}
