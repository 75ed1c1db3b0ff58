package core

import (
	"fmt"
	"strings"
	"time"
)

type InstructionType string

const (
	InstructionStyle      InstructionType = "style"
	InstructionFormat     InstructionType = "format"
	InstructionContent    InstructionType = "content"
	InstructionPreference InstructionType = "preference"
)

// InstructionTypes lists every type in rendering order.
var InstructionTypes = []InstructionType{
	InstructionStyle,
	InstructionFormat,
	InstructionContent,
	InstructionPreference,
}

func (t InstructionType) IsValid() bool {
	for _, v := range InstructionTypes {
		if t == v {
			return true
		}
	}
	return false
}

type InstructionScope string

const (
	ScopeAll              InstructionScope = "all"
	ScopeCategorySpecific InstructionScope = "category_specific"
	ScopeOneTime          InstructionScope = "one_time"
)

func (s InstructionScope) IsValid() bool {
	switch s {
	case ScopeAll, ScopeCategorySpecific, ScopeOneTime:
		return true
	}
	return false
}

const (
	MinPriority = 1
	MaxPriority = 5
)

// InstructionCandidate is what a classifier returns for a single message.
type InstructionCandidate struct {
	HasInstruction      bool             `json:"has_instruction"`
	Type                InstructionType  `json:"instruction_type"`
	Text                string           `json:"instruction_text"`
	Priority            int              `json:"priority"`
	Scope               InstructionScope `json:"scope"`
	Category            string           `json:"category,omitempty"`
	ReplacesInstruction string           `json:"replaces_instruction,omitempty"`
}

// Validate reports why a candidate cannot become a record.
func (c InstructionCandidate) Validate() error {
	switch {
	case !c.HasInstruction:
		return fmt.Errorf("%w: no instruction", ErrRejected)
	case strings.TrimSpace(c.Text) == "":
		return fmt.Errorf("%w: empty instruction text", ErrRejected)
	case !c.Type.IsValid():
		return fmt.Errorf("%w: unknown type %q", ErrRejected, c.Type)
	case c.Priority < MinPriority || c.Priority > MaxPriority:
		return fmt.Errorf("%w: priority %d out of range", ErrRejected, c.Priority)
	case !c.Scope.IsValid():
		return fmt.Errorf("%w: unknown scope %q", ErrRejected, c.Scope)
	case c.Scope == ScopeCategorySpecific && strings.TrimSpace(c.Category) == "":
		return fmt.Errorf("%w: category_specific scope without category", ErrRejected)
	}
	return nil
}

// InstructionRecord is a stored user preference.
type InstructionRecord struct {
	ID            string           `json:"id"`
	Text          string           `json:"instruction_text"`
	Type          InstructionType  `json:"instruction_type"`
	Priority      int              `json:"priority"`
	Scope         InstructionScope `json:"scope"`
	Category      string           `json:"category,omitempty"`
	SessionID     string           `json:"session_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	LastUsed      *time.Time       `json:"last_used,omitempty"`
	UsageCount    int              `json:"usage_count"`
	Active        bool             `json:"is_active"`
	SourceMessage string           `json:"source_message,omitempty"`
	Replaces      string           `json:"replaces,omitempty"`
}

// UpsertResult describes the outcome of storing a candidate.
type UpsertResult struct {
	ID string
	// Active is false when the new record lost conflict resolution.
	Active bool
	// Duplicate is true when an equivalent active record already existed;
	// ID then names that record.
	Duplicate   bool
	Deactivated []string
}

type InstructionStats struct {
	Total      int                      `json:"total"`
	Active     int                      `json:"active"`
	PerSession map[string]int           `json:"per_session_count"`
	ByType     map[InstructionType]int  `json:"counts_by_type"`
	ByScope    map[InstructionScope]int `json:"counts_by_scope"`
}
