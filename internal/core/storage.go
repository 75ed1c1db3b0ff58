package core

import "context"

// InstructionRepository is the durable backing for instruction memory.
// Save replaces the whole durable set.
type InstructionRepository interface {
	Load(ctx context.Context) ([]InstructionRecord, error)
	Save(ctx context.Context, records []InstructionRecord) error
}
