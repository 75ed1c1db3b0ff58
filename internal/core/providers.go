package core

import "context"

type AIProvider interface {
	Chat(ctx context.Context, history []Message) (Message, error)
}

// InstructionClassifier decides whether a user message carries a reusable
// instruction. Implementations may block on network I/O.
type InstructionClassifier interface {
	Classify(ctx context.Context, message string, history []Turn) (InstructionCandidate, error)
}
