package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/letterdesk/internal/core"
)

// contextTurns is how many recent turns accompany the message.
const contextTurns = 4

const classifierSystemPrompt = "You are an instruction classification system for a letter-writing assistant. Output only valid JSON."

// LLMClassifier asks the language model whether a user message states a
// lasting preference about how letters should be written.
type LLMClassifier struct {
	ai    core.AIProvider
	store *Store
}

func NewLLMClassifier(ai core.AIProvider, store *Store) *LLMClassifier {
	return &LLMClassifier{ai: ai, store: store}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string, history []core.Turn) (core.InstructionCandidate, error) {
	var active []core.InstructionRecord
	if c.store != nil {
		active = c.store.List(QueryParams{})
	}

	resp, err := c.ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: classifierSystemPrompt},
		{Role: core.RoleUser, Content: buildClassificationPrompt(message, history, active)},
	})
	if err != nil {
		return core.InstructionCandidate{}, fmt.Errorf("llm chat: %w", err)
	}

	return parseClassification(resp.Content)
}

func buildClassificationPrompt(message string, history []core.Turn, active []core.InstructionRecord) string {
	var b strings.Builder

	b.WriteString(`Decide whether the user's latest message contains an instruction about how their letters should be written from now on.
Respond with one JSON object:
{"has_instruction": bool, "instruction_type": "style|format|content|preference", "instruction_text": string, "priority": 1-5, "scope": "all|category_specific|one_time", "category": string, "replaces_instruction": string}
Rules:
1. Requests that only edit the current letter once are not instructions; set has_instruction to false.
2. instruction_text must be self-contained and phrased as a rule.
3. Use scope one_time for "just this time" requests, category_specific when the user names a kind of letter.
4. If the message overrides one of the existing instructions below, put its id in replaces_instruction.
`)

	if len(active) > 0 {
		b.WriteString("\nExisting instructions:\n")
		for _, r := range active {
			fmt.Fprintf(&b, "- id=%s type=%s scope=%s: %s\n", r.ID, r.Type, r.Scope, r.Text)
		}
	}

	if len(history) > contextTurns {
		history = history[len(history)-contextTurns:]
	}
	if len(history) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, t := range history {
			b.WriteString(strings.ToUpper(t.Role))
			b.WriteString(": ")
			b.WriteString(t.Content)
			b.WriteByte('\n')
		}
	}

	b.WriteString("\nLatest message: ")
	b.WriteString(message)
	return b.String()
}

func parseClassification(content string) (core.InstructionCandidate, error) {
	jsonStr := extractJSONObject(content)
	if jsonStr == "" {
		return core.InstructionCandidate{}, fmt.Errorf("no JSON object found in response")
	}

	var c core.InstructionCandidate
	if err := json.Unmarshal([]byte(jsonStr), &c); err != nil {
		return core.InstructionCandidate{}, fmt.Errorf("unmarshal classification: %w", err)
	}
	c.Type = core.InstructionType(strings.ToLower(strings.TrimSpace(string(c.Type))))
	c.Scope = core.InstructionScope(strings.ToLower(strings.TrimSpace(string(c.Scope))))
	c.Text = strings.TrimSpace(c.Text)
	return c, nil
}

func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content[start:], "}")
	if end == -1 {
		return ""
	}

	return content[start : start+end+1]
}
