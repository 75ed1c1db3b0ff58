package assistant

import (
	"os"
	"strings"

	"github.com/sandevgo/letterdesk/internal/core"
)

const defaultAskPrompt = `You are a helpful assistant for writing letters.
Answer the user's questions about their letter clearly and concisely.
When the user asks for wording, give text they can paste directly.`

const defaultEditPrompt = `You are an expert letter editor.
Rewrite the current letter according to the user's feedback.
Return only the full revised letter, with no commentary before or after it.`

// SysPrompt builds the system messages for a request. Files under the
// runtime prompts directory override the built-in prompts.
type SysPrompt struct {
	cfg core.PromptConfig
}

func NewSysPrompt(cfg core.PromptConfig) *SysPrompt {
	return &SysPrompt{cfg: cfg}
}

func (p *SysPrompt) Ask(document, instructions string) []core.Message {
	return p.build(readPrompt(p.cfg.GetAskPromptPath(), defaultAskPrompt), document, instructions)
}

func (p *SysPrompt) Edit(document, instructions string) []core.Message {
	return p.build(readPrompt(p.cfg.GetEditPromptPath(), defaultEditPrompt), document, instructions)
}

func (p *SysPrompt) build(base, document, instructions string) []core.Message {
	messages := []core.Message{{Role: core.RoleSystem, Content: base}}
	if document != "" {
		messages = append(messages, core.Message{Role: core.RoleSystem, Content: "CURRENT LETTER:\n" + document})
	}
	if instructions != "" {
		messages = append(messages, core.Message{Role: core.RoleSystem, Content: instructions})
	}
	return messages
}

func readPrompt(path, fallback string) string {
	if path == "" {
		return fallback
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	if text := strings.TrimSpace(string(content)); text != "" {
		return text
	}
	return fallback
}
