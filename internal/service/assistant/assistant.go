// Package assistant drives letter conversations: it keeps the session window
// current, feeds user messages to instruction extraction and injects the
// remembered instructions into every model call.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/internal/service/memory"
	"github.com/sandevgo/letterdesk/internal/service/session"
	"github.com/sandevgo/letterdesk/pkg/log"
)

type Extractor interface {
	Submit(job memory.Job) bool
}

type InstructionFormatter interface {
	Format(ctx context.Context, category, sessionID string) string
}

type Assistant struct {
	sessions  *session.Store
	ai        core.AIProvider
	formatter InstructionFormatter
	extractor Extractor
	prompts   *SysPrompt
}

func NewAssistant(
	sessions *session.Store,
	ai core.AIProvider,
	formatter InstructionFormatter,
	extractor Extractor,
	prompts *SysPrompt,
) *Assistant {
	return &Assistant{
		sessions:  sessions,
		ai:        ai,
		formatter: formatter,
		extractor: extractor,
		prompts:   prompts,
	}
}

// StartSession opens a session, optionally seeded with the letter to work on.
func (a *Assistant) StartSession(ctx context.Context, letter string) (string, error) {
	id, err := a.sessions.Create(letter)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	log.FromCtx(ctx).Info().
		Str("session_id", id).
		Bool("has_letter", letter != "").
		Msg("session started")
	return id, nil
}

// Ask answers a question about the session's letter.
func (a *Assistant) Ask(ctx context.Context, sessionID, question, category string) (string, error) {
	s, err := a.sessions.TouchAndGet(sessionID)
	if err != nil {
		return "", err
	}
	prior, err := a.record(ctx, s, question)
	if err != nil {
		return "", err
	}

	messages := a.prompts.Ask(s.Document(), a.formatter.Format(ctx, category, sessionID))
	reply, err := a.complete(ctx, messages, prior, question)
	if err != nil {
		return "", err
	}

	if err := s.Append(core.RoleAssistant, reply); err != nil {
		return "", err
	}
	return reply, nil
}

// Edit rewrites the session's letter according to feedback and returns the
// new version, which also becomes the session's current letter.
func (a *Assistant) Edit(ctx context.Context, sessionID, feedback, category string) (string, error) {
	s, err := a.sessions.TouchAndGet(sessionID)
	if err != nil {
		return "", err
	}
	document := s.Document()
	if document == "" {
		return "", fmt.Errorf("%w: session has no letter to edit", core.ErrValidation)
	}

	prior, err := a.record(ctx, s, feedback)
	if err != nil {
		return "", err
	}

	messages := a.prompts.Edit(document, a.formatter.Format(ctx, category, sessionID))
	revised, err := a.complete(ctx, messages, prior, "Feedback: "+feedback)
	if err != nil {
		return "", err
	}

	if err := s.SetDocument(revised); err != nil {
		return "", err
	}
	if err := s.Append(core.RoleAssistant, revised); err != nil {
		return "", err
	}
	log.FromCtx(ctx).Debug().Str("session_id", sessionID).Int("length", len(revised)).Msg("letter revised")
	return revised, nil
}

// Clear ends the session. One-time instructions go with it.
func (a *Assistant) Clear(ctx context.Context, sessionID string) {
	a.sessions.Delete(ctx, sessionID)
}

func (a *Assistant) Info(sessionID string) (core.SessionInfo, error) {
	return a.sessions.Info(sessionID)
}

// record appends the user turn and hands the message to extraction. It
// returns the turns that preceded the new one.
func (a *Assistant) record(ctx context.Context, s *session.Session, text string) ([]core.Turn, error) {
	prior := s.Turns()
	if err := s.Append(core.RoleUser, text); err != nil {
		return nil, err
	}

	if a.extractor != nil && !a.extractor.Submit(memory.Job{SessionID: s.ID(), Message: text, History: prior}) {
		log.FromCtx(ctx).Warn().Str("session_id", s.ID()).Msg("extraction queue full, message skipped")
	}
	return prior, nil
}

func (a *Assistant) complete(ctx context.Context, system []core.Message, prior []core.Turn, input string) (string, error) {
	messages := make([]core.Message, 0, len(system)+len(prior)+1)
	messages = append(messages, system...)
	for _, t := range prior {
		messages = append(messages, core.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, core.Message{Role: core.RoleUser, Content: input})

	reply, err := a.ai.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("ai chat error: %w", err)
	}

	content := strings.TrimSpace(reply.Content)
	if content == "" {
		return "", errors.New("ai chat error: empty reply")
	}
	return content, nil
}

// Letter returns the session's current letter without touching the session.
func (a *Assistant) Letter(sessionID string) (string, error) {
	return a.sessions.Document(sessionID)
}
