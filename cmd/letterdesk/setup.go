package main

import (
	"context"
	"io"

	"github.com/sandevgo/letterdesk/internal/config"
	"github.com/sandevgo/letterdesk/internal/providers/llm"
	"github.com/sandevgo/letterdesk/internal/service/assistant"
	"github.com/sandevgo/letterdesk/internal/service/memory"
	"github.com/sandevgo/letterdesk/internal/service/session"
	"github.com/sandevgo/letterdesk/internal/storage/sqlite"
	"github.com/sandevgo/letterdesk/internal/transport/cli"
	"github.com/sandevgo/letterdesk/pkg/log"
	"github.com/sandevgo/letterdesk/pkg/srv"
)

// NewServices wires the app. Services are returned in start order and shut
// down in reverse, so the chat stops before extraction, and extraction
// before the final instruction flush and the database close.
func NewServices(ctx context.Context, appCfg *config.AppConfig, in io.Reader, out io.Writer) (*cli.Chat, []srv.Service) {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// 1. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))
	repo := sqlite.NewInstructionRepo(db)

	// 2. Instruction memory; a failed load leaves it empty but usable
	instructions := memory.NewStore()
	_ = instructions.Load(ctx, repo)
	services = append(services, memory.NewPersister(instructions, repo))

	// 3. AI Provider
	aiProvider, err := llm.NewProvider(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	// 4. Extraction
	dispatcher := memory.NewDispatcher(
		memory.NewLLMClassifier(aiProvider, instructions),
		instructions,
		appCfg.ExtractionWorkers,
		appCfg.ExtractionQueueSize,
		appCfg.ExtractionTimeout(),
	)
	services = append(services, dispatcher)

	// 5. Sessions
	sessions := session.NewStore(appCfg.MemoryWindowSize)
	// extraction may finish after its session is gone
	instructions.SessionAlive = sessions.Alive
	sessions.OnEvict(func(ctx context.Context, sessionID string, reason session.EvictReason) {
		removed := instructions.RemoveSessionMemories(ctx, sessionID)
		log.FromCtx(ctx).Debug().
			Str("session_id", sessionID).
			Str("reason", string(reason)).
			Int("one_time_removed", removed).
			Msg("session evicted")
	})
	services = append(services, session.NewSweeper(sessions, appCfg.CleanupInterval(), appCfg.SessionTimeout()))

	// 6. Assistant
	ast := assistant.NewAssistant(
		sessions,
		aiProvider,
		memory.NewFormatter(instructions, appCfg.MaxInstructionsPerQuery),
		dispatcher,
		assistant.NewSysPrompt(appCfg),
	)

	// 7. Transport
	chat := cli.NewChat(ast, instructions, in, out)
	services = append(services, chat)

	return chat, services
}
