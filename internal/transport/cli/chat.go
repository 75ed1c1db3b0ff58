// Package cli is a line-oriented chat transport over a reader and a writer,
// normally stdin and stdout.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sandevgo/letterdesk/internal/core"
	"github.com/sandevgo/letterdesk/internal/service/memory"
	"github.com/sandevgo/letterdesk/pkg/log"
)

const helpText = `Commands:
  /edit <feedback>    rewrite the letter
  /letter             print the current letter
  /category <name>    set the letter category (empty to clear)
  /info               show session details
  /instructions       list remembered instructions
  /clear              end this session and start a new one
  exit                quit
Anything else is sent as a question.`

type Assistant interface {
	StartSession(ctx context.Context, letter string) (string, error)
	Ask(ctx context.Context, sessionID, question, category string) (string, error)
	Edit(ctx context.Context, sessionID, feedback, category string) (string, error)
	Letter(sessionID string) (string, error)
	Clear(ctx context.Context, sessionID string)
	Info(sessionID string) (core.SessionInfo, error)
}

type InstructionLister interface {
	List(p memory.QueryParams) []core.InstructionRecord
}

type Chat struct {
	assistant    Assistant
	instructions InstructionLister
	in           io.Reader
	out          io.Writer

	// Letter seeds the first session.
	Letter   string
	Category string
	// OnExit runs when the user quits or input ends.
	OnExit func()

	sessionID string
}

func NewChat(assistant Assistant, instructions InstructionLister, in io.Reader, out io.Writer) *Chat {
	return &Chat{
		assistant:    assistant,
		instructions: instructions,
		in:           in,
		out:          out,
	}
}

func (c *Chat) Start(ctx context.Context) error {
	if c.OnExit != nil {
		defer c.OnExit()
	}

	logger := log.FromCtx(ctx)

	if err := c.newSession(ctx, c.Letter); err != nil {
		return err
	}
	logger.Info().Str("session_id", c.sessionID).Msg("chat started. Type 'exit' to quit.")
	fmt.Fprintln(c.out, "Type /help for commands.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(c.out, ">>> ")

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		if err := c.handle(ctx, line); err != nil {
			if errors.Is(err, core.ErrSessionNotFound) {
				fmt.Fprintln(c.out, "Session expired, starting a new one.")
				if err := c.newSession(ctx, ""); err != nil {
					return err
				}
				continue
			}
			logger.Error().Err(err).Msg("chat request failed")
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
}

func (c *Chat) Shutdown(ctx context.Context) error {
	return nil
}

func (c *Chat) handle(ctx context.Context, line string) error {
	cmd, arg := line, ""
	if i := strings.IndexByte(line, ' '); i > 0 {
		cmd, arg = line[:i], strings.TrimSpace(line[i+1:])
	}

	switch cmd {
	case "/help":
		fmt.Fprintln(c.out, helpText)
	case "/edit":
		if arg == "" {
			fmt.Fprintln(c.out, "Usage: /edit <feedback>")
			return nil
		}
		revised, err := c.assistant.Edit(ctx, c.sessionID, arg, c.Category)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, revised)
	case "/letter":
		letter, err := c.assistant.Letter(c.sessionID)
		if err != nil {
			return err
		}
		if letter == "" {
			fmt.Fprintln(c.out, "No letter yet.")
			return nil
		}
		fmt.Fprintln(c.out, letter)
	case "/category":
		c.Category = arg
		fmt.Fprintf(c.out, "Category: %q\n", c.Category)
	case "/info":
		info, err := c.assistant.Info(c.sessionID)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Session %s\n  created:  %s\n  active:   %s\n  turns:    %d\n  letter:   %t\n",
			info.ID,
			info.CreatedAt.Format("15:04:05"),
			info.LastActivity.Format("15:04:05"),
			info.ConversationLength,
			info.HasOriginalLetter,
		)
	case "/instructions":
		c.printInstructions()
	case "/clear":
		c.assistant.Clear(ctx, c.sessionID)
		return c.newSession(ctx, "")
	default:
		reply, err := c.assistant.Ask(ctx, c.sessionID, line, c.Category)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, reply)
	}
	return nil
}

func (c *Chat) newSession(ctx context.Context, letter string) error {
	id, err := c.assistant.StartSession(ctx, letter)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	c.sessionID = id
	fmt.Fprintf(c.out, "Session %s\n", id)
	return nil
}

func (c *Chat) printInstructions() {
	records := c.instructions.List(memory.QueryParams{Category: c.Category, SessionID: c.sessionID})
	if len(records) == 0 {
		fmt.Fprintln(c.out, "No instructions remembered yet.")
		return
	}
	for _, r := range records {
		fmt.Fprintf(c.out, "[%s] %-10s p%d %-17s %s\n", r.ID, r.Type, r.Priority, r.Scope, r.Text)
	}
}
