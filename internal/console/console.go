// Package console is the terminal front-end: a read-eval-print loop over the
// same chat turn loop the HTTP API uses.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"

	"github.com/codingassistant/assistant/internal/chat"
	"github.com/codingassistant/assistant/pkg/models"
)

// Prompt is shown before each user line.
const Prompt = "you> "

// LineReader yields user input one line at a time. *readline.Instance
// satisfies it.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Renderer turns Markdown into terminal output. *glamour.TermRenderer
// satisfies it.
type Renderer interface {
	Render(markdown string) (string, error)
}

// NewReadline opens an interactive line reader on the terminal.
func NewReadline(historyFile string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
	})
}

// NewMarkdownRenderer creates a glamour renderer that picks a style for the
// terminal background.
func NewMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r, nil
}

// Console runs one chat session in the terminal.
type Console struct {
	chat   *chat.Service
	in     LineReader
	out    io.Writer
	render Renderer
}

// New creates a console. A nil renderer prints replies verbatim.
func New(svc *chat.Service, in LineReader, out io.Writer, render Renderer) *Console {
	return &Console{chat: svc, in: in, out: out, render: render}
}

// Run starts a session, prints the welcome and serves turns until /exit,
// /quit, end of input or ctx is done. The session is ended on return.
func (c *Console) Run(ctx context.Context) error {
	sess, welcome, err := c.chat.StartSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.chat.EndSession(context.Background(), sess.ID); err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("Failed to end session")
		}
	}()

	c.print(welcome)

	for ctx.Err() == nil {
		line, err := c.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isExit(line) {
			break
		}

		resp, err := c.chat.HandleMessage(ctx, sess.ID, line)
		if err != nil {
			return err
		}
		if resp.Status == models.TurnError {
			fmt.Fprintln(c.out, resp.Content)
			continue
		}
		c.print(resp.Content)
	}

	fmt.Fprintln(c.out, "👋 Goodbye!")
	return nil
}

func (c *Console) print(markdown string) {
	if c.render != nil {
		if styled, err := c.render.Render(markdown); err == nil {
			fmt.Fprint(c.out, styled)
			return
		}
	}
	fmt.Fprintln(c.out, markdown)
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "/exit", "/quit":
		return true
	}
	return false
}
