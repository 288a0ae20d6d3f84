package console_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingassistant/assistant/internal/agents"
	"github.com/codingassistant/assistant/internal/chat"
	"github.com/codingassistant/assistant/internal/console"
	"github.com/codingassistant/assistant/internal/executor"
	"github.com/codingassistant/assistant/internal/filesink"
	"github.com/codingassistant/assistant/internal/router/routertest"
	"github.com/codingassistant/assistant/internal/sessions"
	"github.com/codingassistant/assistant/internal/tools"
)

type scriptedInput struct {
	lines []string
	err   error // returned once lines run out; io.EOF when nil
}

func (s *scriptedInput) Readline() (string, error) {
	if len(s.lines) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) Close() error { return nil }

type upperRenderer struct{}

func (upperRenderer) Render(md string) (string, error) { return strings.ToUpper(md) + "\n", nil }

func newChat(t *testing.T, steps ...routertest.Step) *chat.Service {
	t.Helper()
	team, err := agents.Build(agents.VariantFull, tools.NewBuiltinRegistry(filesink.NewSink(t.TempDir())))
	require.NoError(t, err)
	runner := executor.NewRunner(routertest.NewRouter(routertest.New(steps...)), 0)
	return chat.NewService(sessions.NewMemorySessionStore(), runner, team, 0)
}

func TestRun_WelcomeRepliesAndExit(t *testing.T) {
	svc := newChat(t, routertest.Text("Hello from the coordinator."))
	in := &scriptedInput{lines: []string{"hi", "   ", "/exit", "never sent"}}
	var out bytes.Buffer

	require.NoError(t, console.New(svc, in, &out, nil).Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, chat.WelcomeText)
	assert.Contains(t, text, "Hello from the coordinator.")
	assert.Contains(t, text, "Goodbye")
	assert.Len(t, in.lines, 1, "input after /exit is not read")

	list, err := svc.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "the session ends with the console")
}

func TestRun_EOFEndsSession(t *testing.T) {
	svc := newChat(t)
	var out bytes.Buffer

	require.NoError(t, console.New(svc, &scriptedInput{}, &out, nil).Run(context.Background()))
	assert.Contains(t, out.String(), "Goodbye")
}

func TestRun_InterruptOnEmptyLineExits(t *testing.T) {
	svc := newChat(t)
	var out bytes.Buffer

	in := &scriptedInput{err: readline.ErrInterrupt}
	require.NoError(t, console.New(svc, in, &out, nil).Run(context.Background()))
	assert.Contains(t, out.String(), "Goodbye")
}

func TestRun_RendersMarkdown(t *testing.T) {
	svc := newChat(t, routertest.Text("**done**"))
	var out bytes.Buffer

	in := &scriptedInput{lines: []string{"hello", "/quit"}}
	require.NoError(t, console.New(svc, in, &out, upperRenderer{}).Run(context.Background()))
	assert.Contains(t, out.String(), "**DONE**")
}

func TestRun_ModelErrorPrintedVerbatim(t *testing.T) {
	svc := newChat(t) // empty script: the model call fails
	var out bytes.Buffer

	in := &scriptedInput{lines: []string{"hello"}}
	require.NoError(t, console.New(svc, in, &out, upperRenderer{}).Run(context.Background()))
	assert.Contains(t, out.String(), "Error: ")
}
