package chat_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codingassistant/assistant/internal/agents"
	"github.com/codingassistant/assistant/internal/chat"
	"github.com/codingassistant/assistant/internal/executor"
	"github.com/codingassistant/assistant/internal/filesink"
	"github.com/codingassistant/assistant/internal/router/routertest"
	"github.com/codingassistant/assistant/internal/sessions"
	"github.com/codingassistant/assistant/internal/tools"
	"github.com/codingassistant/assistant/pkg/models"
)

func newService(t *testing.T, variant agents.Variant, model executor.Completer, timeout time.Duration) (*chat.Service, string) {
	t.Helper()
	root := t.TempDir()
	team, err := agents.Build(variant, tools.NewBuiltinRegistry(filesink.NewSink(root)))
	require.NoError(t, err)
	svc := chat.NewService(sessions.NewMemorySessionStore(), executor.NewRunner(model, 0), team, timeout)
	return svc, root
}

func scripted(steps ...routertest.Step) executor.Completer {
	return routertest.NewRouter(routertest.New(steps...))
}

// blockingModel never answers before the context ends.
type blockingModel struct{}

func (blockingModel) Complete(ctx context.Context, _ *models.CompletionRequest) (*models.CompletionResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStartSession(t *testing.T) {
	svc, _ := newService(t, agents.VariantFull, scripted(), 0)

	sess, welcome, err := svc.StartSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, chat.WelcomeText, welcome)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "full", sess.Variant)

	got, err := svc.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages, "the welcome is not part of the history")
}

func TestHandleMessage_AppendsTwoTurns(t *testing.T) {
	svc, _ := newService(t, agents.VariantFull, scripted(
		routertest.Text("Hi there."),
		routertest.Text("Still here."),
	), 0)
	ctx := context.Background()
	sess, _, err := svc.StartSession(ctx)
	require.NoError(t, err)

	for i, msg := range []string{"hello", "anyone there?"} {
		resp, err := svc.HandleMessage(ctx, sess.ID, msg)
		require.NoError(t, err)
		assert.Equal(t, models.TurnOK, resp.Status)
		assert.Equal(t, i+1, resp.TurnNumber)

		got, err := svc.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 2*(i+1))
		assert.Equal(t, models.RoleUser, got.Messages[2*i].Role)
		assert.Equal(t, msg, got.Messages[2*i].Content)
		assert.Equal(t, models.RoleAssistant, got.Messages[2*i+1].Role)
		assert.Equal(t, resp.Content, got.Messages[2*i+1].Content)
	}
}

func TestHandleMessage_ToolTurnsNotPersisted(t *testing.T) {
	svc, root := newService(t, agents.VariantFull, scripted(
		routertest.CallTool(tools.GenerateCodeFile, `{"language":"python","filename":"hello","code":"print('hi')"}`),
		routertest.Text("✅ Code saved to 'GeneratedCode/python/hello.py'."),
	), 0)
	ctx := context.Background()
	sess, _, _ := svc.StartSession(ctx)

	resp, err := svc.HandleMessage(ctx, sess.ID, "/code save a hello world script in python")
	require.NoError(t, err)

	assert.Equal(t, agents.GeneratingName, resp.Agent)
	assert.Equal(t, models.RouteSourceCommand, resp.Route.Source)
	assert.Equal(t, agents.GeneratingName, resp.Route.DelegateTo)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, filepath.Join(root, "GeneratedCode", "python", "hello.py"), resp.ToolCalls[0].FilePath)

	got, _ := svc.GetSession(ctx, sess.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "save a hello world script in python", got.Messages[0].Content)
	assert.Equal(t, agents.GeneratingName, got.Messages[1].Agent)
}

func TestHandleMessage_ModelErrorLeavesHistory(t *testing.T) {
	svc, _ := newService(t, agents.VariantFull, scripted(
		routertest.Text("first answer"),
		routertest.Fail(errors.New("quota exceeded")),
	), 0)
	ctx := context.Background()
	sess, _, _ := svc.StartSession(ctx)

	_, err := svc.HandleMessage(ctx, sess.ID, "hello")
	require.NoError(t, err)

	resp, err := svc.HandleMessage(ctx, sess.ID, "hello again")
	require.NoError(t, err, "model failures are reported, not returned")
	assert.Equal(t, models.TurnError, resp.Status)
	assert.Contains(t, resp.Content, "Error: ")
	assert.Contains(t, resp.Content, "quota exceeded")

	got, _ := svc.GetSession(ctx, sess.ID)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, 1, got.TurnCount)
}

func TestHandleMessage_Timeout(t *testing.T) {
	svc, _ := newService(t, agents.VariantFull, blockingModel{}, 20*time.Millisecond)
	ctx := context.Background()
	sess, _, _ := svc.StartSession(ctx)

	resp, err := svc.HandleMessage(ctx, sess.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, models.TurnError, resp.Status)
	assert.Contains(t, resp.Content, "timed out")

	got, _ := svc.GetSession(ctx, sess.ID)
	assert.Empty(t, got.Messages)
}

func TestHandleMessage_ExplanationNeverWritesCode(t *testing.T) {
	// The model misbehaves and tries to save code for a pure explanation.
	svc, root := newService(t, agents.VariantFull, scripted(
		routertest.CallTool(tools.GenerateCodeFile, `{"language":"python","filename":"closures","code":"def f(): pass"}`),
		routertest.Text("Closures capture variables from their enclosing scope."),
	), 0)
	ctx := context.Background()
	sess, _, _ := svc.StartSession(ctx)

	resp, err := svc.HandleMessage(ctx, sess.ID, "explain how closures work")
	require.NoError(t, err)
	assert.Equal(t, agents.DocumentationName, resp.Agent)
	assert.Equal(t, models.RouteSourceKeywords, resp.Route.Source)
	require.Len(t, resp.ToolCalls, 1)
	assert.True(t, resp.ToolCalls[0].IsError)

	_, err = os.Stat(filepath.Join(root, "GeneratedCode"))
	assert.True(t, os.IsNotExist(err))
}

func TestHandleMessage_MixedLeftToModel(t *testing.T) {
	svc, _ := newService(t, agents.VariantFull, scripted(
		routertest.Text("Which part first?"),
	), 0)
	ctx := context.Background()
	sess, _, _ := svc.StartSession(ctx)

	resp, err := svc.HandleMessage(ctx, sess.ID, "write a python script and explain it")
	require.NoError(t, err)
	assert.Equal(t, "mixed", resp.Route.Intent)
	assert.Equal(t, models.RouteSourceModel, resp.Route.Source)
	assert.Empty(t, resp.Route.DelegateTo)
	assert.Equal(t, agents.CoordinatorName, resp.Agent)
}

func TestHandleMessage_LanguageTopicGoesToCoordinator(t *testing.T) {
	svc, root := newService(t, agents.VariantFull, scripted(
		routertest.Text("Generators yield values lazily."),
	), 0)
	ctx := context.Background()
	sess, _, _ := svc.StartSession(ctx)

	resp, err := svc.HandleMessage(ctx, sess.ID, "Tell me about Python generators")
	require.NoError(t, err)
	assert.Equal(t, "none", resp.Route.Intent)
	assert.Equal(t, models.RouteSourceModel, resp.Route.Source)
	assert.Equal(t, agents.CoordinatorName, resp.Agent)
	assert.Empty(t, resp.ToolCalls)

	_, err = os.Stat(filepath.Join(root, "GeneratedCode"))
	assert.True(t, os.IsNotExist(err))
}

func TestHandleMessage_DocIntentWithoutDocAgent(t *testing.T) {
	svc, _ := newService(t, agents.VariantCode, scripted(
		routertest.Text("Here is an explanation."),
	), 0)
	ctx := context.Background()
	sess, _, _ := svc.StartSession(ctx)

	resp, err := svc.HandleMessage(ctx, sess.ID, "/doc closures")
	require.NoError(t, err)
	assert.Equal(t, agents.CoordinatorName, resp.Agent, "no documentation specialist: the coordinator answers")
}

func TestHandleMessage_Errors(t *testing.T) {
	svc, _ := newService(t, agents.VariantFull, scripted(), 0)
	ctx := context.Background()

	_, err := svc.HandleMessage(ctx, "missing", "hello")
	assert.True(t, errors.Is(err, chat.ErrSessionNotFound))

	sess, _, _ := svc.StartSession(ctx)
	_, err = svc.HandleMessage(ctx, sess.ID, "   ")
	assert.True(t, errors.Is(err, chat.ErrEmptyMessage))
}

func TestEndSession(t *testing.T) {
	svc, _ := newService(t, agents.VariantFull, scripted(), 0)
	ctx := context.Background()
	sess, _, _ := svc.StartSession(ctx)

	require.NoError(t, svc.EndSession(ctx, sess.ID))
	assert.True(t, errors.Is(svc.EndSession(ctx, sess.ID), chat.ErrSessionNotFound))

	_, err := svc.GetSession(ctx, sess.ID)
	assert.True(t, errors.Is(err, chat.ErrSessionNotFound))
}

func TestHandleMessage_ConcurrentTurnsSerialized(t *testing.T) {
	steps := make([]routertest.Step, 8)
	for i := range steps {
		steps[i] = routertest.Text("ok")
	}
	svc, _ := newService(t, agents.VariantFull, scripted(steps...), 0)
	ctx := context.Background()
	sess, _, _ := svc.StartSession(ctx)

	var wg sync.WaitGroup
	for i := 0; i < len(steps); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.HandleMessage(ctx, sess.ID, "hi")
		}()
	}
	wg.Wait()

	got, _ := svc.GetSession(ctx, sess.ID)
	assert.Len(t, got.Messages, 2*len(steps))
	assert.Equal(t, len(steps), got.TurnCount)
}
