// Package server wires the coding assistant together: artifact sink, tool
// registry, agent team, model router, runner, session store and the chat
// turn loop, plus the HTTP handler in front of them.
//
// Both front-ends build on it:
//
//	srv, err := server.New(ctx, cfg)
//	http.ListenAndServe(":8080", srv.Handler)   // assistant serve
//	console.New(srv.Chat, ...).Run(ctx)         // assistant chat
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codingassistant/assistant/internal/agents"
	"github.com/codingassistant/assistant/internal/api"
	"github.com/codingassistant/assistant/internal/api/handlers"
	"github.com/codingassistant/assistant/internal/chat"
	"github.com/codingassistant/assistant/internal/config"
	"github.com/codingassistant/assistant/internal/executor"
	"github.com/codingassistant/assistant/internal/filesink"
	"github.com/codingassistant/assistant/internal/retention"
	modelrouter "github.com/codingassistant/assistant/internal/router"
	"github.com/codingassistant/assistant/internal/sessions"
	"github.com/codingassistant/assistant/internal/telemetry"
	"github.com/codingassistant/assistant/internal/tools"
)

// Server holds the initialized assistant.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Chat is the turn loop shared by every front-end.
	Chat *chat.Service

	// Janitor ends idle sessions once started.
	Janitor *retention.Janitor

	// Team is the active agent topology.
	Team *agents.Team

	// Router is the model boundary.
	Router *modelrouter.ModelRouter

	// Config is the server configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes every component from cfg and returns a ready Server.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	variant, err := agents.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Version, string(variant))
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	sink := filesink.NewSink(cfg.OutputDir)
	reg := tools.NewBuiltinRegistry(sink)
	log.Info().Str("root", sink.Root()).Strs("tools", toolNames(reg)).Msg("✅ Tool registry initialized")

	team, err := agents.Build(variant, reg)
	if err != nil {
		return nil, fmt.Errorf("build team: %w", err)
	}
	log.Info().Str("variant", string(variant)).Str("entry", team.Entry.Name).Msg("✅ Agent team assembled")

	mr := modelrouter.NewModelRouter(modelrouter.Provider{
		Name:     cfg.Model.Provider,
		Kind:     cfg.Model.Provider,
		Endpoint: cfg.Model.BaseURL,
		APIKey:   cfg.Model.APIKey,
		Model:    cfg.Model.Name,
	})
	if mr.GetDriver(cfg.Model.Provider) == nil {
		return nil, fmt.Errorf("unsupported model provider %q (have %v)", cfg.Model.Provider, mr.ListDrivers())
	}
	log.Info().Str("provider", cfg.Model.Provider).Str("model", cfg.Model.Name).Msg("✅ Model Router initialized")

	runner := executor.NewRunner(mr, cfg.MaxTurns)
	svc := chat.NewService(sessions.NewMemorySessionStore(), runner, team, cfg.TurnTimeout)

	h := handlers.New(svc, reg, mr)

	return &Server{
		Handler:      api.NewRouter(cfg, h),
		Chat:         svc,
		Janitor:      retention.NewJanitor(svc, cfg.SessionTTL),
		Team:         team,
		Router:       mr,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

func toolNames(reg *tools.Registry) []string {
	var names []string
	for _, t := range reg.List() {
		names = append(names, t.Name)
	}
	return names
}
