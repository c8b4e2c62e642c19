package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"

	"github.com/brainstormlabs/brainstormx/go/internal/chat"
	"github.com/brainstormlabs/brainstormx/go/internal/gateway"
	"github.com/brainstormlabs/brainstormx/go/internal/generator"
	"github.com/brainstormlabs/brainstormx/go/internal/ideas"
	"github.com/brainstormlabs/brainstormx/go/internal/votes"
	"github.com/brainstormlabs/brainstormx/go/internal/workshop"
)

type Services struct {
	Workshop *workshop.Service
	Ideas    *ideas.Service
	Votes    *votes.Service

	ConnectionManager *gateway.ConnectionManager
	Hub               *gateway.Hub
	WebSocket         *gateway.WebSocketHandler
}

func setupServices(database *sql.DB, config *Config) *Services {
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()
	gen := generator.NewHTTPClient(config.Generator.BaseURL)

	// Workshop lifecycle
	workshopRepo := workshop.NewRepository(database)
	workshopApp := workshop.NewApp(database, workshopRepo, gen, clock, config.Voting.DotBudget)
	workshopService := workshop.NewService(workshopApp)

	// Ideas
	ideasApp := ideas.NewApp(database, workshopRepo, clock)
	ideasService := ideas.NewService(ideasApp)

	// Votes
	votesRepo := votes.NewRepository(database)
	votesApp := votes.NewApp(database, workshopRepo, clock)
	votesService := votes.NewService(votesApp)

	// Chat
	chatRepo := chat.NewRepository(database)
	chatApp := chat.NewApp(database, chatRepo, clock)

	// Gateway
	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	hub := gateway.NewHub(cm, workshopApp, workshopRepo, votesRepo, chatApp, clock)
	wsHandler := gateway.NewWebSocketHandler(cm, workshopRepo)

	return &Services{
		Workshop:          workshopService,
		Ideas:             ideasService,
		Votes:             votesService,
		ConnectionManager: cm,
		Hub:               hub,
		WebSocket:         wsHandler,
	}
}
