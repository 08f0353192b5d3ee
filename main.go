package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	api "assistant-backend/cmd/api"
	"assistant-backend/internal/agent/session"
	"assistant-backend/internal/agent/tools"
	"assistant-backend/internal/agent/usecase"
	convRepo "assistant-backend/internal/conversation/repository"
	draftRepo "assistant-backend/internal/draft/repository"
	"assistant-backend/internal/draft/sweeper"
	"assistant-backend/internal/memory"
	"assistant-backend/pkg/ai"
	"assistant-backend/pkg/calendar"
	"assistant-backend/pkg/chroma"
	"assistant-backend/pkg/config"
	"assistant-backend/pkg/database"
	"assistant-backend/pkg/gmail"
	"assistant-backend/pkg/imap"
	"assistant-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.Environment)

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize repositories (dependency injection)
	conversations := convRepo.NewGormConversationRepository(db)
	drafts := draftRepo.NewGormDraftRepository(db)

	// Semantic index is optional; memory degrades to the relational log
	// alone when Chroma is not configured.
	var index memory.SemanticIndex
	chromaClient, err := chroma.NewClient(chroma.Config{
		APIKey:       cfg.ChromaAPIKey,
		Tenant:       cfg.ChromaTenant,
		Database:     cfg.ChromaDatabase,
		GeminiAPIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		log.Warn().Err(err).Msg("semantic index disabled")
	} else {
		index = chromaClient
	}
	longTerm := memory.NewLongTerm(conversations, index)

	// Initialize the language model provider
	llm, err := ai.NewLanguageModel(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize language model")
	}

	// Google services
	calendarService := calendar.NewGoogleService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken, cfg.DefaultTimezone)
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken, cfg.GmailAddress)
	imapService := imap.NewService(cfg.ImapHost, cfg.ImapPort, cfg.ImapUser, cfg.ImapPassword)

	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.DefaultTimezone).Msg("invalid timezone, using UTC")
		loc = time.UTC
	}

	// Assemble the agent's tool set
	emailWorkflow := tools.NewEmailWorkflow(drafts, gmailService, gmailService, llm)
	registry := tools.NewRegistry(
		tools.NewCalendarTool(calendarService, llm, cfg.GoogleCalendarID, loc),
		tools.NewDraftEmailTool(emailWorkflow),
		tools.NewSendDraftTool(emailWorkflow),
		tools.NewImproveDraftTool(emailWorkflow),
		tools.NewCancelDraftTool(emailWorkflow),
		tools.NewKeepDraftTool(emailWorkflow),
		tools.NewListDraftsTool(emailWorkflow),
		tools.NewSelectDraftTool(emailWorkflow),
		tools.NewInboxTool(imapService),
		tools.NewSummarizeTool(llm),
		tools.NewKeyPointsTool(llm),
		tools.NewExplainTool(llm),
		tools.NewCompareTool(llm),
		tools.NewDocumentQATool(llm),
		tools.NewConversationTool(llm),
	)

	sessions := session.NewStore()
	agent := usecase.NewAgent(llm, registry, sessions, longTerm, cfg.MaxAgentIterations)

	// Background draft expiry sweep
	sw := sweeper.New(drafts, cfg.DraftSweepInterval)
	sw.Start()
	defer sw.Stop()

	// HTTP surface
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	handler := api.NewHandler(agent, longTerm, sessions)
	api.SetupRoutes(r, handler, cfg)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
