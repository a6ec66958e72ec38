package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/seregajade-png/analysis-beauty/internal/admincards"
	"github.com/seregajade-png/analysis-beauty/internal/analysis"
	googleauth "github.com/seregajade-png/analysis-beauty/internal/auth"
	"github.com/seregajade-png/analysis-beauty/internal/calls"
	"github.com/seregajade-png/analysis-beauty/internal/catalog"
	"github.com/seregajade-png/analysis-beauty/internal/chats"
	"github.com/seregajade-png/analysis-beauty/internal/llm"
	openai "github.com/seregajade-png/analysis-beauty/internal/llm/openai"
	"github.com/seregajade-png/analysis-beauty/internal/queue"
	"github.com/seregajade-png/analysis-beauty/internal/services/health"
	"github.com/seregajade-png/analysis-beauty/internal/shared/auth"
	"github.com/seregajade-png/analysis-beauty/internal/shared/config"
	"github.com/seregajade-png/analysis-beauty/internal/shared/server"
	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/db"
	"github.com/seregajade-png/analysis-beauty/internal/shared/storage/object"
	localstore "github.com/seregajade-png/analysis-beauty/internal/shared/storage/object/local"
	s3store "github.com/seregajade-png/analysis-beauty/internal/shared/storage/object/s3"
	"github.com/seregajade-png/analysis-beauty/internal/shared/telemetry"
	"github.com/seregajade-png/analysis-beauty/internal/skilltests"
	"github.com/seregajade-png/analysis-beauty/internal/users"
)

const defaultQueueRegion = "eu-central-1"

// App holds shared dependencies and the HTTP router.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    object.ObjectStore
	Queue    queue.Publisher
	Sessions *auth.Sessions

	UsersService      *users.Service
	ChatsService      *chats.Service
	CallsService      *calls.Service
	CatalogService    *catalog.Service
	SkillTestsService *skilltests.Service
	AdminCardsService *admincards.Service
}

// models groups the model capabilities; each is nil when no client is configured.
type models struct {
	streamer    llm.Streamer
	completer   llm.Completer
	transcriber llm.Transcriber
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m, err := buildModels(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Queue:    queueClient,
		Sessions: auth.NewSessions(cfg.AuthSecret),
	}
	deps := buildServices(app, m)
	app.Router = server.NewRouter(deps)
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.Shared(ctx, cfg.DatabaseURL, db.OptionsFor(db.ProfileLambda))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFor(db.ProfileServer))
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Publisher, error) {
	if strings.TrimSpace(cfg.CallsQueueURL) == "" {
		return nil, nil
	}
	region := cfg.AWSRegion
	if region == "" {
		region = defaultQueueRegion
	}
	client, err := queue.NewSQS(ctx, cfg.CallsQueueURL, region)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func buildModels(cfg config.Config) (models, error) {
	if cfg.OpenAIAPIKey == "" && cfg.OpenAIProxyURL == "" {
		if !cfg.IsDevLike() {
			return models{}, fmt.Errorf("OPENAI_API_KEY or OPENAI_PROXY_URL is required")
		}
		telemetry.Warn("bootstrap.llm_not_configured", map[string]any{"env": cfg.Env})
		return models{}, nil
	}
	client, err := openai.NewClient(openai.Config{
		APIKey:          cfg.OpenAIAPIKey,
		ProxyURL:        cfg.OpenAIProxyURL,
		ProxySecret:     cfg.AuthSecret,
		Model:           cfg.LLMModel,
		MaxTokens:       cfg.LLMMaxTokens,
		TranscribeModel: cfg.TranscribeModel,
	})
	if err != nil {
		return models{}, err
	}
	return models{streamer: client, completer: client, transcriber: client}, nil
}

func buildServices(app *App, m models) server.RouterDeps {
	var (
		userRepo    users.Repo
		chatRepo    chats.Repo
		callRepo    calls.Repo
		productRepo catalog.Repo
		testRepo    skilltests.Repo
		cardRepo    admincards.Repo
		healthSvc   *health.Service
	)
	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		chatRepo = &chats.PGRepo{DB: app.DB}
		callRepo = &calls.PGRepo{DB: app.DB}
		productRepo = &catalog.PGRepo{DB: app.DB}
		testRepo = &skilltests.PGRepo{DB: app.DB}
		cardRepo = &admincards.PGRepo{DB: app.DB}
		healthSvc = health.NewService(app.DB)
	} else {
		userRepo = users.NewMemoryRepo()
		chatRepo = chats.NewMemoryRepo()
		callRepo = calls.NewMemoryRepo()
		productRepo = catalog.NewMemoryRepo()
		testRepo = skilltests.NewMemoryRepo()
		cardRepo = admincards.NewMemoryRepo()
		healthSvc = health.NewService(nil)
	}

	userSvc := users.NewService(userRepo)
	chatSvc := chats.NewService(chatRepo, m.streamer, m.completer)
	callSvc := &calls.Service{
		Repo:        callRepo,
		Store:       app.Store,
		Transcriber: m.transcriber,
		Streamer:    m.streamer,
		Completer:   m.completer,
		Queue:       app.Queue,
	}
	catalogSvc := &catalog.Service{Repo: productRepo, Users: userSvc}
	testSvc := &skilltests.Service{
		Repo:        testRepo,
		Completer:   m.completer,
		Transcriber: m.transcriber,
		Store:       app.Store,
		Products:    catalogSvc,
	}
	cardSvc := &admincards.Service{
		Repo:          cardRepo,
		Calls:         callSvc,
		Chats:         chatSvc,
		Tests:         testSvc,
		Users:         userSvc,
		Completer:     m.completer,
		PublicBaseURL: app.Config.PublicBaseURL,
	}

	app.UsersService = userSvc
	app.ChatsService = chatSvc
	app.CallsService = callSvc
	app.CatalogService = catalogSvc
	app.SkillTestsService = testSvc
	app.AdminCardsService = cardSvc

	decoder := &analysis.Decoder{Store: app.Store}
	return server.RouterDeps{
		Config:   app.Config,
		Sessions: app.Sessions,
		Health:   healthSvc,
		Login:    googleauth.NewLoginHandler(userSvc, app.Sessions),
		GoogleAuth: googleauth.NewGoogleService(
			app.Config.GoogleClientID,
			app.Config.GoogleClientSecret,
			app.Config.GoogleRedirectURL,
			app.Config.UIRedirectURL,
			userSvc,
			app.Sessions,
		),
		Users:      users.NewHandler(userSvc),
		Chats:      chats.NewHandler(chatSvc, decoder),
		Calls:      calls.NewHandler(callSvc),
		SkillTests: skilltests.NewHandler(testSvc),
		Catalog:    catalog.NewHandler(catalogSvc),
		AdminCards: admincards.NewHandler(cardSvc),
	}
}
