package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"jobapply-backend/internal/applications"
	"jobapply-backend/internal/auth"
	"jobapply-backend/internal/dispatch"
	"jobapply-backend/internal/gmail"
	"jobapply-backend/internal/history"
	"jobapply-backend/internal/llm"
	"jobapply-backend/internal/llm/gemini"
	"jobapply-backend/internal/llm/openai"
	"jobapply-backend/internal/scrape"
	"jobapply-backend/internal/services/health"
	"jobapply-backend/internal/sessions"
	sharedauth "jobapply-backend/internal/shared/auth"
	"jobapply-backend/internal/shared/config"
	"jobapply-backend/internal/shared/server"
	"jobapply-backend/internal/shared/storage/db"
	"jobapply-backend/internal/shared/storage/object"
	localstore "jobapply-backend/internal/shared/storage/object/local"
	s3store "jobapply-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config              config.Config
	Router              *gin.Engine
	DB                  *sql.DB
	Store               object.ObjectStore
	Sessions            sessions.Store
	History             history.Repo
	Generator           llm.Generator
	Tokens              auth.TokenStore
	Mail                *gmail.Provider
	ApplicationsService *applications.Service
	ApplicationsHandler *applications.Handler
	GoogleAuth          *auth.GoogleService
	Health              *health.Service

	closers []io.Closer
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.DB = sqlDB
		app.closers = append(app.closers, sqlDB)
		app.Health.Register("database", sqlDB.PingContext)
	}

	if app.Store, err = BuildStore(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Sessions, err = buildSessions(ctx, app, cfg); err != nil {
		return nil, err
	}
	if sqlDB != nil {
		app.History = &history.PGRepo{DB: sqlDB}
	} else {
		app.History = history.NewMemoryRepo(cfg.SessionTTL)
	}
	if app.Generator, err = NewGenerator(ctx, cfg); err != nil {
		return nil, err
	}

	oauthCfg := auth.GmailOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	app.Tokens = auth.NewFileTokenStore(cfg.GmailTokenDir)
	app.Mail = gmail.NewProvider(oauthCfg, app.Tokens)

	app.ApplicationsService = &applications.Service{
		Sessions:     app.Sessions,
		Store:        app.Store,
		HistoryRepo:  app.History,
		Generator:    app.Generator,
		Fetcher:      scrape.NewFetcher(cfg.ScrapeTimeout, cfg.ScrapeMaxChars),
		Senders:      app.Mail,
		Dispatcher:   NewDispatcher(cfg, app.Store),
		HistoryLimit: cfg.HistoryLimit,
	}
	app.ApplicationsHandler = applications.NewHandler(app.ApplicationsService)
	states, err := stateSigner(cfg)
	if err != nil {
		return nil, err
	}
	app.GoogleAuth = auth.NewGoogleService(oauthCfg, app.Tokens, app.ApplicationsService.CheckSession, cfg.UIRedirectURL, states)
	if !app.GoogleAuth.Configured() {
		log.Printf("bootstrap: GOOGLE_CLIENT_ID/SECRET/REDIRECT_URL incomplete; draft and send will report not connected")
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:       cfg,
		Applications: app.ApplicationsHandler,
		GoogleAuth:   app.GoogleAuth,
		Health:       app.Health,
	})

	return app, nil
}

// Close releases database and cache connections.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory history")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable; using in-memory history: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// BuildStore returns the configured resume object store.
func BuildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildSessions(ctx context.Context, app *App, cfg config.Config) (sessions.Store, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return sessions.NewMemoryStore(cfg.SessionTTL), nil
	}
	rs, err := sessions.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: redis unavailable; using in-memory sessions: %v", err)
			return sessions.NewMemoryStore(cfg.SessionTTL), nil
		}
		return nil, err
	}
	app.closers = append(app.closers, rs)
	app.Health.Register("sessions", rs.Ping)
	return rs, nil
}

// NewGenerator returns the configured generation capability wrapped in the
// caller-level retry policy. Without credentials in dev it falls back to the
// placeholder so the deterministic paths still work.
func NewGenerator(ctx context.Context, cfg config.Config) (llm.Generator, error) {
	var (
		gen llm.Generator
		err error
	)
	switch cfg.LLMProvider {
	case "gemini":
		if strings.TrimSpace(cfg.GoogleAPIKey) == "" && isDevLike(cfg.Env) {
			log.Printf("bootstrap: GOOGLE_API_KEY empty; generation disabled")
			return llm.Placeholder{}, nil
		}
		gen, err = gemini.NewClient(ctx, cfg.GoogleAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && isDevLike(cfg.Env) {
			log.Printf("bootstrap: OPENAI_API_KEY empty; generation disabled")
			return llm.Placeholder{}, nil
		}
		gen, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	default:
		return llm.Placeholder{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("llm provider %s: %w", cfg.LLMProvider, err)
	}
	return llm.WithRetry(gen, cfg.LLMRetries, 0), nil
}

// NewDispatcher builds a dispatcher that reads attachments from store.
func NewDispatcher(cfg config.Config, store object.ObjectStore) *dispatch.Dispatcher {
	return dispatch.New(
		dispatch.WithAttachmentSource(store),
		dispatch.WithHTMLPart(cfg.EmailHTMLPart),
	)
}

// stateSigner keys OAuth state tokens. Without OAUTH_STATE_SECRET each
// process signs with its own random key, which only works with one instance.
func stateSigner(cfg config.Config) (*sharedauth.Signer, error) {
	if strings.TrimSpace(cfg.OAuthStateSecret) == "" {
		if !isDevLike(cfg.Env) && cfg.GoogleClientID != "" {
			log.Printf("bootstrap: OAUTH_STATE_SECRET empty; Gmail connect only works on a single instance")
		}
		return nil, nil
	}
	return sharedauth.NewSigner(cfg.OAuthStateSecret)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
