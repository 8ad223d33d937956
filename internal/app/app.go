// Package app wires the configuration, secret resolution, session store,
// storage provider and HTTP surface into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/printshelf/printshelf/internal/auth"
	"github.com/printshelf/printshelf/internal/cache"
	"github.com/printshelf/printshelf/internal/config"
	"github.com/printshelf/printshelf/internal/crypto"
	"github.com/printshelf/printshelf/internal/gateway/gcs"
	"github.com/printshelf/printshelf/internal/handler"
	"github.com/printshelf/printshelf/internal/secret"
	"github.com/printshelf/printshelf/internal/service"
	"github.com/printshelf/printshelf/internal/session"
)

const shutdownTimeout = 10 * time.Second

// App is the assembled server.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
}

// New loads configuration and builds the full dependency graph.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	resolver, err := newSecretResolver(ctx, cfg)
	if err != nil {
		return nil, err
	}

	clientSecret, err := resolver.GetSecret(ctx, cfg.GoogleClientSecretParam)
	if err != nil {
		return nil, fmt.Errorf("resolve google client secret: %w", err)
	}
	jwtSecret, err := resolver.GetSecret(ctx, cfg.JWTSecretParam)
	if err != nil {
		return nil, fmt.Errorf("resolve jwt secret: %w", err)
	}

	store, err := newSessionStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	oauthService := auth.NewService(&oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: clientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       auth.Scopes,
		Endpoint:     google.Endpoint,
	})

	provider := gcs.NewProvider(gcs.Buckets{
		Models: cfg.ModelBucket,
		Images: cfg.ImageBucket,
		Output: cfg.OutputBucket,
	}, cfg.ImageFolder)

	svc := service.New(provider, cache.New(cache.DefaultTTL), logger)

	staticDir := ""
	if cfg.Production() {
		staticDir = cfg.StaticDir
	}

	router := handler.NewRouter(handler.Deps{
		Auth:      handler.NewAuthHandler(oauthService, store, jwtSecret, cfg.Production(), cfg.FrontendURL, logger),
		Files:     handler.NewFileHandler(svc, logger),
		Groups:    handler.NewGroupHandler(svc, logger),
		Store:     store,
		JWTSecret: jwtSecret,
		StaticDir: staticDir,
		Logger:    logger,
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until the context is cancelled or SIGINT/SIGTERM arrives,
// then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			slog.String("addr", a.server.Addr),
			slog.String("env", a.cfg.Env),
			slog.String("version", config.Version),
		)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(h)
}

// newSecretResolver picks SSM in production and plain environment
// variables everywhere else.
func newSecretResolver(ctx context.Context, cfg *config.Config) (secret.Resolver, error) {
	if !cfg.Production() {
		return secret.NewEnvResolver(), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return secret.NewSSMResolver(ssm.NewFromConfig(awsCfg)), nil
}

// newSessionStore builds the configured session backend. The DynamoDB
// backend encrypts access tokens so they never rest in plaintext; outside
// production a mock encryptor stands in for KMS (local DynamoDB setups).
func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.SessionBackend {
	case "dynamodb":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		var encryptor crypto.Encryptor
		if cfg.Production() {
			encryptor = crypto.NewKMSService(kms.NewFromConfig(awsCfg), cfg.KMSKeyID)
		} else {
			encryptor = crypto.NewMockEncryptor()
		}
		return session.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.SessionTable, encryptor, session.DefaultTTL), nil
	default:
		return session.NewMemoryStore(session.DefaultTTL), nil
	}
}
