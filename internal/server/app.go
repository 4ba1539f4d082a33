// Package server wires configuration, storage, the session services and
// the HTTP API together and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/sweeper"
	"github.com/gin-gonic/gin"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	metrics *metrics.Metrics
	sweeper *sweeper.Sweeper
	handler http.Handler
}

// openRepos is a seam for tests.
var openRepos = func(ctx context.Context, o repomanager.Options) (repomanager.RepositoryManager, error) {
	return repomanager.Open(ctx, o)
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.GeneratedSecrets {
		logger.Warn(ctx, "token secrets not configured, using random development secrets")
	}

	repos, err := openRepos(ctx, repomanager.Options{
		IdentityBackend:  c.IdentityBackend,
		RefreshBackend:   c.RefreshBackend,
		DatabaseDSN:      c.DatabaseDSN,
		RedisAddr:        c.RedisAddr,
		RedisPassword:    c.RedisPassword,
		RedisDB:          c.RedisDB,
		RefreshRetention: c.RefreshRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	codec, err := auth.NewCodec(
		auth.Keys{Access: []byte(c.AccessTokenSecret), Refresh: []byte(c.RefreshTokenSecret)},
		auth.WithTTL(c.AccessTokenTTL, c.RefreshTokenTTL),
	)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("token codec error: %w", err)
	}

	ids, err := services.NewIdentityService(repos.Users())
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	policy, err := services.ParseIssuePolicy(c.IssuePolicy)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	m := metrics.New()
	sessions := services.NewSessionManager(ids, codec, repos.RefreshTokens(), logger,
		services.WithIssuePolicy(policy),
		services.WithMetrics(m),
	)

	app := &App{config: c, logger: logger, repos: repos, metrics: m}

	// Redis expires keys on its own; the other stores need sweeping.
	if exp, ok := repos.RefreshTokens().(refreshtokens.Expirer); ok {
		app.sweeper = sweeper.New(exp, c.RefreshRetention, c.SweepInterval, logger, m)
	}

	if c.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	app.handler = httpapi.SetupRoutes(httpapi.RouterConfig{
		Handler: httpapi.NewHandler(sessions, httpapi.CookieWriter{
			Secure:     c.Production,
			AccessTTL:  codec.TTL(auth.PurposeAccess),
			RefreshTTL: codec.TTL(auth.PurposeRefresh),
		}, logger),
		Codec:       codec,
		Logger:      logger,
		Metrics:     m.Handler(),
		CORSOrigins: c.CORSOrigins,
	})

	return app, nil
}

// Handler exposes the HTTP routes, mainly for tests.
func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// startHTTPServer returns only after Shutdown has drained in-flight requests,
// so storage is never closed under a running handler.
func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "HTTP server listening", "addr", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server error", "error", err)
		cancelFunc()
	}
	<-shutdownDone
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// shuts the HTTP server down and closes storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.sweeper.Run(ctx)
		}()
	}

	wg.Wait()

	app.logger.Info(context.Background(), "Stopped, closing storage")
	return app.repos.Close()
}
