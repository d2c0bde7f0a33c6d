// Package server wires the hiringhub components together and runs the
// HTTP API, the gRPC health endpoint and the session sweeper until a
// termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/logging"
	"github.com/dmitrijs2005/hiringhub/internal/server/config"
	"github.com/dmitrijs2005/hiringhub/internal/server/inference"
	"github.com/dmitrijs2005/hiringhub/internal/server/mailer"
	"github.com/dmitrijs2005/hiringhub/internal/server/otp"
	"github.com/dmitrijs2005/hiringhub/internal/server/ranking"
	"github.com/dmitrijs2005/hiringhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hiringhub/internal/server/services"
	"github.com/dmitrijs2005/hiringhub/internal/server/session"
	"github.com/dmitrijs2005/hiringhub/internal/server/storage"
	"github.com/dmitrijs2005/hiringhub/internal/server/web"

	gs "github.com/dmitrijs2005/hiringhub/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	sessions *session.Store
	http     *web.Server
	grpc     *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := storage.NewS3Storage(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	metrics := web.NewMetrics()
	sessions := session.NewStore(c.SessionIdleDuration)
	codes := otp.NewAuthenticator(sessions, mailer.NewMailer(c.SMTP), c.OTPValidityDuration, logger).WithObserver(metrics)

	ai := inference.NewClient(c.InferenceBaseURL, c.InferenceTimeout, inference.BreakerSettings{
		MinRequests:  c.BreakerMinRequests,
		FailureRatio: c.BreakerFailureRatio,
		OpenTimeout:  c.BreakerOpenTimeout,
	}, logger)
	ranker := ranking.NewRanker(ai, logger)

	feedback := services.NewFeedbackService(db, rm, blobs, ai, logger)
	accounts := services.NewAccountService(db, rm, codes, sessions, c, logger)
	jobs := services.NewJobService(db, rm, blobs, ranker, feedback, logger)
	candidates := services.NewCandidateService(db, rm, blobs, ai, ranker, ai, logger)

	httpServer, err := web.NewServer(web.Deps{
		Accounts:      accounts,
		Candidates:    candidates,
		Jobs:          jobs,
		Feedback:      feedback,
		Sessions:      sessions,
		Limiter:       web.NewLimiterManager(c.OTPRequestsPerMinute, c.OTPBurst),
		VerifyLimiter: web.NewLimiterManager(c.VerifyRequestsPerMinute, c.VerifyBurst),
		Metrics:       metrics,
	}, web.Options{
		Address:      c.EndpointAddrHTTP,
		SecretKey:    c.SecretKey,
		IdentityTTL:  c.IdentityValidityDuration,
		CookieSecure: c.CookieSecure,
		TrustProxy:   c.TrustProxy,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("http init error: %w", err)
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		sessions: sessions,
		http:     httpServer,
		grpc:     gs.NewGRPCServer(c.EndpointAddrGRPC, logger, db),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// serve runs one server loop; a failure takes the whole app down.
func (app *App) serve(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.serve(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.serve(ctx, cancelFunc, "grpc", app.grpc.Run)
	}()
	go func() {
		defer wg.Done()
		app.sessions.RunSweeper(ctx, time.Minute)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "closing db", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
