// Package server assembles the custody service: it opens the database, runs
// migrations, wires publisher and archiver, starts the gRPC and HTTP
// endpoints and handles graceful shutdown.
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

	"github.com/dmitrijs2005/alarmlock/internal/logging"
	"github.com/dmitrijs2005/alarmlock/internal/server/archive"
	"github.com/dmitrijs2005/alarmlock/internal/server/config"
	"github.com/dmitrijs2005/alarmlock/internal/server/events"
	"github.com/dmitrijs2005/alarmlock/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/alarmlock/internal/server/services"

	gs "github.com/dmitrijs2005/alarmlock/internal/server/grpc"
	hs "github.com/dmitrijs2005/alarmlock/internal/server/http"
)

// purgeInterval is how often expired login challenges are swept.
const purgeInterval = time.Minute

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	publisher    events.Publisher
	vaultService *services.VaultService
	authService  *services.AuthService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	publisher, err := newPublisher(c, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	archiver, err := newArchiver(ctx, c)
	if err != nil {
		_ = publisher.Close()
		_ = db.Close()
		return nil, err
	}

	vs, err := services.NewVaultService(db, m, c, publisher, archiver, logger.With("module", "vault_service"))
	if err != nil {
		_ = publisher.Close()
		_ = db.Close()
		return nil, err
	}
	as := services.NewAuthService(db, m, c)

	return &App{config: c, logger: logger, db: db, publisher: publisher, vaultService: vs, authService: as}, nil
}

// newPublisher streams events to Kafka when brokers are configured and
// only logs them otherwise.
func newPublisher(c *config.Config, logger logging.Logger) (events.Publisher, error) {
	if len(c.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logger.With("module", "events")), nil
	}
	p, err := events.NewKafkaPublisher(c.KafkaBrokers, c.KafkaTopic)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher error: %w", err)
	}
	return p, nil
}

// newArchiver stores closed-lifecycle statements in S3 when a bucket is
// configured.
func newArchiver(ctx context.Context, c *config.Config) (archive.Archiver, error) {
	if c.S3Bucket == "" {
		return archive.NopArchiver{}, nil
	}
	a, err := archive.NewS3Archiver(ctx, archive.S3Options{
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 archiver error: %w", err)
	}
	return a, nil
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

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.vaultService, app.authService, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := hs.NewServer(app.config.EndpointAddrHTTP, hs.NewHandler(app.vaultService, app.logger), app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeChallenges removes expired login challenges until ctx is done.
func (app *App) purgeChallenges(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.authService.PurgeExpired(ctx)
			if err != nil {
				app.logger.Warn(ctx, "challenge purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "expired challenges purged", "count", n)
			}
		}
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
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeChallenges(ctx)
	}()

	wg.Wait()

	if err := app.publisher.Close(); err != nil {
		app.logger.Warn(ctx, "publisher close failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}

	app.logger.Info(ctx, "Stopped")
}
