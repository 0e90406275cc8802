package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/pioneerpictures/clover/config"
	contactrepo "github.com/pioneerpictures/clover/internal/repositories/contact"
	identityrepo "github.com/pioneerpictures/clover/internal/repositories/identity"
	nametokenrepo "github.com/pioneerpictures/clover/internal/repositories/nametoken"
	reviewrepo "github.com/pioneerpictures/clover/internal/repositories/reviewqueue"
	runrepo "github.com/pioneerpictures/clover/internal/repositories/run"
	"github.com/pioneerpictures/clover/pkg/database"
	"github.com/pioneerpictures/clover/pkg/events"
	"github.com/pioneerpictures/clover/pkg/kafka"
	"github.com/pioneerpictures/clover/pkg/logging"
	"github.com/pioneerpictures/clover/pkg/matching"
	"github.com/pioneerpictures/clover/pkg/middleware"
	"github.com/pioneerpictures/clover/pkg/registry"
	"github.com/pioneerpictures/clover/pkg/resolve"
	"github.com/pioneerpictures/clover/pkg/review"
	"github.com/pioneerpictures/clover/pkg/routes/health"
	identityroutes "github.com/pioneerpictures/clover/pkg/routes/identity"
	resolutionroutes "github.com/pioneerpictures/clover/pkg/routes/resolution"
	reviewroutes "github.com/pioneerpictures/clover/pkg/routes/reviewqueue"
	runroutes "github.com/pioneerpictures/clover/pkg/routes/run"
	"github.com/pioneerpictures/clover/pkg/startup"
	"github.com/pioneerpictures/clover/pkg/tracing"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flush := logging.New(cfg.LogLevel, cfg.PrettyLogs)
	defer flush()

	ctx := context.Background()
	log := logger.WithContext(ctx)

	tracerProvider := tracing.NewProvider(cfg.AppName)
	defer func() { _ = tracerProvider.Shutdown(ctx) }()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
	sqlxDB, err := sqlx.Open(cfg.DatabaseDriver, dsn)
	if err != nil {
		log.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	db := database.NewDatabaseInstance(sqlxDB, logger)

	identities := identityrepo.NewRepository(db, logger)
	tokens := nametokenrepo.NewRepository(db, logger)
	contacts := contactrepo.NewRepository(db, logger)
	reviews := reviewrepo.NewRepository(db, logger)
	runs := runrepo.NewRepository(db, logger)

	builder := registry.NewBuilder(identities, tokens, contacts, logger)

	engine := matching.NewEngine(matching.Config{
		ConfirmNameThreshold:   cfg.ConfirmNameThreshold,
		ConfirmContactMinimum:  cfg.ConfirmContactMinimum,
		PossibleScoreThreshold: cfg.PossibleScoreThreshold,
		MaxPossibleMatches:     cfg.MaxPossibleMatches,
		DepartmentBonusEnabled: cfg.DepartmentBonusEnabled,
	})

	var producer *kafka.Producer
	if cfg.KafkaOutputTopic != "" {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
	}
	emitter := events.NewEmitter(producer, logger)

	runner := resolve.NewRunner(db, engine, builder, runs, reviews, emitter, logger, resolve.Config{
		WorkerCount:        cfg.MatchWorkerCount,
		ReviewQueueEnabled: cfg.ReviewQueueEnabled,
	})
	reviewService := review.NewService(db, reviews, builder, logger)

	batcher := resolve.NewBatcher(runner, logger, cfg.MatchBatchSize, 0)
	consumer := kafka.NewConsumer(cfg, logger, func(ctx context.Context, msg *kafka.IncomingMessage) error {
		record := *msg.CrewRecord
		record.Origin = msg.GetOrigin()
		if record.SourceID == "" {
			record.SourceID = msg.GetSourceID()
		}
		return batcher.Add(ctx, record)
	})

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&databaseDependency{db: sqlxDB})
	boot.AddDependency(&migrationDependency{cfg: cfg, logger: logger, db: sqlxDB})
	boot.AddDependency(&batcherDependency{batcher: batcher})
	if cfg.KafkaConsumerEnabled {
		boot.AddDependency(&consumerDependency{consumer: consumer})
	}

	if err := boot.Start(ctx); err != nil {
		log.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	if err := registerDependencies(logger, identities, reviews, runs, builder, runner, reviewService, emitter); err != nil {
		log.WithError(err).Error("Failed to build dependency container")
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.Validator = &requestValidator{validate: validator.New()}
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker := health.NewChecker(db, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	identityroutes.Register(api.Group("/identities"))
	reviewroutes.Register(api.Group("/review-items"))
	runroutes.Register(api.Group("/runs"))
	resolutionroutes.Register(api.Group("/resolve"))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		log.WithFields(map[string]any{"addr": addr}).Info("Starting HTTP server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server stopped")
			os.Exit(1)
		}
	}()
	checker.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Dependency shutdown failed")
	}
}

// registerDependencies populates the default container the route handlers
// resolve from.
func registerDependencies(
	logger ectologger.Logger,
	identities *identityrepo.Repository,
	reviews *reviewrepo.Repository,
	runs *runrepo.Repository,
	builder *registry.Builder,
	runner *resolve.Runner,
	reviewService *review.Service,
	emitter *events.Emitter,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*identityrepo.Repository](container, identities); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reviewrepo.Repository](container, reviews); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*runrepo.Repository](container, runs); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*registry.Builder](container, builder); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*resolve.Runner](container, runner); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*review.Service](container, reviewService); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*events.Emitter](container, emitter)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type databaseDependency struct {
	db *sqlx.DB
}

func (d *databaseDependency) GetName() string     { return "database" }
func (d *databaseDependency) DependsOn() []string { return nil }

func (d *databaseDependency) Start(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *databaseDependency) Stop(context.Context) error      { return d.db.Close() }

type migrationDependency struct {
	cfg    config.Config
	logger ectologger.Logger
	db     *sqlx.DB
}

func (d *migrationDependency) GetName() string     { return "migrations" }
func (d *migrationDependency) DependsOn() []string { return []string{"database"} }

func (d *migrationDependency) Stop(context.Context) error { return nil }

func (d *migrationDependency) Start(ctx context.Context) error {
	driver, err := migratepg.WithInstance(d.db.DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	service := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:             uint(d.cfg.DatabaseMigrationVersion),
		Force:               d.cfg.DatabaseMigrationForce,
		AutoRollback:        d.cfg.DatabaseMigrationAutoRollback,
	})
	return service.Migrate(d.cfg.DatabaseName, driver)
}

type batcherDependency struct {
	batcher *resolve.Batcher
}

func (d *batcherDependency) GetName() string     { return "batcher" }
func (d *batcherDependency) DependsOn() []string { return []string{"migrations"} }

func (d *batcherDependency) Start(ctx context.Context) error { return d.batcher.Start(ctx) }
func (d *batcherDependency) Stop(context.Context) error      { return d.batcher.Stop() }

type consumerDependency struct {
	consumer *kafka.Consumer
}

func (d *consumerDependency) GetName() string     { return "kafka-consumer" }
func (d *consumerDependency) DependsOn() []string { return []string{"batcher"} }

func (d *consumerDependency) Start(ctx context.Context) error { return d.consumer.Start(ctx) }
func (d *consumerDependency) Stop(context.Context) error      { return d.consumer.Stop() }
