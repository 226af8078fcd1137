package gophertrigger

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/RealZimboGuy/gophertrigger/internal/actions"
	"github.com/RealZimboGuy/gophertrigger/internal/config"
	"github.com/RealZimboGuy/gophertrigger/internal/controllers"
	"github.com/RealZimboGuy/gophertrigger/internal/engine"
	"github.com/RealZimboGuy/gophertrigger/internal/migrations"
	"github.com/RealZimboGuy/gophertrigger/internal/repository"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/core"
	"github.com/RealZimboGuy/gophertrigger/pkg/gophertrigger/domain"
	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Options customise Setup. Zero values fall back to the environment configuration.
type Options struct {
	// Entities raising model events. More can be added with App.RegisterEntity.
	Entities []core.EntityType
	// Actions registered after the built-in ones.
	Actions []core.Action
	Clock   core.Clock
	Mux     *http.ServeMux
}

// App is a configured trigger engine with its HTTP API.
type App struct {
	DB         *sql.DB
	Engine     *engine.Engine
	Workflows  *repository.WorkflowRepository
	ApiClients *repository.ApiClientRepository
	Redis      *redis.Client
	Mux        *http.ServeMux
	clock      core.Clock
}

// Setup opens and migrates the database, builds the engine and registers the HTTP routes.
// Nothing runs until Run is called.
func Setup(opts Options) (*App, error) {
	clock := opts.Clock
	if clock == nil {
		clock = core.NewRealClock()
	}

	db, err := setupDatabase()
	if err != nil {
		return nil, err
	}

	capabilities := config.GetSystemSettingList(config.CAPABILITIES)
	dispatchType := config.GetSystemSettingString(config.ENGINE_DISPATCH_TYPE)
	var rdb *redis.Client
	if dispatchType == config.DISPATCH_TYPE_REDIS || slices.Contains(capabilities, config.CAPABILITY_REDIS) {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.GetSystemSettingString(config.REDIS_ADDR),
			Password: config.GetSystemSettingString(config.REDIS_PASSWORD),
			DB:       config.GetSystemSettingInteger(config.REDIS_DB),
		})
	}

	var dispatcher engine.Dispatcher
	switch dispatchType {
	case config.DISPATCH_TYPE_REDIS:
		dispatcher = engine.NewRedisDispatcher(rdb, config.GetSystemSettingString(config.REDIS_QUEUE), engine.ExecutorName())
		slog.Info("Using Redis dispatcher", "addr", config.GetSystemSettingString(config.REDIS_ADDR))
	case config.DISPATCH_TYPE_MEMORY:
		dispatcher = engine.NewMemoryDispatcher(config.GetSystemSettingInteger(config.ENGINE_QUEUE_SIZE))
		slog.Info("Using in memory dispatcher")
	default:
		db.Close()
		return nil, errors.Errorf("%s must be one of %s, %s", config.ENGINE_DISPATCH_TYPE, config.DISPATCH_TYPE_MEMORY, config.DISPATCH_TYPE_REDIS)
	}

	registry := engine.NewActionRegistry(capabilities)
	deps := actions.Deps{HTTPClient: actions.NewHTTPClient()}
	if rdb != nil {
		deps.Redis = rdb
	}
	if err := actions.RegisterBuiltins(registry, deps); err != nil {
		db.Close()
		return nil, err
	}
	for _, a := range opts.Actions {
		if err := registry.Register(a); err != nil {
			db.Close()
			return nil, err
		}
	}

	entities := engine.NewEntityRegistry()
	for _, et := range opts.Entities {
		if err := entities.Register(et); err != nil {
			db.Close()
			return nil, err
		}
	}

	workflowRepo := repository.NewWorkflowRepository(db, clock)
	executionRepo := repository.NewActionExecutionRepository(db)
	executorRepo := repository.NewExecutorRepository(db)
	apiClientRepo := repository.NewApiClientRepository(db, clock)

	eng := engine.NewEngine(engine.Options{
		Workflows:  workflowRepo,
		Logs:       workflowRepo,
		Executions: executionRepo,
		Executors:  executorRepo,
		Dispatcher: dispatcher,
		Actions:    registry,
		Entities:   entities,
		Clock:      clock,
		MaxLogs:    config.MaxLogEntries(),
	})

	mux := opts.Mux
	if mux == nil {
		mux = http.NewServeMux()
	}
	controllers.NewTriggersController(eng.Triggers, apiClientRepo).RegisterRoutes(mux)
	controllers.NewWorkflowsController(workflowRepo, executionRepo, eng.Triggers, registry, apiClientRepo).RegisterRoutes(mux)
	controllers.NewActionsController(registry, entities, apiClientRepo).RegisterRoutes(mux)
	controllers.NewExecutorsController(eng, apiClientRepo).RegisterRoutes(mux)
	controllers.NewApiClientsController(apiClientRepo).RegisterRoutes(mux)

	return &App{
		DB:         db,
		Engine:     eng,
		Workflows:  workflowRepo,
		ApiClients: apiClientRepo,
		Redis:      rdb,
		Mux:        mux,
		clock:      clock,
	}, nil
}

// RegisterEntity adds an entity type after Setup.
func (a *App) RegisterEntity(et core.EntityType) error {
	return a.Engine.Entities.Register(et)
}

// RegisterTableEntity adds an entity type reloaded from one row of table on every
// model event, so triggers only need to carry the id.
func (a *App) RegisterTableEntity(name, table, idColumn string, fields []string) error {
	loader, err := repository.NewRowLoader(a.DB, table, idColumn, fields)
	if err != nil {
		return err
	}
	return a.RegisterEntity(core.EntityType{Name: name, Fields: fields, Loader: loader})
}

// Run starts the workers and the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.bootstrapApiKey(ctx); err != nil {
		return err
	}
	a.Engine.Start(ctx)

	addr := ":" + config.GetSystemSettingString(config.ENGINE_SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	srv := &http.Server{Addr: addr, Handler: a.Mux, ReadHeaderTimeout: 10 * time.Second}
	failed := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		slog.Error("HTTP server failed", "error", err)
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("Stopping HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	_ = a.DB.Close()
}

// bootstrapApiKey registers the configured key so a fresh install can call the API.
func (a *App) bootstrapApiKey(ctx context.Context) error {
	raw := config.GetSystemSettingString(config.BOOTSTRAP_API_KEY)
	if raw == "" {
		return nil
	}
	keyID, secret, ok := repository.SplitApiKey(raw)
	if !ok {
		return errors.Errorf("%s must look like <keyId>.<secret>", config.BOOTSTRAP_API_KEY)
	}
	existing, err := a.ApiClients.FindByKeyID(ctx, keyID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := a.ApiClients.Save(ctx, &domain.ApiClient{Name: "bootstrap", KeyID: keyID, KeyHash: string(hash)}); err != nil {
		return errors.WithMessage(err, "save bootstrap api client")
	}
	slog.Info("Registered bootstrap api client", "key_id", keyID)
	return nil
}

func setupDatabase() (*sql.DB, error) {
	switch config.GetSystemSettingString(config.DATABASE_TYPE) {
	case config.DATABASE_TYPE_POSTGRES:
		return setupPostgresDatabase()
	case config.DATABASE_TYPE_MYSQL:
		return setupMysqlDatabase()
	case config.DATABASE_TYPE_SQLLITE:
		return setupSqlLiteDatabase()
	}
	return nil, errors.Errorf("%s must be set to one of the following values: POSTGRES, MYSQL, SQLLITE", config.DATABASE_TYPE)
}

func setupPostgresDatabase() (*sql.DB, error) {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		return nil, errors.Errorf("%s must be set when using the POSTGRES database type", config.DATABASE_URL)
	}
	slog.Info("Running migrations", "database", "postgres")
	if err := migrations.Run(migrations.Postgres, dbURL); err != nil {
		return nil, errors.WithMessage(err, "DB migration failed")
	}
	slog.Info("Opening Postgres database")
	return open("postgres", dbURL)
}

func setupSqlLiteDatabase() (*sql.DB, error) {
	fileName := config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME)
	slog.Info("Using SQLite database", "file", fileName)
	if err := migrations.Run(migrations.SQLite, "sqlite3://"+fileName); err != nil {
		return nil, errors.WithMessage(err, "DB migration failed")
	}
	db, err := open("sqlite3", fileName)
	if err != nil {
		return nil, err
	}
	// SQLite takes one writer at a time.
	db.SetMaxOpenConns(1)
	return db, nil
}

func setupMysqlDatabase() (*sql.DB, error) {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if !strings.HasPrefix(dbURL, "mysql://") {
		return nil, errors.Errorf("%s must start with 'mysql://' for MySQL", config.DATABASE_URL)
	}
	if !strings.Contains(dbURL, "parseTime=true") {
		return nil, errors.Errorf("%s must contain 'parseTime=true' for MySQL", config.DATABASE_URL)
	}
	slog.Info("Running migrations", "database", "mysql")
	if err := migrations.Run(migrations.MySQL, dbURL); err != nil {
		return nil, errors.WithMessage(err, "DB migration failed")
	}
	slog.Info("Opening MySQL database")
	return open("mysql", strings.Replace(dbURL, "mysql://", "", 1))
}

func open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.WithMessagef(err, "open %s database", driver)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.WithMessagef(err, "ping %s database", driver)
	}
	return db, nil
}

func SetupLogger() {
	SetupLoggerWithClock(nil)
}

// SetupLoggerWithClock installs the tint handler. A non nil clock stamps records with
// its time, which keeps logs readable in tests driving a fake clock.
func SetupLoggerWithClock(clock core.Clock) {
	opts := &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.RFC3339Nano,
	}
	if clock != nil {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Time(slog.TimeKey, clock.Now())
			}
			return a
		}
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, opts)))
}
