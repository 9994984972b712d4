// Package runtime assembles the configured stores, services and HTTP stack
// into a runnable server.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	app "github.com/freetime-planner/freetime/internal/app"
	"github.com/freetime-planner/freetime/internal/app/httpapi"
	"github.com/freetime-planner/freetime/internal/app/storage/postgres"
	"github.com/freetime-planner/freetime/internal/app/storage/redisstore"
	"github.com/freetime-planner/freetime/internal/app/system"
	"github.com/freetime-planner/freetime/internal/config"
	"github.com/freetime-planner/freetime/internal/logging"
	"github.com/freetime-planner/freetime/internal/middleware"
	"github.com/freetime-planner/freetime/internal/platform/database"
	"github.com/freetime-planner/freetime/internal/platform/migrations"
	"github.com/freetime-planner/freetime/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	app     *app.Application
	handler http.Handler
	server  *http.Server
}

// NewApplication builds the application from cfg, loading configuration from
// the environment when cfg is nil.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	log := logger.New(cfg.Logging.Logger())

	stores, closers, err := buildStores(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	application := app.New(stores, log)
	for i, closer := range closers {
		if err := application.Attach(closer); err != nil {
			_ = application.Stop(ctx)
			for _, rest := range closers[i:] {
				_ = rest.Stop(ctx)
			}
			return nil, err
		}
	}

	reqLog := logging.New(log.Named("http"))
	var handler http.Handler = httpapi.NewHandler(application, log.Named("httpapi"))
	handler = middleware.LoggingMiddleware(reqLog)(handler)
	if cfg.RateLimit.RPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, reqLog)
		if err := application.Attach(limiter); err != nil {
			_ = application.Stop(ctx)
			return nil, err
		}
		handler = limiter.Handler(handler)
	}
	handler = middleware.NewCORSMiddleware(cfg.CORS.Origins()).Handler(handler)

	return &Application{
		cfg:     cfg,
		log:     log,
		app:     application,
		handler: handler,
		server: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *Application) Handler() http.Handler { return a.handler }

// App exposes the underlying services.
func (a *Application) App() *app.Application { return a.app }

// Run starts background services and serves HTTP until ctx is cancelled or
// the listener fails, then shuts down.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *Application) serve(ctx context.Context, ln net.Listener) error {
	if err := a.app.Start(ctx); err != nil {
		ln.Close()
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s (store: %s)", ln.Addr(), a.cfg.Database.Driver)
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(context.Background())
	case err, ok := <-errCh:
		shutdownErr := a.Shutdown(context.Background())
		if ok && err != nil {
			return errors.Join(err, shutdownErr)
		}
		return shutdownErr
	}
}

// Shutdown drains the HTTP server and stops services within a bounded time.
// It also releases store connections when Run was never called.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	a.log.Info("server stopped")
	return errors.Join(errs...)
}

// Migrate applies the embedded schema to the configured postgres database.
func Migrate(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations require the postgres driver, got %q", cfg.Database.Driver)
	}
	db, err := openPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.Apply(ctx, db.DB)
}

func buildStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (app.Stores, []system.Service, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory, "":
		log.Warn("using in-memory storage; data is lost on restart")
		return app.Stores{}, nil, nil

	case config.DriverPostgres:
		db, err := openPostgres(ctx, cfg.Database)
		if err != nil {
			return app.Stores{}, nil, err
		}
		if cfg.Database.MigrateOnStart {
			if err := migrations.Apply(ctx, db.DB); err != nil {
				db.Close()
				return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		store := postgres.New(db)
		closer := system.Closer{ServiceName: "postgres", CloseFunc: db.Close}
		return app.Stores{Ideas: store, Profiles: store, Plans: store, Invitations: store},
			[]system.Service{closer}, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return app.Stores{}, nil, err
		}
		store := redisstore.New(client, cfg.Redis.Prefix)
		closer := system.Closer{ServiceName: "redis", CloseFunc: client.Close}
		return app.Stores{Ideas: store, Profiles: store, Plans: store, Invitations: store},
			[]system.Service{closer}, nil

	default:
		return app.Stores{}, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return database.Open(ctx, cfg.URL, database.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
}
