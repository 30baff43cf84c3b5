package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-be/internal/config"
	"catalog-be/internal/db"
	"catalog-be/internal/logger"
	"catalog-be/internal/metrics"
	"catalog-be/internal/middleware"
	"catalog-be/internal/product"
	"catalog-be/internal/upload"
	"catalog-be/internal/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterSweep    = time.Minute
)

var (
	initDBFunc = func(cfg *config.Config) (*db.Lazy, error) {
		return db.NewLazy(cfg.DatabaseURL, cfg.DBName, db.WithOnConnect(prepareDB))
	}
	startServerFunc = func(srv *http.Server) error {
		return srv.ListenAndServe()
	}
	newHostFunc upload.HostFactory = upload.NewCloudinaryHost
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	conn, err := initDBFunc(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	limiter := middleware.NewRateLimiter(reg)
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newServer(cfg, conn, reg, limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.L().Info("catalog server starting",
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.AppEnv),
		zap.String("backend", string(conn.Kind())),
		zap.Strings("env_files", cfg.LoadedFiles),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The server stopping for any reason ends the other goroutines.
		defer stop()
		if err := startServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		limiter.Cleanup(gctx, limiterSweep)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info("catalog server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if cerr := conn.Close(shutdownCtx); cerr != nil {
			logger.L().Error("failed to close DB", zap.Error(cerr))
		}
		return err
	})

	return g.Wait()
}

// prepareDB runs once per successful connection.
func prepareDB(ctx context.Context, c *db.Conn) error {
	if c.Kind == db.KindMongo {
		return product.EnsureIndexes(ctx, c.Database)
	}
	return nil
}

func newRepository(conn *db.Lazy) product.Repository {
	switch conn.Kind() {
	case db.KindMongo:
		return product.NewMongoRepository(conn)
	case db.KindPostgres:
		return product.NewPostgresRepository(conn)
	default:
		return product.NewMemoryRepository()
	}
}

func newServer(cfg *config.Config, conn *db.Lazy, reg *metrics.Registry, limiter *middleware.RateLimiter) http.Handler {
	productSvc := product.NewService(newRepository(conn), reg)

	relay := upload.NewRelay(upload.Config{
		Credentials: upload.Credentials{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		},
		Folder:   cfg.UploadFolder,
		MaxBytes: cfg.UploadMaxBytes,
	}, newHostFunc, reg)

	router := setupRouter(product.NewHandler(productSvc), upload.NewHandler(relay), reg)

	var h http.Handler = router
	h = limiter.Middleware(h)
	h = middleware.CORS(cfg.CORSOrigin)(h)
	h = logger.LoggingMiddleware(reg)(h)
	h = logger.RequestIDMiddleware(h)
	h = middleware.Recoverer(h)
	return h
}

// setupRouter mounts the API both at the root and under /api.
func setupRouter(products *product.Handler, uploads *upload.Handler, reg *metrics.Registry) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthHandler(reg)).Methods(http.MethodGet)

	for _, sub := range []*mux.Router{r, r.PathPrefix("/api").Subrouter()} {
		products.Register(sub)
		uploads.Register(sub)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSONError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}

func healthHandler(reg *metrics.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "OK",
			"uptime":   reg.Uptime().Round(time.Second).String(),
			"counters": reg.Snapshot(),
		})
	}
}
