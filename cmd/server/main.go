// cmd/server/main.go
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

	"github.com/jason-s-yu/ludo/internal/auth"
	"github.com/jason-s-yu/ludo/internal/config"
	"github.com/jason-s-yu/ludo/internal/database"
	"github.com/jason-s-yu/ludo/internal/game"
	"github.com/jason-s-yu/ludo/internal/handlers"
	"github.com/jason-s-yu/ludo/internal/lobby"
	"github.com/jason-s-yu/ludo/internal/notify"
	"github.com/jason-s-yu/ludo/internal/store"
	"github.com/jason-s-yu/ludo/internal/store/memstore"
	"github.com/jason-s-yu/ludo/internal/themes"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// backend is everything the services need from persistence.
type backend interface {
	store.RoomStore
	store.ThemeCatalog
	store.ThemeSeeder
	store.ProfileStore
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	checkers := map[string]handlers.Checker{}

	// --- Store ---
	var be backend
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := database.Connect(ctx, cfg.DSN())
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		db := database.New(pool)
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to postgres")
		checkers["postgres"] = handlers.CheckerFunc(db.Ping)
		be = db
	default:
		logger.Warn("using the in-memory store; state is lost on restart")
		be = memstore.New()
	}

	// --- Notifications ---
	var notifier notify.Notifier
	switch cfg.NotifyDriver {
	case "redis":
		rdb, err := notify.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		rn := notify.NewRedis(rdb, logger)
		logger.Info("connected to redis")
		checkers["redis"] = handlers.CheckerFunc(rn.Ping)
		notifier = rn
	default:
		notifier = notify.NewBroker()
	}

	// --- Identity ---
	expire, err := auth.ParseExpire(cfg.TokenExpire)
	if err != nil {
		return fmt.Errorf("parsing TOKEN_EXPIRE_TIME: %w", err)
	}
	var authority *auth.Authority
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		authority, err = auth.FromFiles(cfg.PrivateKeyPath, cfg.PublicKeyPath, expire)
	} else {
		logger.Warn("no JWT key files configured; generating an ephemeral key pair")
		authority, err = auth.New(expire)
	}
	if err != nil {
		return fmt.Errorf("initializing auth: %w", err)
	}

	// --- Services ---
	templates, err := themes.Defaults()
	if err != nil {
		return fmt.Errorf("loading default themes: %w", err)
	}
	rooms := lobby.NewManager(be, be, be, notifier, logger)
	games := game.NewInitializer(be, notifier, logger)

	repaired, err := games.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("startup reconcile: %w", err)
	}
	if repaired > 0 {
		logger.Warnf("startup reconcile repaired %d room(s)", repaired)
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: handlers.NewRouter(handlers.Deps{
			Logger:     logger,
			Auth:       authority,
			Rooms:      rooms,
			Games:      games,
			Themes:     themes.NewLister(be, be, templates, logger),
			Subscriber: notifier,
			Checkers:   checkers,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("Running on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		games.RunReconciler(gctx, cfg.ReconcileInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
