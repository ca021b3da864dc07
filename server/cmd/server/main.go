package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/siriusexpedition/sirius/server/internal/api"
	"github.com/siriusexpedition/sirius/server/internal/auth"
	"github.com/siriusexpedition/sirius/server/internal/config"
	"github.com/siriusexpedition/sirius/server/internal/metrics"
	"github.com/siriusexpedition/sirius/server/internal/newsletter"
	"github.com/siriusexpedition/sirius/server/internal/password"
	"github.com/siriusexpedition/sirius/server/internal/visitor"
	"github.com/siriusexpedition/sirius/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve pre-built site files from this directory; overrides server.ui_dir")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("sirius-server starting", "config", *configPath)

	watchConfig := true
	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found, using defaults and environment", "config", *configPath)
		watchConfig = false
		cfg, err = config.FromEnv()
	}
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if *uiDir != "" {
		cfg.Server.UIDir = *uiDir
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"storage", cfg.Server.Storage.Backend,
		"record_key", cfg.Server.Storage.RecordKey,
		"timezone", cfg.Server.Timezone,
		"metrics_auth", cfg.Server.Auth.Metrics.Mode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *configPath, watchConfig); err != nil {
		slog.Error("sirius-server stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("sirius-server shut down")
}

func run(ctx context.Context, cfg *config.Config, configPath string, watchConfig bool) error {
	sc := cfg.Server

	st, err := openStorage(ctx, sc.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	loc, err := sc.Location()
	if err != nil {
		return err
	}

	// Rules are swapped on config reload; every reader goes through the pointer.
	var rules atomic.Pointer[password.Rules]
	initial := sc.Password
	rules.Store(&initial)
	currentRules := func() password.Rules { return *rules.Load() }

	tokens, err := auth.NewTokens(jwtSecret(sc.Auth), sc.Auth.TokenTTL)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(st.accounts, tokens, currentRules)
	if err := bootstrapAdmin(ctx, authSvc, st.accounts,
		os.Getenv("SIRIUS_ADMIN_EMAIL"), os.Getenv("SIRIUS_ADMIN_PASSWORD")); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	reconciler := visitor.New(st.docs,
		visitor.WithRecordKey(sc.Storage.RecordKey),
		visitor.WithLocation(loc),
	)
	registry := metrics.New()

	hub := ws.New(func(ctx context.Context) (visitor.Stats, error) {
		stats, err := reconciler.Stats(ctx)
		if err == nil {
			registry.SetVisitors(stats.Total, stats.Today)
		}
		return stats, err
	}, sc.Hub.Interval)

	apiHandler := api.New(api.Deps{
		Backend:     sc.Storage.Backend,
		Visitors:    reconciler,
		Newsletter:  newsletter.New(sc.Newsletter),
		Auth:        authSvc,
		Metrics:     registry,
		Rules:       currentRules,
		OnVisit:     hub.Notify,
		LiveClients: hub.Count,
	})

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/ws/visitors", auth.RequireAdmin(tokens)(hub))
	httpMux.Handle("/metrics", auth.APIKey(
		sc.Auth.Metrics.Mode,
		sc.Auth.Metrics.EffectiveHeader(),
		sc.Auth.Metrics.Key(),
	)(registry.Handler()))

	// Optional pre-built site. Unknown paths fall back to index.html so
	// client-side routes survive a reload.
	if sc.UIDir != "" {
		files := http.FileServer(http.Dir(sc.UIDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := filepath.Join(sc.UIDir, filepath.Clean("/"+r.URL.Path))
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(sc.UIDir, "index.html"))
				return
			}
			files.ServeHTTP(w, r)
		})
		slog.Info("serving site files", "dir", sc.UIDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if watchConfig {
		g.Go(func() error {
			err := config.Watch(gctx, configPath, func(updated *config.Config) {
				next := updated.Server.Password
				rules.Store(&next)
				if pending := restartSections(sc, updated.Server); len(pending) > 0 {
					slog.Warn("config changes need a restart to apply", "sections", pending)
				}
				slog.Info("password rules reloaded",
					"min_length", next.MinLength,
					"require_uppercase", next.RequireUppercase,
					"require_lowercase", next.RequireLowercase,
					"require_number", next.RequireNumber,
					"require_special_char", next.RequireSpecialChar,
				)
			})
			if err != nil {
				// Serving continues without hot reload.
				slog.Error("config watcher stopped", "err", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// jwtSecret returns the configured signing secret, or a random one that
// invalidates admin sessions on restart.
func jwtSecret(a config.AuthConfig) []byte {
	if s := a.JWTSecret(); s != "" {
		return []byte(s)
	}
	slog.Warn("no JWT secret configured, admin sessions will not survive a restart",
		"env", a.JWTSecretEnv)
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}
	return secret
}
