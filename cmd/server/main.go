package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/inamate/panels/backend-go/internal/asset"
	"github.com/inamate/panels/backend-go/internal/auth"
	"github.com/inamate/panels/backend-go/internal/config"
	"github.com/inamate/panels/backend-go/internal/export"
	"github.com/inamate/panels/backend-go/internal/library"
	mw "github.com/inamate/panels/backend-go/internal/middleware"
	"github.com/inamate/panels/backend-go/internal/session"
	"github.com/inamate/panels/backend-go/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authService := auth.NewService(st, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService, logger)

	libraryService := library.NewService(st)
	libraryHandler := library.NewHandler(libraryService, logger)

	resolver, err := asset.NewResolver(cfg.AssetDir, logger)
	if err != nil {
		logger.Error("watch asset dir", "dir", cfg.AssetDir, "error", err)
		os.Exit(1)
	}
	defer resolver.Close()

	assetHandler := asset.NewHandler(cfg.AssetDir, logger)
	exportHandler := export.NewHandler(libraryService, resolver, logger)

	opts := cfg.EditorOptions()
	opts.Resolver = resolver
	hub := session.NewHub(st, opts, session.Config{
		Autosave:   cfg.Editor.Autosave,
		InputRate:  cfg.Editor.InputRate,
		InputBurst: cfg.Editor.InputBurst,
	}, logger)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery(logger))
	r.Use(mw.Logger(logger))
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public, rate limited)
	authRoutes := r.PathPrefix("/auth").Subrouter()
	authRoutes.Use(mw.RateLimit(ctx, 5, 10))
	authRoutes.HandleFunc("/register", authHandler.Register).Methods("POST")
	authRoutes.HandleFunc("/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		auth.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": len(hub.Rooms())})
	}).Methods("GET")

	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.PathPrefix(asset.URLPrefix).Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/comics", libraryHandler.List).Methods("GET")
	api.HandleFunc("/comics", libraryHandler.Create).Methods("POST")
	api.HandleFunc("/comics/{comicId}", libraryHandler.Get).Methods("GET")
	api.HandleFunc("/comics/{comicId}", libraryHandler.Delete).Methods("DELETE")
	api.HandleFunc("/comics/{comicId}/document", libraryHandler.GetDocument).Methods("GET")
	api.HandleFunc("/comics/{comicId}/document", libraryHandler.PutDocument).Methods("PUT")
	api.HandleFunc("/comics/{comicId}/pages/{pageId}/export.svg", exportHandler.ExportSVG).Methods("GET")

	assetAdmin := r.PathPrefix(asset.URLPrefix).Subrouter()
	assetAdmin.Use(authService.AuthMiddleware)
	assetAdmin.HandleFunc("/{file}", assetHandler.DeleteFile).Methods("DELETE")

	// WebSocket endpoint
	patterns := originPatterns(cfg.Origins())
	r.HandleFunc("/ws/comic/{comicId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, libraryService, patterns, logger)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down server")

		// Stop hub first to save all open comics
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", "addr", addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// openStore builds the configured backend, fronted by Redis when REDIS_URL
// is set.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	var st store.Store
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if err := store.Migrate(cfg.DatabaseURL, logger); err != nil {
			return nil, err
		}
		pool, err := store.NewPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		st = store.NewPostgres(pool)
	case config.StoreSQLite:
		sq, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		st = sq
	default:
		logger.Warn("using in-memory store; comics are lost on exit")
		st = store.NewMemory()
	}

	if cfg.RedisURL == "" {
		return st, nil
	}
	rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, running without cache", "error", err)
		return st, nil
	}
	return store.NewCached(st, rdb, time.Duration(cfg.CacheTTL)*time.Second, logger), nil
}

// originPatterns turns allowed origins into the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, strings.TrimSuffix(o, "/"))
	}
	return out
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, lib *library.Service, patterns []string, logger *slog.Logger) {
	comicID := mux.Vars(r)["comicId"]

	// Browsers cannot set headers on websocket requests; the token may come
	// from the query string.
	userID, err := authSvc.Authenticate(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := lib.Authorize(r.Context(), comicID, userID); err != nil {
		switch {
		case errors.Is(err, library.ErrNotFound):
			http.Error(w, "comic not found", http.StatusNotFound)
		case errors.Is(err, library.ErrForbidden):
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			logger.Error("authorize comic", "comic", comicID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	user, err := authSvc.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "user not found", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: patterns,
	})
	if err != nil {
		logger.Error("websocket accept", "error", err)
		return
	}

	client := hub.NewClient(conn, userID, user.DisplayName, comicID)

	ctx := r.Context()
	if err := hub.Join(ctx, client); err != nil {
		logger.Error("join session", "comic", comicID, "error", err)
		conn.Close(websocket.StatusInternalError, "could not open comic")
		return
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
