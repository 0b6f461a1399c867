package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/venuekit/venuekit/backend-go/internal/auth"
	"github.com/venuekit/venuekit/backend-go/internal/collab"
	"github.com/venuekit/venuekit/backend-go/internal/config"
	"github.com/venuekit/venuekit/backend-go/internal/db"
	"github.com/venuekit/venuekit/backend-go/internal/document"
	mw "github.com/venuekit/venuekit/backend-go/internal/middleware"
	"github.com/venuekit/venuekit/backend-go/internal/scene"
	"github.com/venuekit/venuekit/backend-go/internal/venue"
)

// Playground venue allows anonymous editing and is never persisted
const playgroundVenueID = "venue_playground"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.StorageDriver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			slog.Error("create data dir", "error", err)
			os.Exit(1)
		}
	}

	store, err := db.Open(ctx, cfg.StorageDriver, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		slog.Error("connect to database", "error", err, "driver", cfg.StorageDriver)
		os.Exit(1)
	}
	defer store.Close()

	authService := auth.NewService(store, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	venueService := venue.NewService(store, cfg.SnapshotHistory)
	venueHandler := venue.NewHandler(venueService)

	// Document loader for the collaboration hub
	docLoader := func(ctx context.Context, venueID string) (*document.Document, error) {
		if venueID == playgroundVenueID {
			return scene.NewSample().Document(), nil
		}
		return venueService.LoadDocument(ctx, venueID)
	}

	// Document saver for the collaboration hub
	docSaver := func(ctx context.Context, venueID string, doc *document.Document) error {
		if venueID == playgroundVenueID {
			return nil
		}
		if err := venueService.SaveDocument(ctx, venueID, doc); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		return nil
	}

	hub := collab.NewHub(docLoader, docSaver, cfg.AutosaveInterval)
	venueService.SetLive(hub)
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	venueHandler.Routes(api)

	// WebSocket endpoint
	originPatterns := cfg.OriginPatterns()
	r.HandleFunc("/ws/venue/{venueId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, venueService, originPatterns)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr: addr,
		// CORS wraps the router so preflight requests never hit method matching
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty documents
		slog.Info("saving all venues...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "storage", cfg.StorageDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, venueSvc *venue.Service, originPatterns []string) {
	venueID := mux.Vars(r)["venueId"]

	var userID string
	var displayName string

	if venueID == playgroundVenueID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		// Auth via query param for real venues
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		if err := venueSvc.CheckAccess(r.Context(), venueID, userID); err != nil {
			http.Error(w, "not a venue member", http.StatusForbidden)
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, venueID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
