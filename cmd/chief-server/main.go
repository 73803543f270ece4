// Package main is the entry point for the police dispatch server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/policechief/server/internal/content"
	"github.com/policechief/server/internal/engine"
	"github.com/policechief/server/internal/events"
	"github.com/policechief/server/internal/infra/cache"
	"github.com/policechief/server/internal/infra/ledger"
	"github.com/policechief/server/internal/infra/storage"
	"github.com/policechief/server/internal/network"
	"github.com/policechief/server/internal/platform/config"
	"github.com/policechief/server/internal/platform/logger"
	"github.com/policechief/server/internal/platform/metrics"
)

// SQLitePersisterAdapter translates domain events to storage events.
type SQLitePersisterAdapter struct {
	repo *storage.SQLiteEventRepository
}

func (a *SQLitePersisterAdapter) Append(event events.GameEvent) error {
	payloadBytes, _ := json.Marshal(event.Payload)
	var payloadMap map[string]interface{}
	json.Unmarshal(payloadBytes, &payloadMap)

	storageEvent := storage.GameEvent{
		ID:        event.ID,
		ProfileID: event.ProfileID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		Payload:   payloadMap,
		TickTime:  event.TickTime,
	}
	return a.repo.Append(context.Background(), storageEvent)
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	log.Println("[CHIEF-SERVER] Initializing dispatch server...")

	appLogger := logger.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	appLogger.Info("Initializing SQLite database %s...", cfg.DBPath)
	db, err := storage.InitSQLite(cfg.DBPath, cfg.Tuning.DBMaxOpenConns, cfg.Tuning.DBMaxIdleConns)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	profileRepo := storage.NewSQLiteProfileRepository(db)
	eventRepo := storage.NewSQLiteEventRepository(db)
	eventPersister := &SQLitePersisterAdapter{repo: eventRepo}

	creditLedger, err := ledger.NewSQLiteLedger(db)
	if err != nil {
		appLogger.Error("Failed to initialize ledger: %v", err)
		os.Exit(1)
	}

	appLogger.Info("Loading content packs from %s...", cfg.ContentDir)
	loader := content.NewLoader(cfg.ContentDir, cfg.SchemaDir, appLogger)
	if err := loader.Load(); err != nil {
		appLogger.Error("Failed to load content: %v", err)
		os.Exit(1)
	}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(eventPersister)

	appLogger.Info("Bootstrapping Engine...")
	collector := metrics.Get()
	gameEngine := engine.New(cfg, appLogger, loader, profileRepo, creditLedger, eventLog, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := engine.NewScheduler(gameEngine, profileRepo, appLogger,
		time.Duration(cfg.Engine.BackgroundIntervalSeconds)*time.Second)
	scheduler.Start(ctx)

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(gameEngine, appLogger, collector)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	profileCache := cache.NewProfileCache(cache.NewMemoryClient())

	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r, cfg, appLogger)
	})

	api := network.NewAPI(gameEngine, profileCache, appLogger)
	api.RegisterRoutes(mux)

	admin := network.NewAdminBridge(gameEngine, loader, eventLog, hub, appLogger)
	admin.RegisterRoutes(mux)

	history := network.NewHistoryHandler(eventLog, appLogger)
	history.RegisterRoutes(mux)

	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("[CHIEF-SERVER] HTTP API & WS Server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[CHIEF-SERVER] Server running. Press Ctrl+C to exit.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[CHIEF-SERVER] Shutting down...")
	scheduler.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown failed: %v", err)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow cross-origin requests for the web client
	},
}

// serveWs handles websocket requests from the peer.
func serveWs(hub *network.Hub, w http.ResponseWriter, r *http.Request, cfg *config.Config, log *logger.Logger) {
	profileID := r.URL.Query().Get("profile_id")
	if profileID == "" {
		http.Error(w, "Missing profile_id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade websocket connection: %v", err)
		return
	}

	client := network.NewClient(hub, conn, profileID, cfg.Tuning.ClientSendBuffer)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
