/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the wheel ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration
  2. Parse command-line flags (flags override environment)
  3. Initialize SQLite document store
  4. Load game rules (JSON file or built-in defaults)
  5. Wire funding, spin, and tournament engines
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: WHEEL_HTTP_PORT or 8080)
  -db      SQLite database path (default: WHEEL_DB_PATH or wheel.db)
           Use ":memory:" for in-memory database
  -game    Game rules JSON path (default: built-in rules)
  -seed    Load demo accounts and requests on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/wheel.db"

  # Run with in-memory database and demo data
  ./server -db=":memory:" -seed

  # Run with custom game rules
  ./server -game="./rules/production.json"

ENVIRONMENT:
  WHEEL_HTTP_PORT, WHEEL_DB_PATH, WHEEL_JWT_SECRET,
  WHEEL_GAME_CONFIG, WHEEL_RETRY_ATTEMPTS

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/game.go: Game rule snapshot
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spinzone/wheel-ledger/api"
	"github.com/spinzone/wheel-ledger/config"
	"github.com/spinzone/wheel-ledger/funding"
	"github.com/spinzone/wheel-ledger/ledger"
	"github.com/spinzone/wheel-ledger/spin"
	"github.com/spinzone/wheel-ledger/store/sqlite"
	"github.com/spinzone/wheel-ledger/tournament"
)

func main() {
	// Environment first, flags override
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	gamePath := flag.String("game", cfg.GameConfigPath, "game rules JSON path")
	seed := flag.Bool("seed", false, "load demo data on startup")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Game rules
	game := config.DefaultGame()
	if *gamePath != "" {
		game, err = config.LoadGame(*gamePath)
		if err != nil {
			log.Fatalf("Failed to load game rules: %v", err)
		}
	}
	if err := game.Validate(); err != nil {
		log.Fatalf("Invalid game rules: %v", err)
	}

	// Wire engines
	clock := ledger.SystemClock{}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	handler := api.NewHandler(
		store,
		funding.New(store, clock),
		spin.NewEngine(store, clock, rng),
		tournament.New(store, clock),
		game,
		cfg.RetryAttempts,
	)

	if *seed {
		if err := handler.Seed(context.Background()); err != nil {
			log.Printf("Warning: Failed to seed demo data: %v", err)
		}
	}

	// Create router
	router := api.NewRouter(handler, cfg.JWTSecret)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
