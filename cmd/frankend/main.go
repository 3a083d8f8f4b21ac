// Package main is the entry point for the frankend daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/frankenlab/frankend/internal/agent"
	"github.com/frankenlab/frankend/internal/api"
	"github.com/frankenlab/frankend/internal/auth"
	"github.com/frankenlab/frankend/internal/chat"
	"github.com/frankenlab/frankend/internal/credits"
	"github.com/frankenlab/frankend/internal/crypto"
	"github.com/frankenlab/frankend/internal/llm"
	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

var (
	configPath  = flag.String("config", "", "Path to config file")
	initMode    = flag.Bool("init", false, "Initialize a new frankend instance")
	projectPath = flag.String("path", ".", "Project path for initialization")
	showVersion = flag.Bool("version", false, "Show version")
)

const version = "0.1.0"

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("frankend version %s\n", version)
		os.Exit(0)
	}

	// Optional .env for local development
	_ = godotenv.Load()

	if *initMode {
		if err := initializeFrankend(*projectPath); err != nil {
			log.Fatalf("Initialization failed: %v", err)
		}
		fmt.Println("frankend initialized successfully!")
		os.Exit(0)
	}

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := run(config); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func loadConfig(path string) (*types.Config, error) {
	// Use default config if no path specified
	if path == "" {
		candidates := []string{
			"frankend.yaml",
			"frankend.yml",
			".frankend/config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	// Return default config if no file found
	if path == "" {
		return types.DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := types.DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

func run(config *types.Config) error {
	log.Printf("Starting frankend daemon v%s", version)

	// Initialize crypto
	keyManager := crypto.NewKeyManager(config.Crypto.IdentityPath)
	if err := keyManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize crypto: %w", err)
	}
	log.Printf("Crypto initialized, public key: %s", keyManager.PublicKeyHint())

	payloadService := crypto.NewPayloadService(keyManager)

	// Initialize store
	db, err := store.Open(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	log.Printf("Database initialized: %s", config.Database.Path)

	// Initialize sub-stores
	users := store.NewUserStore(db)
	blueprints := store.NewBlueprintStore(db)
	agents := store.NewAgentStore(db)
	sessions := store.NewSessionStore(db)
	usage := store.NewUsageStore(db)

	// Initialize services
	authService := auth.NewService(users, config.Auth, config.Credits.StartingBalance)
	ledger := credits.NewLedger(users, usage, config.Credits)
	modelRouter := llm.NewRouter(&config.Models, payloadService, users)
	agentService := agent.NewService(agents, blueprints)

	chatManager, err := chat.NewManager(sessions, agents, modelRouter, ledger)
	if err != nil {
		return fmt.Errorf("failed to initialize chat manager: %w", err)
	}

	// Initialize API router
	router := api.NewRouter(authService, blueprints, users, agentService, chatManager, ledger, payloadService)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router.Handler(),
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Print startup info
	log.Printf("FrankenAgent Lab backend ready!")
	log.Printf("  API: http://%s/api/v1", addr)
	log.Printf("  WebSocket: ws://%s/ws", addr)
	log.Printf("  Default model: %s", modelRouter.DefaultModel())

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

func initializeFrankend(projectPath string) error {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return err
	}

	// Create .frankend directory
	frankendDir := filepath.Join(absPath, ".frankend")
	if err := os.MkdirAll(frankendDir, 0755); err != nil {
		return fmt.Errorf("failed to create .frankend directory: %w", err)
	}

	// Create default config
	config := types.DefaultConfig()
	config.Database.Path = filepath.Join(absPath, "frankend.db")
	config.Crypto.IdentityPath = filepath.Join(frankendDir, "frankend.key")

	configData, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(absPath, "frankend.yaml")
	if err := os.WriteFile(configPath, configData, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Created config: %s\n", configPath)

	// Initialize crypto
	keyManager := crypto.NewKeyManager(config.Crypto.IdentityPath)
	if err := keyManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize crypto: %w", err)
	}
	fmt.Printf("Created identity: %s\n", config.Crypto.IdentityPath)
	fmt.Printf("Public key: %s\n", keyManager.PublicKey())

	// Initialize store
	db, err := store.Open(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	db.Close()
	fmt.Printf("Created database: %s\n", config.Database.Path)

	return nil
}
