// Package main is the entry point for the agentdeck daemon.
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

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/agentdeck/agentdeck/internal/api"
	"github.com/agentdeck/agentdeck/internal/broadcast"
	"github.com/agentdeck/agentdeck/internal/core/dispatch"
	"github.com/agentdeck/agentdeck/internal/core/pipeline"
	"github.com/agentdeck/agentdeck/internal/crypto"
	"github.com/agentdeck/agentdeck/internal/store"
	"github.com/agentdeck/agentdeck/pkg/types"
)

var (
	configPath  = flag.String("config", "", "Path to config file")
	initMode    = flag.Bool("init", false, "Initialize a new agentdeck instance")
	projectPath = flag.String("path", ".", "Project path for initialization")
	showVersion = flag.Bool("version", false, "Show version")
)

const version = "0.1.0"

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("agentdeckd version %s\n", version)
		os.Exit(0)
	}

	if *initMode {
		if err := initialize(*projectPath); err != nil {
			log.Fatalf("Initialization failed: %v", err)
		}
		fmt.Println("agentdeck initialized successfully!")
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
	if path == "" {
		candidates := []string{
			"agentdeck.yaml",
			"agentdeck.yml",
			".agentdeck/config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

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

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = parsed
	}
	return cfg.Build()
}

func run(config *types.Config) error {
	logger, err := newLogger(config.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting agentdeck daemon", zap.String("version", version))

	keyManager := crypto.NewKeyManager(config.Crypto.IdentityPath)
	if err := keyManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize crypto: %w", err)
	}
	logger.Info("crypto initialized", zap.String("public_key", keyManager.PublicKeyHint()))

	st := store.NewStore(config.Storage.Path, config.Events.RetentionCap, logger)
	if err := st.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	broadcaster := broadcast.NewBroadcaster(logger)
	simulator := pipeline.NewSimulator(time.Duration(config.Pipeline.StepDelayMS) * time.Millisecond)
	dispatcher := dispatch.NewDispatcher(st, broadcaster, simulator, logger)
	router := api.NewRouter(st, dispatcher, broadcaster, crypto.NewSealer(keyManager), logger)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router.Handler(),
	}

	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("agentdeck ready",
		zap.String("api", fmt.Sprintf("http://%s/api/v1", addr)),
		zap.String("websocket", fmt.Sprintf("ws://%s/ws", addr)),
		zap.String("storage", st.Path()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Let in-flight background executions finish their current writes.
	dispatcher.Wait()

	logger.Info("server stopped")
	return nil
}

func initialize(projectPath string) error {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return err
	}

	deckDir := filepath.Join(absPath, ".agentdeck")
	if err := os.MkdirAll(deckDir, 0755); err != nil {
		return fmt.Errorf("failed to create .agentdeck directory: %w", err)
	}

	config := types.DefaultConfig()
	config.Storage.Path = filepath.Join(absPath, "agentdeck.db")
	config.Crypto.IdentityPath = filepath.Join(deckDir, "agentdeck.key")

	configData, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(absPath, "agentdeck.yaml")
	if err := os.WriteFile(configPath, configData, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Created config: %s\n", configPath)

	keyManager := crypto.NewKeyManager(config.Crypto.IdentityPath)
	if err := keyManager.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize crypto: %w", err)
	}
	fmt.Printf("Created identity: %s\n", config.Crypto.IdentityPath)
	fmt.Printf("Public key: %s\n", keyManager.PublicKey())

	st := store.NewStore(config.Storage.Path, config.Events.RetentionCap, nil)
	if err := st.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	st.Close()
	fmt.Printf("Created store: %s\n", config.Storage.Path)

	fmt.Println("\nRun 'agentdeckd' to start the server.")
	return nil
}
