package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/chatrelay/internal/adapter/llm"
	"github.com/xiaot623/chatrelay/internal/auth"
	"github.com/xiaot623/chatrelay/internal/config"
	"github.com/xiaot623/chatrelay/internal/hub"
	store "github.com/xiaot623/chatrelay/internal/repository"
	"github.com/xiaot623/chatrelay/internal/service"
	server "github.com/xiaot623/chatrelay/internal/transport/http"
	v1 "github.com/xiaot623/chatrelay/internal/transport/http/v1"
	"github.com/xiaot623/chatrelay/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := cfg.NewLogger()

	logger.Info("starting chatrelay",
		"port", cfg.HTTPPort,
		"database", cfg.DatabaseDriver,
		"provider", cfg.LLMProvider,
		"policy", cfg.ChatPolicy,
	)
	if cfg.JWTSecret == config.DefaultJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the built-in development secret")
	}

	// Initialize store
	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to initialize store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize policy engine
	policyEngine, err := policy.Load(ctx, cfg.ChatPolicy, cfg.ChatPolicyFile)
	if err != nil {
		logger.Error("failed to initialize policy engine", "err", err)
		os.Exit(1)
	}

	// Session event hub
	events := hub.New(logger)
	go events.Run(ctx)

	// Completion gateway and service
	gateway := llm.NewGateway(cfg, logger)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	svc := service.New(db, gateway, policyEngine, events, tokens, logger)

	// HTTP server
	h := v1.NewHandler(svc, events, v1.WSConfig{
		PingInterval: cfg.PingInterval,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
	}, logger)
	e := server.NewServer(h, logger)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "err", err)
			stop()
		}
	}()
	logger.Info("API started", "port", cfg.HTTPPort, "gateway", gateway.Name())

	<-ctx.Done()
	logger.Info("shutting down chatrelay")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", "err", err)
	}

	logger.Info("chatrelay stopped")
}
