package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/teesien1998/Synthoria/internal/handlers"
	"github.com/teesien1998/Synthoria/internal/services"
	"github.com/teesien1998/Synthoria/internal/telemetry"
)

func main() {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
	}
	cfgPath := filepath.Join(cfgDir, "synthoria")
	if err := os.MkdirAll(cfgPath, 0755); err != nil {
		log.Fatal(fmt.Errorf("error creating config directory: %w", err))
	}

	cfg, err := loadConfig(filepath.Join(cfgPath, "config.yaml"))
	if err != nil {
		log.Fatal(err)
	}

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = filepath.Join(cfgPath, "logs")
	}
	logger, err := telemetry.InitLogger(logDir)
	if err != nil {
		log.Fatal(err)
	}

	_, _, telemetryCleanup, err := telemetry.Init(context.Background(), logDir)
	if err != nil {
		log.Fatal(err)
	}
	defer telemetryCleanup()

	clerk.SetKey(cfg.ClerkSecretKey)

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(cfgPath, "store.db")
	}
	boltDB, err := services.NewBoltDB(dbPath)
	if err != nil {
		log.Fatal(err)
	}

	llm := services.NewOpenRouter(cfg.OpenRouterAPIKey, cfg.SystemPrompt, logger)

	m, err := handlers.NewMain(
		llm,
		boltDB,
		boltDB,
		cfg.Models,
		cfg.ClerkWebhookSecret,
		cfg.streamTimeout(),
		logger,
	)
	if err != nil {
		log.Fatal(err)
	}

	// Authenticated API routes carry the caller's session in the request
	// context; the webhook authenticates itself through its signature.
	protected := clerkhttp.WithHeaderAuthorization()

	mux := http.NewServeMux()
	mux.Handle("/api/chat/ai", protected(http.HandlerFunc(m.HandleChatAI)))
	mux.Handle("/api/chat/create", protected(http.HandlerFunc(m.HandleChatCreate)))
	mux.Handle("/api/chat/get", protected(http.HandlerFunc(m.HandleChatList)))
	mux.Handle("/api/chat/rename", protected(http.HandlerFunc(m.HandleChatRename)))
	mux.Handle("/api/chat/delete", protected(http.HandlerFunc(m.HandleChatDelete)))
	mux.HandleFunc("/api/clerk", m.HandleClerkWebhook)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		log.Println("Server starting on :" + cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Printf("Server error: %v", err)

	case sig := <-shutdown:
		log.Printf("Start shutdown, signal: %v", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
			if err := srv.Close(); err != nil {
				log.Printf("Forcing server close: %v", err)
			}
		}
	}
}
