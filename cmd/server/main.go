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

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"babelroom/directory"
	"babelroom/internal"
	"babelroom/repositories"
	"babelroom/runtime"
	"babelroom/runtime/workers"
	"babelroom/server"
	"babelroom/sink"
	"babelroom/translation"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle and
// centralizes error reporting, so defers (database close, worker
// shutdown) always execute before the process exits.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	translationRepository := repositories.NewTranslationRepository(db, logger)

	// 3. External collaborators
	provider := translation.NewHTTPProvider(logger, config.ProviderURL,
		config.ProviderTimeout, config.ProviderMaxAttempts)
	members := directory.NewStaticDirectory()

	// 4. Core runtime
	registry := runtime.NewRegistry(logger, config.SubscribeTimeout)
	supervisor := workers.NewSupervisor(logger)
	orchestrator := runtime.NewOrchestrator(logger, supervisor, registry, members,
		messageRepository, translationRepository, provider,
		translation.Strategy(config.FanoutStrategy),
		config.NumberOfWorkers, config.BufferSize,
		config.MaxContentLength, config.SinkTimeout)
	orchestrator.Add(sink.NewLogSink(logger))

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		if err := orchestrator.Start(ctx); err != nil {
			logger.Error("Orchestrator stopped", "error", err)
		}
	}()

	// 5. HTTP surface
	handler := server.NewChatHandler(logger, orchestrator,
		config.ConnectionBufferSize, config.DeliveryTimeout)
	srv := &http.Server{
		Handler:      server.NewRouter(handler),
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on %s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		orchestrator.Stop()
		return exitRuntime, err
	case <-ctx.Done():
	}

	// 6. Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Forced server shutdown", "error", err)
	}
	orchestrator.Stop()
	<-workersDone
	return exitOK, nil
}
