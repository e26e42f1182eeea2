/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the character history ledger server. Handles
  configuration, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment config, apply flag overrides
  2. Configure zerolog
  3. Open the SQLite block store
  4. Wire writer, reverter, handler, router
  5. Serve with graceful shutdown

CONFIGURATION:
  Environment (see config package): CHRONICLE_PORT, CHRONICLE_DB,
  CHRONICLE_MAX_BLOCK_BYTES, CHRONICLE_LOG_LEVEL, CHRONICLE_LOG_PRETTY.
  Flags -port and -db override the environment for local runs.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, drain active requests
  (30s timeout), close the database, exit.

EXAMPLES:
  # Run with file database
  ./server -db="./data/chronicle.db"

  # Run with in-memory database
  ./server -db=":memory:"
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/questforge/chronicle/api"
	"github.com/questforge/chronicle/character"
	"github.com/questforge/chronicle/config"
	"github.com/questforge/chronicle/ledger"
	"github.com/questforge/chronicle/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	flag.Parse()

	log := newLogger(cfg)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	writer := ledger.NewWriter(store, character.NewCodec())
	writer.MaxBlockBytes = cfg.MaxBlockBytes

	reverter := character.NewReverter(store, store)
	reverter.Log = log

	handler := api.NewHandler(writer, reverter, store, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Str("db", *dbPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.PrettyLog {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
