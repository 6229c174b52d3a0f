package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gaitworks/posture.report/internal/api"
	"github.com/gaitworks/posture.report/internal/config"
	"github.com/gaitworks/posture.report/internal/db"
	"github.com/gaitworks/posture.report/internal/pose"
	"github.com/gaitworks/posture.report/internal/session"
)

var (
	devMode       = flag.Bool("dev", false, "Run in dev mode: replay fixture frames instead of calling the pose model")
	fixturesFile  = flag.String("fixtures", "fixtures.jsonl", "Fixture frame log for dev mode")
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "posture_runs.db", "SQLite database file")
	configFile    = flag.String("config", "", "Optional tuning config JSON file")
	migrationsDir = flag.String("migrations", "", "Run file-based migrations from this directory instead of the built-in schema")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyTuningConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	var source pose.Source
	if *devMode {
		data, err := os.ReadFile(*fixturesFile)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		source = pose.NewFixtureSource(data, true)
	} else {
		source = pose.NewHTTPSource(cfg.GetPoseURL(), nil)
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if *migrationsDir != "" {
		if err := database.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	} else if err := database.EnsureSchema(); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	var submitter session.Submitter
	if url := cfg.GetBackendURL(); url != "" {
		submitter = session.NewBackendClient(url, cfg.GetSourceName(), nil)
	}

	sess := session.New(
		cfg.SessionConfig(),
		nil,
		source,
		pose.NewSelector(cfg.SelectorConfig()),
		pose.NewClassifier(cfg.ClassifierConfig()),
		database,
		submitter,
	)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// frame loop goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("frame loop terminated: %v", err)
		}
		log.Print("frame loop stopped")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		apiMux := api.NewServer(sess, database).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
