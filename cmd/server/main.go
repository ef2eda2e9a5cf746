package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docnorm/internal/api"
	"github.com/dgallion1/docnorm/internal/config"
	"github.com/dgallion1/docnorm/internal/extractor"
	"github.com/dgallion1/docnorm/internal/ingest"
	"github.com/dgallion1/docnorm/internal/parser"
	"github.com/dgallion1/docnorm/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	parseOpt := buildParserOptions(cfg, log)

	orch := ingest.NewOrchestrator(ingest.Config{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, st, parseOpt, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, st, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Drain the HTTP server before the pipeline so in-flight
		// uploads either complete or get a clean rejection.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	log.Info("starting docnorm", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}

// buildParserOptions applies the deployment's parsing configuration on
// top of the defaults.
func buildParserOptions(cfg config.Config, log *slog.Logger) parser.Options {
	opts := parser.DefaultOptions()
	opts.Fetch = parser.HTTPFetcher(cfg.FetchTimeout)
	opts.LineGapFactor = cfg.PDFLineGap
	opts.MaxAssetBytes = cfg.MaxAssetBytes

	docExt := &extractor.ExecExtractor{Command: cfg.DocExtractor, Pattern: "docnorm-*.doc"}
	odtExt := &extractor.ExecExtractor{Command: cfg.ODTExtractor, Pattern: "docnorm-*.odt"}
	opts.DocExtractor = docExt
	opts.ODTExtractor = odtExt

	if !docExt.Available() {
		log.Warn("doc extractor not on PATH, legacy .doc uploads will be rejected", "command", cfg.DocExtractor)
	}
	if !odtExt.Available() {
		log.Warn("odt extractor not on PATH, .odt uploads will be rejected", "command", cfg.ODTExtractor)
	}
	return opts
}
