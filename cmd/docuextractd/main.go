package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/docuextract/internal/blob"
	"github.com/joseph-ayodele/docuextract/internal/classify"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/export"
	"github.com/joseph-ayodele/docuextract/internal/ingest"
	"github.com/joseph-ayodele/docuextract/internal/llm/gemini"
	"github.com/joseph-ayodele/docuextract/internal/pipeline"
	"github.com/joseph-ayodele/docuextract/internal/preprocess"
	repo "github.com/joseph-ayodele/docuextract/internal/repository"
	"github.com/joseph-ayodele/docuextract/internal/server"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg := common.LoadConfig()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	// Structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(logger)
	defer hub.Close()

	store, closeDB, err := server.ConnectStore(ctx, cfg.Store, logger, repo.WithObserver(hub.Publish))
	if err != nil {
		logger.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	blobs, closeBlobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		logger.Error("failed to open blob store", "backend", cfg.Blob.Backend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeBlobs() }()

	extractor, err := gemini.New(ctx, gemini.ConfigFrom(cfg.LLM), logger)
	if err != nil {
		logger.Error("failed to create extraction client", "backend", cfg.LLM.Backend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = extractor.Close() }()

	pipe, err := pipeline.New(pipeline.ConfigFrom(cfg.Pipeline), pipeline.Deps{
		Store:        store,
		Extractor:    extractor,
		Blobs:        blobs,
		Preprocessor: preprocess.NewPDFInspector(logger),
		Classifier:   classify.NewWeightedRandom(nil),
	}, logger)
	if err != nil {
		logger.Error("failed to create pipeline", "error", err)
		os.Exit(1)
	}
	if n, err := pipe.Recover(ctx); err != nil {
		logger.Error("failed to recover unfinished documents", "error", err)
	} else if n > 0 {
		logger.Info("recovered unfinished documents", "count", n)
	}

	api, err := server.New(server.Deps{
		Documents: pipe,
		Store:     store,
		Extractor: extractor,
		Models:    extractor,
		Export:    export.NewService(store, logger),
		Hub:       hub,
	}, logger)
	if err != nil {
		logger.Error("failed to create http server", "error", err)
		os.Exit(1)
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("docuextract listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	if cfg.WatchDir != "" {
		ing := ingest.NewFSIngestor(pipe, logger)
		go func() {
			err := ing.Watch(ctx, ingest.WatchConfig{
				Roots:       []string{cfg.WatchDir},
				InitialScan: true,
				Debounce:    500 * time.Millisecond,
				Logger:      logger,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("folder watcher stopped", "dir", cfg.WatchDir, "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	if err := pipe.Shutdown(shutdownCtx); err != nil {
		logger.Warn("pipeline shutdown incomplete", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
