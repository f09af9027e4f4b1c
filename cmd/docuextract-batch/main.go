package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/classify"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/export"
	"github.com/joseph-ayodele/docuextract/internal/ingest"
	"github.com/joseph-ayodele/docuextract/internal/llm"
	"github.com/joseph-ayodele/docuextract/internal/llm/gemini"
	"github.com/joseph-ayodele/docuextract/internal/llm/remote"
	"github.com/joseph-ayodele/docuextract/internal/metrics"
	"github.com/joseph-ayodele/docuextract/internal/pipeline"
	"github.com/joseph-ayodele/docuextract/internal/preprocess"
	"github.com/joseph-ayodele/docuextract/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem     = flag.Bool("inmem", false, "persist documents to an in-memory SQLite database")
		dir       = flag.String("dir", "", "directory to process PDFs from (required)")
		out       = flag.String("out", "", "output file path (optional, defaults to the parent directory)")
		formatStr = flag.String("format", "xlsx", "export format: csv, json or xlsx")
		serverURL = flag.String("server", "", "extract through a running docuextract server instead of calling the provider")
		docType   = flag.String("type", "", "fixed document type hint (handwritten, typed, mixed); random when empty")
		workers   = flag.Int("concurrency", 8, "files read in parallel")
		timeout   = flag.Duration("timeout", 30*time.Minute, "overall deadline")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	format, err := export.ParseFormat(*formatStr)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), format.FileName(time.Now()))
	}

	cfg := common.LoadConfig()
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	storeCfg := cfg.Store
	if *inmem {
		storeCfg.DSN = ":memory:"
	}
	store, closeDB, err := server.ConnectStore(ctx, storeCfg, logger)
	if err != nil {
		logger.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	var extractor llm.FieldExtractor
	if *serverURL != "" {
		rc := remote.NewClient(*serverURL, cfg.LLM.Timeout, logger)
		if err := rc.Health(ctx); err != nil {
			logger.Error("extraction server is not healthy", "server", *serverURL, "error", err)
			os.Exit(1)
		}
		extractor = rc
	} else {
		gc, err := gemini.New(ctx, gemini.ConfigFrom(cfg.LLM), logger)
		if err != nil {
			logger.Error("failed to create extraction client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = gc.Close() }()
		extractor = gc
	}

	var classifier classify.Classifier = classify.NewWeightedRandom(nil)
	if *docType != "" {
		t, ok := constants.ParseDocumentType(*docType)
		if !ok {
			printError("Error: --type must be one of %v\n", constants.DocumentTypes())
			os.Exit(1)
		}
		classifier = classify.Fixed(t)
	}

	pcfg := pipeline.ConfigFrom(cfg.Pipeline)
	pcfg.PreprocessDelay, pcfg.ClassifyDelay = 0, 0
	pipe, err := pipeline.New(pcfg, pipeline.Deps{
		Store:        store,
		Extractor:    extractor,
		Preprocessor: preprocess.NewPDFInspector(logger),
		Classifier:   classifier,
	}, logger)
	if err != nil {
		logger.Error("failed to create pipeline", "error", err)
		os.Exit(1)
	}

	paths, stats, err := ingest.CollectPDFs(*dir, true)
	if err != nil {
		logger.Error("failed to scan directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	logger.Info("scan complete", "dir", *dir, "scanned", stats.Scanned, "matched", stats.Matched)

	uploads := make([]pipeline.Upload, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			up, _, err := ingest.LoadFile(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			uploads[i] = up
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("failed to read files", "error", err)
		os.Exit(1)
	}

	accepted, rejected, err := pipe.Submit(ctx, uploads)
	if err != nil {
		logger.Error("failed to submit documents", "error", err)
		os.Exit(1)
	}
	for _, r := range rejected {
		logger.Warn("file rejected", "file", r.Name, "reason", r.Reason)
	}
	logger.Info("processing", "accepted", len(accepted), "rejected", len(rejected))

	pipe.Wait()
	if err := pipe.Shutdown(ctx); err != nil {
		logger.Warn("pipeline shutdown incomplete", "error", err)
	}

	docs, err := store.ListAll(ctx)
	if err != nil {
		logger.Error("failed to list documents", "error", err)
		os.Exit(1)
	}
	for _, d := range docs {
		if d.Status == constants.StatusFailed {
			logger.Warn("document failed", "document_id", d.ID, "file", d.SourceFile.Name, "error", d.Error)
		}
	}

	data, _, err := export.NewService(store, logger).Export(ctx, format)
	if err != nil {
		logger.Error("failed to export documents", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	sum := metrics.Summarize(docs)
	logger.Info("batch processing complete",
		"documents", sum.TotalDocuments,
		"completed", sum.SuccessCount,
		"failed", sum.FailureCount,
		"total_cost", sum.TotalCost,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files found: %d\n", len(paths))
	fmt.Printf("- Completed: %d\n", sum.SuccessCount)
	fmt.Printf("- Failed: %d\n", sum.FailureCount)
	fmt.Printf("- Rejected: %d\n", len(rejected))
	fmt.Printf("- Estimated cost: $%.4f\n", sum.TotalCost)
	fmt.Printf("- Output: %s\n", *out)
}
