package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/docuextract/constants"
	"github.com/joseph-ayodele/docuextract/internal/common"
	"github.com/joseph-ayodele/docuextract/internal/ingest"
	"github.com/joseph-ayodele/docuextract/internal/llm"
	"github.com/joseph-ayodele/docuextract/internal/llm/gemini"
)

// Runs the extraction client against one PDF several times to compare models and latency.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <file.pdf> [times] [handwritten|typed|mixed]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 1
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}
	docType := constants.DocumentTypeTyped
	if len(os.Args) >= 4 {
		t, ok := constants.ParseDocumentType(os.Args[3])
		if !ok {
			logger.Error("invalid document type", "arg", os.Args[3], "valid", constants.DocumentTypes())
			os.Exit(2)
		}
		docType = t
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	up, sum, err := ingest.LoadFile(path)
	if err != nil {
		logger.Error("load pdf", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := gemini.New(ctx, gemini.ConfigFrom(cfg.LLM), logger)
	if err != nil {
		logger.Error("create client", "error", err)
		os.Exit(1)
	}
	defer func() { _ = client.Close() }()

	base := filepath.Base(path)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(ctx, 2*time.Minute)
		start := time.Now()
		logger.Info("extract.run.start", "iter", i, "file", base, "sha256", sum, "type", docType)

		res, raw, err := client.ExtractFields(runCtx, llm.ExtractRequest{
			FileName:     up.Name,
			MIMEType:     up.MIMEType,
			Data:         up.Data,
			DocumentType: docType,
		})
		cancelRun()

		if err != nil {
			logger.Error("extract.run.error", "iter", i, "code", common.CodeOf(err), "err", common.DisplayMessage(err), "raw_len", len(raw))
		} else {
			logger.Info("extract.run.ok", "iter", i, "model", res.Model, "requested_model", res.RequestedModel,
				"warnings", len(res.Warnings), "elapsed_ms", time.Since(start).Milliseconds())
			_ = enc.Encode(res.Response())
		}

		if i < times {
			time.Sleep(750 * time.Millisecond)
		}
	}

	logger.Info("done", "file", base, "times", times)
}
