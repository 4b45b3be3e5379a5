package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"aicodeguard/internal/analyzer"
	"aicodeguard/internal/chunker"
	"aicodeguard/internal/compliance"
	"aicodeguard/internal/config"
	"aicodeguard/internal/corpus"
	"aicodeguard/internal/embedding/openai"
	"aicodeguard/internal/indexer"
	"aicodeguard/internal/llm"
	"aicodeguard/internal/pipeline"
	"aicodeguard/internal/repofetch"
	"aicodeguard/internal/retriever"
	"aicodeguard/internal/tui"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config YAML (default: ./config.yaml, then ~/.config/aicodeguard/config.yaml)")
	repoURL := flag.String("repo", "", "Repository URL to check headlessly (skips the TUI)")
	branch := flag.String("branch", "", "Branch to check (default: main)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}

	gateway, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		Dimension: cfg.Embedder.Dimension,
	})
	if err != nil {
		logger.Fatal("embedding client", "err", err)
	}

	ch, err := chunker.New(cfg.Chunker.TargetSize, cfg.Chunker.Overlap)
	if err != nil {
		logger.Fatal("chunker", "err", err)
	}

	policy := indexer.BackoffPolicy{
		BatchSize:       cfg.Indexer.BatchSize,
		MaxAttempts:     cfg.Indexer.MaxAttempts,
		Backoff:         time.Duration(cfg.Indexer.BackoffMillis) * time.Millisecond,
		InterBatchDelay: time.Duration(cfg.Indexer.InterBatchDelayMs) * time.Millisecond,
		PerItemDelay:    time.Duration(cfg.Indexer.PerItemDelayMillis) * time.Millisecond,
	}
	ix := indexer.New(gateway, ch, cfg.Index.SnapshotPath, policy, logger)

	source := corpus.NewSource(cfg.Corpus.URL, cfg.Corpus.Path, nil, logger)
	ret := retriever.New(ix, gateway, source.Load)

	chat, err := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		logger.Fatal("llm client", "err", err)
	}

	fetcher := repofetch.New(cfg.Fetcher.BaseDir, logger)
	proj := analyzer.New(chat, cfg.Analyzer.MaxFiles, logger)
	assessor := compliance.New(ret, chat, cfg.Retriever.TopK, logger)

	ctx := context.Background()
	logger.Info("preparing regulatory index")
	if err := ret.Warm(ctx); err != nil {
		logger.Fatal("build regulatory index", "err", err)
	}

	if *repoURL != "" {
		runHeadless(ctx, fetcher, proj, assessor, logger, *repoURL, *branch)
		return
	}

	progress := make(chan pipeline.Message, 16)
	checker := pipeline.NewChecker(fetcher, proj, assessor, logger,
		pipeline.WithObserver(func(m pipeline.Message) { progress <- m }))

	m := tui.New(checker, progress)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		logger.Fatal("tui", "err", err)
	}
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, used, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	log.Debug("config loaded", "path", used)
	return cfg, nil
}

func runHeadless(ctx context.Context, fetcher *repofetch.GitFetcher, proj *analyzer.Analyzer,
	assessor *compliance.Assessor, logger *log.Logger, repoURL, branch string) {
	checker := pipeline.NewChecker(fetcher, proj, assessor, logger)
	result := checker.CheckRepository(ctx, repoURL, branch)
	for _, msg := range result.Messages {
		fmt.Println(msg.Content)
	}
	if result.Err != "" {
		logger.Fatal("check failed", "err", result.Err)
	}
	fmt.Println("\nCompliance assessment")
	fmt.Println(result.ComplianceAnalysis.Narrative)
}
