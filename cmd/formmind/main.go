// Package main is the FormMind CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/formmind/formmind/internal/agent"
	"github.com/formmind/formmind/internal/cli"
	"github.com/formmind/formmind/internal/config"
	"github.com/formmind/formmind/internal/embedding"
	"github.com/formmind/formmind/internal/extract"
	"github.com/formmind/formmind/internal/generation"
	"github.com/formmind/formmind/internal/pii"
	"github.com/formmind/formmind/internal/qa"
	"github.com/formmind/formmind/internal/retriever"
	"github.com/formmind/formmind/internal/server"
	"github.com/formmind/formmind/internal/storage"
	"github.com/formmind/formmind/internal/store"
	"github.com/formmind/formmind/internal/summarize"
	"github.com/formmind/formmind/internal/watcher"
	"github.com/formmind/formmind/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/formmind/config.yaml"
const defaultServerURL = "http://localhost:8080"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence (for development).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "server":
		runServer()
	case "process":
		runProcess()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "demo":
		runDemo()
	case "version", "--version", "-v":
		fmt.Printf("formmind version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`FormMind - intelligent form processing agent

Usage:
  formmind server  [-config path] [-debug]        run the HTTP server
  formmind process -file form.pdf [-question q]   upload and process one form
  formmind ask     -question q [-k n]             ask about indexed forms
  formmind status                                 show server status
  formmind demo                                   run the built-in demo
  formmind version                                print version

Environment:
  FORMMIND_EMBEDDING_API_KEY / FORMMIND_GENERATION_API_KEY
  (both fall back to OPENAI_API_KEY; a .env file is honored)
`)
}

// apiKey returns the first non-empty environment value.
func apiKey(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// components holds the wired pipeline for server mode.
type components struct {
	Agent    *agent.Agent
	Embedder embedding.Embedder
	History  storage.History
}

// Close releases component resources.
func (c *components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.History != nil {
		_ = c.History.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	embedKey := apiKey("FORMMIND_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	genKey := apiKey("FORMMIND_GENERATION_API_KEY", "OPENAI_API_KEY")

	openaiEmbedder, err := embedding.NewOpenAIEmbedder(embedding.Config{
		APIKey:     embedKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	embedder := embedding.NewCachedEmbedder(openaiEmbedder, cfg.Embedding.CacheSize)

	generator, err := generation.NewOpenAIGenerator(generation.Config{
		APIKey:  genKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	history, err := storage.NewSQLiteHistory(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	st := store.NewStore(cfg.Storage.SnapshotDir, embedder, logger)
	a := agent.NewAgent(agent.Options{
		Extractor:  extract.NewExtractor(),
		Masker:     pii.DefaultChain(),
		Summarizer: summarize.NewSummarizer(generator, cfg.Summary.ChunkChars, logger),
		Store:      st,
		Retriever:  retriever.NewRetriever(embedder),
		Composer:   qa.NewComposer(generator),
		History:    history,
		TopK:       cfg.QA.TopK,
		Logger:     logger,
	})
	return &components{Agent: a, Embedder: embedder, History: history}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	inboxCtx, inboxCancel := context.WithCancel(context.Background())
	defer inboxCancel()
	if cfg.Inbox.Directory != "" {
		inbox := watcher.NewInbox(cfg.Inbox.Directory, cfg.Inbox.Extensions, func(path string) {
			content, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("inbox read failed", zap.String("path", path), zap.Error(err))
				return
			}
			up := agent.Upload{Filename: filepath.Base(path), Content: content}
			if _, err := comps.Agent.Process(context.Background(), up, ""); err != nil {
				logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		if err := inbox.Start(inboxCtx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		inbox.SyncExisting()
		defer inbox.Stop()
	}

	srv := server.NewServer(comps.Agent, comps.History, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	inboxCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	file := fs.String("file", "", "form file to process (required)")
	question := fs.String("question", "", "optional question to ask after indexing")
	serverURL := fs.String("server", defaultServerURL, "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *file == "" {
		fmt.Println("Usage: formmind process -file form.pdf [-question q]")
		os.Exit(1)
	}
	client := cli.NewClient(*serverURL)
	result, err := client.Process(*file, *question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Process failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteProcessResult(os.Stdout, result, cli.OutputFormat(*output))
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	question := fs.String("question", "", "question to ask (required)")
	topK := fs.Int("k", 3, "number of documents to retrieve")
	serverURL := fs.String("server", defaultServerURL, "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if *question == "" {
		fmt.Println("Usage: formmind ask -question \"What were the wages in 2024?\" [-k 3]")
		os.Exit(1)
	}
	client := cli.NewClient(*serverURL)
	resp, err := client.Ask(*question, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteAskResponse(os.Stdout, resp, cli.OutputFormat(*output))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	client := cli.NewClient(*serverURL)
	status, err := client.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	for k, v := range status {
		fmt.Printf("%s: %v\n", k, v)
	}
}
