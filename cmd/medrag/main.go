// Package main is the medrag CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/medrag/internal/cli"
	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/embedding"
	"github.com/hyperjump/medrag/internal/frontend"
	"github.com/hyperjump/medrag/internal/indexer"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/retrieval"
	"github.com/hyperjump/medrag/internal/server"
	"github.com/hyperjump/medrag/internal/storage"
	"github.com/hyperjump/medrag/internal/vector"
	"github.com/hyperjump/medrag/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/medrag/config.yaml"
	defaultServerURL  = "http://localhost:5000"
)

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present, and a missing default file yields the
// built-in defaults. Returns the config and the path that was loaded ("" for defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	// Secrets such as OPENAI_API_KEY may live in a local .env file.
	_ = godotenv.Load()

	command := os.Args[1]
	switch command {
	case "index":
		runIndex()
	case "server":
		runServer()
	case "ui":
		runUI()
	case "query":
		runQuery()
	case "status":
		runStatus()
	case "export":
		runExport()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("medrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger shared by every subcommand.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if resolved == "" {
		resolved = "(defaults)"
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	return cfg, logger
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (embedding progress)")
	force := fs.Bool("force", false, "rebuild even if the corpus is unchanged")
	watch := fs.Bool("watch", false, "keep running and rebuild when the corpus changes")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	paths := cfg.Corpus.Paths
	if fs.NArg() > 0 {
		paths = fs.Args()
	}

	emb, err := embedding.NewEmbedder(&cfg.Embedding, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedder", zap.Error(err))
	}
	defer emb.Close()

	idx := indexer.New(emb, cfg.Storage.BundlePath,
		indexer.WithLogger(logger),
		indexer.WithIndexType(indexTypeOrFallback(cfg.Retrieval.IndexType, logger)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := idx.Build(ctx, paths, *force)
	if err != nil {
		logger.Fatal("Indexing failed", zap.Error(err))
	}
	if res.Skipped {
		fmt.Printf("Bundle %s is up to date (%d documents)\n", cfg.Storage.BundlePath, res.Documents)
	} else {
		fmt.Printf("Indexed %d documents into %s\n", res.Documents, cfg.Storage.BundlePath)
	}

	if !*watch {
		return
	}
	debounce, _ := cfg.Corpus.DebounceDuration()
	if err := idx.Watch(ctx, paths, debounce); err != nil {
		logger.Fatal("Watch failed", zap.Error(err))
	}
}

// indexTypeOrFallback returns "memory" when FAISS was requested but is not compiled in.
func indexTypeOrFallback(indexType string, logger *zap.Logger) string {
	if indexType == string(vector.IndexTypeFAISS) && !vector.IsFAISSAvailable() {
		logger.Warn("FAISS not available, falling back to memory index")
		return string(vector.IndexTypeMemory)
	}
	return indexType
}

// loadEngine reads the bundle and builds the retrieval engine around a new embedder.
func loadEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*retrieval.Engine, embedding.Embedder, error) {
	bundle, err := storage.ReadBundle(ctx, cfg.Storage.BundlePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bundle: %w", err)
	}
	emb, err := embedding.NewEmbedder(&cfg.Embedding, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	rcfg := cfg.Retrieval
	rcfg.IndexType = indexTypeOrFallback(rcfg.IndexType, logger)
	engine, err := retrieval.NewEngine(ctx, bundle, emb, &rcfg, retrieval.WithLogger(logger))
	if err != nil {
		_ = emb.Close()
		return nil, nil, err
	}
	logger.Info("bundle loaded",
		zap.String("path", cfg.Storage.BundlePath),
		zap.String("build_id", bundle.Metadata.BuildID),
		zap.Int("documents", len(bundle.Texts)),
		zap.String("model", bundle.Metadata.Model))
	return engine, emb, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (per-query scores)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	engine, emb, err := loadEngine(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize query service", zap.Error(err))
	}
	defer emb.Close()
	defer engine.Close()

	srv := server.NewServer(engine, &cfg.Server, logger, server.WithBundlePath(cfg.Storage.BundlePath))
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()
	waitAndStop(logger, srv.Stop)
}

func runUI() {
	fs := flag.NewFlagSet("ui", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	endpoint := fs.String("rag-endpoint", "", "query service URL (overrides frontend.rag_endpoint)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	if *endpoint != "" {
		cfg.Frontend.RAGEndpoint = *endpoint
	}
	timeout, _ := cfg.Frontend.TimeoutDuration()
	srv := frontend.NewServer(frontend.NewClient(cfg.Frontend.RAGEndpoint, timeout), &cfg.Frontend, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Front-end failed", zap.Error(err))
		}
	}()
	waitAndStop(logger, srv.Stop)
}

func waitAndStop(logger *zap.Logger, stop func(context.Context) error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = stop(ctx)
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseOutputFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct bundle mode)")
	serverURL := fs.String("server", defaultServerURL, "query service URL (empty = load the bundle directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: medrag query [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	q := buildQuery(fs.Args())
	if q == "" {
		fs.Usage()
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	var resp *models.QueryResponse
	if *serverURL != "" {
		resp, err = cli.NewClient(*serverURL, 30*time.Second).Query(ctx, q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		engine, emb, err := loadEngine(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer emb.Close()
		defer engine.Close()
		ans, err := engine.Answer(ctx, q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		resp = &models.QueryResponse{Query: ans.Query, Result: ans.Result, Similarity: ans.Similarity}
		for _, m := range ans.Matches {
			resp.Matches = append(resp.Matches, models.Match{Position: m.Position, Text: m.Text, Similarity: m.Similarity})
		}
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct bundle mode)")
	serverURL := fs.String("server", defaultServerURL, "query service URL (empty = read the bundle directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	var st *models.StatusResponse
	if *serverURL != "" {
		st, err = cli.NewClient(*serverURL, 10*time.Second).Status(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()
		st, err = bundleStatus(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// bundleStatus reports on the bundle without loading vectors or an embedder.
// The index type is the one a server started with cfg would use.
func bundleStatus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*models.StatusResponse, error) {
	meta, err := storage.ReadMetadata(ctx, cfg.Storage.BundlePath)
	if err != nil {
		return nil, err
	}
	st := server.StatusFromStats(retrieval.Stats{
		Metadata:  *meta,
		Documents: meta.Count,
		Threshold: cfg.Retrieval.ThresholdOrDefault(),
		TopK:      cfg.Retrieval.TopK,
		IndexType: indexTypeOrFallback(cfg.Retrieval.IndexType, logger),
	}, cfg.Storage.BundlePath)
	return &st, nil
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: medrag export [--config path] <out.txt>")
		os.Exit(1)
	}

	cfg, logger := setup(*configPath, false)
	defer logger.Sync()

	bundle, err := storage.ReadBundle(context.Background(), cfg.Storage.BundlePath)
	if err != nil {
		logger.Fatal("Failed to load bundle", zap.Error(err))
	}
	if err := storage.WriteDocumentStore(fs.Arg(0), bundle.Texts); err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}
	fmt.Printf("Exported %d documents to %s\n", len(bundle.Texts), fs.Arg(0))
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	return config.Save(path, config.Default())
}

func printUsage() {
	fmt.Println(`medrag - biomedical question answering over a fixed document set

Usage:
  medrag index [flags] [corpus...]  Embed the corpus and write the bundle
  medrag server [flags]             Start the query service (POST /query)
  medrag ui [flags]                 Start the front-end form
  medrag query [flags] <question>   Ask a question
  medrag status [flags]             Show bundle and decision rule status
  medrag export [flags] <out.txt>   Write the document store, one document per line
  medrag init [flags]               Write a default config file
  medrag version                    Show version
  medrag help                       Show this help

Index Flags:
  --config string    Config file path (default: /usr/local/etc/medrag/config.yaml)
  --force            Rebuild even if the corpus is unchanged
  --watch            Rebuild whenever the corpus changes
  --debug            Enable debug logging

Server / UI Flags:
  --config string         Config file path
  --debug                 Enable debug logging
  --rag-endpoint string   (ui only) Query service URL

Query / Status Flags:
  --server string    Query service URL (default: http://localhost:5000). Use --server "" to read the bundle directly.
  --output string    Output format: text or json (default: text)

Examples:
  medrag init --config ./config.yaml
  medrag index documents.txt
  medrag server
  medrag query what reduces inflammation
  medrag query --server "" "What reduces inflammation?" --output json`)
}
