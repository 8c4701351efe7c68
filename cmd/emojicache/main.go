// Package main is the emojicache CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/emojicache/internal/cache"
	"github.com/hyperjump/emojicache/internal/cluster"
	"github.com/hyperjump/emojicache/internal/config"
	"github.com/hyperjump/emojicache/internal/provider"
	"github.com/hyperjump/emojicache/internal/server"
	"github.com/hyperjump/emojicache/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/emojicache/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("emojicache version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (cache hits, cluster inserts, etc.)")
	_ = fs.Parse(os.Args[2:])

	// GEMINI_API_KEY may live in a .env file during development.
	_ = godotenv.Load()

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
		zap.Float64("threshold", cfg.Cache.Threshold),
	)

	store := cluster.NewStore(cfg.Cache.StorePath, logger)
	if err := store.Load(); err != nil {
		// A corrupt blob must not block serving; start empty and keep the
		// broken file where it is for inspection.
		logger.Warn("cluster store load failed, starting empty",
			zap.String("path", cfg.Cache.StorePath), zap.Error(err))
	} else {
		logger.Info("cluster store loaded",
			zap.String("path", cfg.Cache.StorePath),
			zap.Int("clusters", store.Len()),
		)
	}

	gemini := provider.NewGemini(&cfg.Provider)
	svc := cache.NewService(store, gemini, gemini, &cfg.Cache, logger)

	watcher := config.NewWatcher(resolvedConfigPath, logger, func(fresh *config.Config) {
		svc.SetThreshold(fresh.Cache.Threshold)
	})
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watcher.Start(watchCtx); err != nil {
		logger.Warn("config watch unavailable", zap.Error(err))
	}
	defer watcher.Stop()

	srv := server.NewServer(svc, store, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAsk() {
	askArgs := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	addr := fs.String("addr", "", "server address (default from config)")
	configPath := fs.String("config", defaultConfigPath, "config file path")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(askArgs)

	text := buildText(fs.Args())
	if text == "" {
		fs.Usage()
		os.Exit(1)
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		fmt.Printf("Failed to encode request: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.Post(serverURL(*addr, *configPath)+"/api/v1/emoji", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Request failed (is the server running?): %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Failed to read response: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Server error (%d): %s\n", resp.StatusCode, strings.TrimSpace(string(raw)))
		os.Exit(1)
	}
	var result cache.Response
	if err := json.Unmarshal(raw, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result.Answer)
	if result.Source == cache.SourceHit {
		fmt.Printf("(%s, cluster %s, similarity %.3f)\n", result.Source, result.Cluster, result.Similarity)
	} else {
		fmt.Printf("(%s, cluster %s)\n", result.Source, result.Cluster)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "", "server address (default from config)")
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(serverURL(*addr, *configPath) + "/api/v1/status")
	if err != nil {
		fmt.Printf("Request failed (is the server running?): %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Failed to read response: %v\n", err)
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(pretty.String())
}

// serverURL resolves the base URL from -addr, or from the config's server
// host and port when -addr is empty.
func serverURL(addr, configPath string) string {
	if addr != "" {
		if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
			return strings.TrimRight(addr, "/")
		}
		return "http://" + strings.TrimRight(addr, "/")
	}
	host, port := "localhost", 8080
	if cfg, _, err := loadConfig(configPath); err == nil {
		host, port = cfg.Server.Host, cfg.Server.Port
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// buildText joins all positional args with spaces so multi-word input works
// the same with or without shell quoting.
func buildText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the text
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

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: emojicache ask [flags] <text>\n\n")
	fmt.Fprintf(fs.Output(), "Text is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  emojicache ask I am so tired today
  emojicache ask "what is the capital of France?"
  emojicache ask --addr localhost:9000 party time
`)
}

func printUsage() {
	fmt.Println(`emojicache - semantic emoji cache service

Usage:
  emojicache server [-config path] [-debug]   start the HTTP server
  emojicache ask [flags] <text>               ask a running server for emoji
  emojicache status [flags]                   show cache statistics
  emojicache version                          print version
  emojicache help                             show this help`)
}
