package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/unobserved-io/nadamark/internal/config"
	"github.com/unobserved-io/nadamark/internal/culler"
	"github.com/unobserved-io/nadamark/internal/exporter"
	"github.com/unobserved-io/nadamark/internal/importer"
	"github.com/unobserved-io/nadamark/internal/mcptools"
	"github.com/unobserved-io/nadamark/internal/model"
	"github.com/unobserved-io/nadamark/internal/picker"
	"github.com/unobserved-io/nadamark/internal/search"
	"github.com/unobserved-io/nadamark/internal/server"
	"github.com/unobserved-io/nadamark/internal/storage"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		runServe()
		return
	}

	switch os.Args[1] {
	case "help", "--help", "-h":
		printHelp()
	case "serve":
		runServe()
	case "import":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: nadamark import <file.html>\n")
			os.Exit(1)
		}
		runImport(os.Args[2], importer.ImportHTML)
	case "import-linkwarden":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: nadamark import-linkwarden <backup.json>\n")
			os.Exit(1)
		}
		runImport(os.Args[2], importer.ImportLinkwarden)
	case "export":
		var outputPath string
		if len(os.Args) >= 3 {
			outputPath = os.Args[2]
		}
		runExport(outputPath)
	case "search":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Usage: nadamark search <query>\n")
			os.Exit(1)
		}
		runSearch(strings.Join(os.Args[2:], " "))
	case "check":
		runCheck()
	case "mcp":
		runMCP()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	help := `nadamark - personal bookmark manager

Usage:
  nadamark [serve]                   Run the HTTP API
  nadamark import <file>             Import bookmarks from Netscape HTML
  nadamark import-linkwarden <file>  Import a Linkwarden JSON backup
  nadamark export [path]             Export bookmarks to HTML
  nadamark search <query>            Fuzzy search → select → open
  nadamark check                     Report dead or unreachable links
  nadamark mcp                       Serve MCP tools over stdio
  nadamark help                      Show this help

Environment:
  NADAMARK_CONFIG     Config file path
  NADAMARK_ADDR       Listen address (default :3096)
  NADAMARK_BACKEND    sqlite or json
  NADAMARK_DB         SQLite database path
  NADAMARK_LOG_LEVEL  debug, info, warn, error

Data Storage:
  ~/.config/nadamark/ (or /bookmarks in a container)
`
	fmt.Print(help)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func loadConfig() *config.Config {
	cfg, err := config.FromEnvironment()
	if err != nil {
		fatal("Error loading config: %v", err)
	}
	return cfg
}

func openStore(cfg *config.Config) storage.Store {
	store, err := storage.Open(cfg.StorageBackend, cfg.DatabasePath, cfg.JSONPath)
	if err != nil {
		fatal("Error opening storage: %v", err)
	}
	return store
}

// newLogger builds a zap logger writing to stderr at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}

// runServe runs the HTTP API until SIGINT or SIGTERM.
func runServe() {
	cfg := loadConfig()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fatal("Error creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	store := openStore(cfg)
	defer store.Close()

	handler := server.Routes(server.NewHandler(store, logger), server.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeoutDuration(),
	}, logger)
	srv := server.NewHTTPServer(cfg.ListenAddr, handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("backend", cfg.StorageBackend),
			zap.String("version", version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}
}

// runImport handles the import and import-linkwarden subcommands.
func runImport(filePath string, importFn func(context.Context, importer.Target, io.Reader) (importer.Result, error)) {
	cfg := loadConfig()
	store := openStore(cfg)
	defer store.Close()

	file, err := os.Open(filePath)
	if err != nil {
		fatal("Error opening file: %v", err)
	}
	defer file.Close()

	result, err := importFn(context.Background(), store, file)
	if err != nil {
		fatal("Error importing %s: %v", filePath, err)
	}

	fmt.Printf("Imported %d bookmarks, %d folders", result.Bookmarks, result.Folders)
	if result.DefaultedTimestamps > 0 {
		fmt.Printf(" (%d without a timestamp)", result.DefaultedTimestamps)
	}
	fmt.Println()
}

// runExport handles the export subcommand.
func runExport(outputPath string) {
	if outputPath == "" {
		var err error
		outputPath, err = exporter.DefaultExportPath()
		if err != nil {
			fatal("Error getting default export path: %v", err)
		}
	}

	cfg := loadConfig()
	store := openStore(cfg)
	defer store.Close()

	snap, err := storage.Snapshot(context.Background(), store)
	if err != nil {
		fatal("Error loading bookmarks: %v", err)
	}
	html, err := exporter.Export(context.Background(), store)
	if err != nil {
		fatal("Error exporting bookmarks: %v", err)
	}

	if err := os.WriteFile(outputPath, []byte(html), 0644); err != nil {
		fatal("Error writing file: %v", err)
	}

	fmt.Printf("Exported %d bookmarks, %d folders to %s\n",
		len(snap.Bookmarks), len(snap.Folders), outputPath)
}

// runSearch performs a fuzzy search and opens the selected bookmark.
func runSearch(query string) {
	cfg := loadConfig()
	store := openStore(cfg)
	defer store.Close()

	snap, err := storage.Snapshot(context.Background(), store)
	if err != nil {
		fatal("Error loading bookmarks: %v", err)
	}

	results := search.FuzzySearchBookmarks(snap, query, 0)
	if len(results) == 0 {
		fmt.Printf("No bookmarks found for '%s'\n", query)
		return
	}

	var selected *model.Bookmark
	if len(results) == 1 {
		selected = results[0].Bookmark
		fmt.Printf("Opening: %s\n", selected.Name)
	} else {
		p := picker.New(results, query)
		finalModel, err := tea.NewProgram(p).Run()
		if err != nil {
			fatal("Error running picker: %v", err)
		}

		finalPicker := finalModel.(picker.Picker)
		if finalPicker.Cancelled() {
			return
		}
		selected = finalPicker.SelectedBookmark()
	}

	if selected != nil {
		openURL(selected.URL)
	}
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}

// runCheck checks every bookmark URL and lists the ones that failed.
func runCheck() {
	cfg := loadConfig()
	store := openStore(cfg)
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bookmarks, err := store.AllBookmarks(ctx)
	if err != nil {
		fatal("Error loading bookmarks: %v", err)
	}
	if len(bookmarks) == 0 {
		fmt.Println("No bookmarks to check")
		return
	}

	results := culler.CheckURLs(ctx, bookmarks, culler.Options{
		Concurrency:    cfg.CullConcurrency,
		Timeout:        cfg.CullTimeout(),
		ExcludeDomains: cfg.CullExcludeDomains,
		OnProgress: func(completed, total int) {
			fmt.Fprintf(os.Stderr, "\rChecked %d/%d", completed, total)
		},
	})
	fmt.Fprintln(os.Stderr)

	failed := 0
	for _, status := range []culler.Status{culler.Dead, culler.Unreachable} {
		for _, r := range culler.Filter(results, status) {
			failed++
			detail := r.Error
			if r.StatusCode != 0 {
				detail = fmt.Sprintf("HTTP %d", r.StatusCode)
			}
			fmt.Printf("%-11s %s (%s) %s\n", status, r.Bookmark.URL, r.Bookmark.Name, detail)
		}
	}
	fmt.Printf("%d of %d bookmarks need attention\n", failed, len(bookmarks))
}

// runMCP serves MCP tools over stdin/stdout.
func runMCP() {
	cfg := loadConfig()
	store := openStore(cfg)
	defer store.Close()

	if err := mcptools.New(store, version).ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		store.Close()
		os.Exit(1)
	}
}
