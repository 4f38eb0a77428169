package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/hydroscope/pkg/config"
	"github.com/ritzau/hydroscope/pkg/layout"
	"github.com/ritzau/hydroscope/pkg/logging"
	"github.com/ritzau/hydroscope/pkg/output"
	"github.com/ritzau/hydroscope/pkg/parse"
	"github.com/ritzau/hydroscope/pkg/vis"
	"github.com/ritzau/hydroscope/pkg/watcher"
	"github.com/ritzau/hydroscope/pkg/web"
)

func main() {
	f := pflag.NewFlagSet("hydroscope", pflag.ExitOnError)
	f.String("input", "", "Path to the graph document (JSON)")
	f.String("hierarchy", "", "Hierarchy choice ID to apply (default: first in document)")
	f.Bool("web", false, "Start web server instead of printing a summary")
	f.Int("port", 8080, "Port for web server (only used with --web)")
	f.Bool("watch", false, "Reload when the input document changes (only used with --web)")
	f.Bool("open", true, "Open browser when starting web server")
	f.Int("smart-collapse", 0, "Child count above which containers auto-collapse before first layout (0 = default)")
	f.String("validation", "normal", "Consistency checking level: off, relaxed, normal, strict")
	f.String("verbosity", "", "Log level: debug, info, warn, error")
	f.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	f.Parse(os.Args[1:])

	cfg, err := config.Load(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	applyLogLevel(cfg)

	if cfg.Input == "" {
		fmt.Fprintln(os.Stderr, "Error: --input is required")
		os.Exit(1)
	}

	state := vis.NewVisualizationState()
	state.SetValidationLevel(vis.ParseValidationLevel(cfg.Validation))

	if err := loadDocument(state, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runner := layout.NewRunner(layout.NewLayeredEngine())
	runner.SmartCollapseThreshold = cfg.SmartCollapse

	if cfg.WebMode {
		runWebServer(state, runner, cfg)
	} else {
		if err := runner.Run(context.Background(), state); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		output.PrintSummary(cfg.Input, state)
	}
}

// applyLogLevel maps --verbosity / -v to a slog level. An explicit
// verbosity wins over the counted flag.
func applyLogLevel(cfg *config.Config) {
	switch cfg.Verbosity {
	case "debug":
		logging.SetLevel(slog.LevelDebug)
		return
	case "info":
		logging.SetLevel(slog.LevelInfo)
		return
	case "warn":
		logging.SetLevel(slog.LevelWarn)
		return
	case "error":
		logging.SetLevel(slog.LevelError)
		return
	}
	switch {
	case cfg.VerboseCnt >= 2:
		logging.SetLevel(slog.LevelDebug)
	case cfg.VerboseCnt == 1:
		logging.SetLevel(slog.LevelInfo)
	default:
		logging.SetLevel(slog.LevelWarn)
	}
}

func loadDocument(state *vis.VisualizationState, cfg *config.Config) error {
	in, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	doc, err := parse.Parse(in)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", cfg.Input, err)
	}
	if err := parse.Load(state, doc, cfg.Hierarchy); err != nil {
		return fmt.Errorf("loading %s: %w", cfg.Input, err)
	}
	return nil
}

func runWebServer(state *vis.VisualizationState, runner *layout.Runner, cfg *config.Config) {
	server := web.NewServer(state, runner)

	if err := runner.Run(context.Background(), state); err != nil {
		logging.Error("initial layout failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watch {
		if err := startWatcher(ctx, state, runner, server, cfg); err != nil {
			logging.Error("could not watch input", "error", err)
		}
	}

	url := fmt.Sprintf("http://localhost:%d", cfg.Port)

	if cfg.OpenBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	if err := server.Start(cfg.Port); err != nil {
		logging.Fatal("web server failed", "error", err)
	}
}

// startWatcher reloads the document on change and pushes the new frame to
// connected clients. A reload re-arms the first-layout auto-collapse.
func startWatcher(ctx context.Context, state *vis.VisualizationState, runner *layout.Runner, server *web.Server, cfg *config.Config) error {
	dw, err := watcher.NewDocumentWatcher(cfg.Input)
	if err != nil {
		return err
	}
	if err := dw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(dw.Events(), 200*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)

	go func() {
		for range debouncer.Output() {
			logging.Info("input changed, reloading", "path", cfg.Input)
			server.PublishStatus("loading", "reloading "+cfg.Input)
			if err := server.Reload(func() error {
				return loadDocument(state, cfg)
			}); err != nil {
				logging.Error("reload failed", "error", err)
				server.PublishStatus("error", err.Error())
				continue
			}
			server.PublishStatus("ready", "reloaded")
		}
	}()
	return nil
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on platform", "platform", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
