package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/gaitgrip/internal/app"
	"github.com/ayusman/gaitgrip/internal/config"
	"github.com/ayusman/gaitgrip/internal/log"
	"github.com/ayusman/gaitgrip/internal/pose"
	"github.com/ayusman/gaitgrip/internal/telemetry"
	"github.com/ayusman/gaitgrip/internal/tray"
)

type options struct {
	configPath string
	source     string
	replay     string
	loop       bool
	addr       string
	tray       bool
	dumpDemo   string
}

func main() {
	opts := parseFlags()
	if err := run(opts); err != nil {
		log.Error("gaitgrip failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Config file (default ~/.gaitgrip/config.yaml)")
	flag.StringVar(&opts.source, "source", string(app.SourceStream), "Pose source: stream, synthetic, replay")
	flag.StringVar(&opts.replay, "replay", "", "JSON-lines pose recording for -source replay")
	flag.BoolVar(&opts.loop, "loop", false, "Restart synthetic or replayed sessions when they end")
	flag.StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides config)")
	flag.BoolVar(&opts.tray, "tray", false, "Show the system tray indicator")
	flag.StringVar(&opts.dumpDemo, "dump-demo", "", "Write the synthetic demo session as a recording and exit")
	flag.Parse()
	return opts
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Addr = opts.addr
	}
	log.Init(cfg.LogLevel)

	if opts.dumpDemo != "" {
		return dumpDemo(opts.dumpDemo, cfg)
	}

	if cfg.StaticDir == "" {
		cfg.StaticDir = findWebDir()
	}
	if cfg.StaticDir != "" {
		log.Info("serving static files", "dir", cfg.StaticDir)
	}

	source, err := app.OpenSource(&cfg, app.SourceMode(opts.source), opts.replay, opts.loop)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, source)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !opts.tray && !cfg.Tray {
		return a.Run(ctx)
	}

	// The tray owns the main goroutine; the app runs beside it.
	t := tray.New()
	a.AddSink(t)
	t.OnRecord(func(recording bool) error {
		if recording {
			_, err := a.Recorder().Start("", 0, 0)
			return err
		}
		_, err := a.Recorder().Stop()
		if errors.Is(err, telemetry.ErrNotRecording) {
			return nil
		}
		return err
	})
	t.OnSettings(func() {
		openBrowser(dashboardURL(cfg.Addr))
	})
	t.OnQuit(cancel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	cancel()
	return <-errCh
}

// dumpDemo writes the synthetic session sampled at the configured tick.
func dumpDemo(path string, cfg config.Config) error {
	src := pose.NewSynthetic(cfg.Engine.TickInterval.Seconds(), false, pose.WalkThenHold()...)
	var samples []pose.Sample
	for {
		s, ok := src.Next()
		if !ok {
			break
		}
		samples = append(samples, s)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pose.WriteRecording(f, samples); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info("wrote demo recording", "path", path, "samples", len(samples))
	return nil
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return fmt.Sprintf("http://%s/", addr)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("failed to open browser", "url", url, "error", err)
		return
	}
	go cmd.Wait()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.gaitgrip/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.HomeDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
