// Package main provides chatsweep, a bulk archive/delete tool for ChatGPT
// conversations. It drives a signed-in browser profile to read the sidebar and
// calls the same backend endpoints the web app uses to mutate conversations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/entrhq/chatsweep/pkg/browser"
	"github.com/entrhq/chatsweep/pkg/config"
	"github.com/entrhq/chatsweep/pkg/executor/cli"
	"github.com/entrhq/chatsweep/pkg/executor/tui"
	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/orchestrator"
	"github.com/entrhq/chatsweep/pkg/remote"
	"github.com/entrhq/chatsweep/pkg/types"
	"github.com/entrhq/chatsweep/pkg/view"
)

const version = "0.1.0"

// tokenEnv seeds the bearer credential when set.
const tokenEnv = "CHATSWEEP_TOKEN"

// Flags holds the command line.
type Flags struct {
	ConfigPath     string
	Token          string
	BaseURL        string
	UserDataDir    string
	LogLevel       string
	Action         string
	Shell          bool
	ShowVersion    bool
	Headless       bool
	HeadlessConfig string
	SaveConfig     bool
}

func main() {
	flags := parseFlags()

	if flags.ShowVersion {
		fmt.Printf("chatsweep v%s\n", version)
		return
	}

	if err := flags.validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if runErr := run(ctx, flags); runErr != nil && !errors.Is(runErr, context.Canceled) {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
	cancel()
}

// parseFlags parses command line flags and environment variables
func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "", "Config file (default: $"+config.PathEnv+" or ~/.chatsweep/config.json)")
	flag.StringVar(&f.Token, "token", os.Getenv(tokenEnv), "Bearer token to use before one is captured (or set "+tokenEnv+")")
	flag.StringVar(&f.BaseURL, "base-url", "", "Backend origin (default from config, https://chatgpt.com)")
	flag.StringVar(&f.UserDataDir, "user-data-dir", "", "Browser profile directory (default ~/.chatsweep/profile)")
	flag.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&f.Action, "action", "", "Initial bulk action: archive or delete")
	flag.BoolVar(&f.Shell, "shell", false, "Use the line-oriented command shell instead of the panel")
	flag.BoolVar(&f.ShowVersion, "version", false, "Show version and exit")
	flag.BoolVar(&f.Headless, "headless", false, "Run a job file unattended")
	flag.StringVar(&f.HeadlessConfig, "headless-config", "", "Path to the headless job file (YAML)")
	flag.BoolVar(&f.SaveConfig, "save-config", false, "Write flag overrides back to the config file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "chatsweep - bulk archive and delete for ChatGPT conversations\n\n")
		fmt.Fprintf(os.Stderr, "Usage: chatsweep [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %-18s bearer token seed\n", tokenEnv)
		fmt.Fprintf(os.Stderr, "  %-18s config file path\n", config.PathEnv)
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  chatsweep                                   # panel\n")
		fmt.Fprintf(os.Stderr, "  chatsweep -shell                            # command shell\n")
		fmt.Fprintf(os.Stderr, "  chatsweep -headless -headless-config job.yaml\n")
	}

	flag.Parse()
	return f
}

// validate checks that the flags are consistent
func (f *Flags) validate() error {
	if f.Headless && f.HeadlessConfig == "" {
		return fmt.Errorf("headless mode requires a job file (use -headless-config flag)")
	}
	if f.Headless && f.Shell {
		return fmt.Errorf("-headless and -shell cannot be combined")
	}
	if f.Action != "" {
		a, err := types.ParseAction(f.Action)
		if err != nil {
			return err
		}
		if !a.Bulk() {
			return fmt.Errorf("-action must be archive or delete, got %s", a)
		}
	}
	if f.LogLevel != "" {
		if _, err := logging.ParseLevel(f.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// applyFlags overlays command line values on the loaded config.
func applyFlags(cfg *config.Config, f *Flags) error {
	if f.BaseURL != "" {
		cfg.Remote.SetBaseURL(f.BaseURL)
	}
	if f.UserDataDir != "" {
		cfg.Browser.SetUserDataDir(f.UserDataDir)
	}
	if f.LogLevel != "" {
		level, err := logging.ParseLevel(f.LogLevel)
		if err != nil {
			return err
		}
		cfg.View.SetLogLevel(level)
	}
	if f.Action != "" {
		if err := cfg.Runner.SetData(map[string]any{"default_action": strings.ToLower(f.Action)}); err != nil {
			return err
		}
	}
	if f.Headless {
		cfg.Browser.SetHeadless(true)
	}
	for _, s := range cfg.GetSections() {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("config %s: %w", s.ID(), err)
		}
	}
	return nil
}

// session is everything a presentation needs.
type session struct {
	cfg    *config.Config
	tab    *browser.Tab
	client *remote.Client
	ctrl   *orchestrator.Controller
}

func (s *session) Close() {
	if s.tab != nil {
		if err := s.tab.Close(); err != nil {
			log.Printf("browser close: %v", err)
		}
	}
}

// openSession loads config, launches the browser and builds the controller.
func openSession(ctx context.Context, f *Flags) (*session, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyFlags(cfg, f); err != nil {
		return nil, err
	}
	if f.SaveConfig {
		if err := cfg.SaveAll(); err != nil {
			return nil, fmt.Errorf("failed to save configuration: %w", err)
		}
	}
	logging.SetLevel(cfg.View.LogLevel())

	tokens := remote.NewTokenCache(f.Token)
	client := remote.New(cfg.Remote.BaseURL(), tokens, remote.WithTimeout(cfg.Remote.Timeout()))

	startURL, userDataDir, headless, timeout := cfg.Browser.Settings()
	tab, err := browser.Launch(ctx, browser.Options{
		StartURL:    startURL,
		UserDataDir: userDataDir,
		Headless:    headless,
		Timeout:     timeout,
	}, tokens)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	mode, dir := cfg.View.Sort()
	vs := view.NewState()
	vs.SetSort(mode, dir)

	ctrl := orchestrator.New(tab, client,
		orchestrator.WithDelay(cfg.Runner.Delay()),
		orchestrator.WithCollectOptions(cfg.Collect.Options()),
		orchestrator.WithBaseURL(cfg.Remote.BaseURL()),
		orchestrator.WithView(vs),
	)

	return &session{cfg: cfg, tab: tab, client: client, ctrl: ctrl}, nil
}

// run executes the main application logic
func run(ctx context.Context, f *Flags) error {
	if f.Headless {
		return runHeadless(ctx, f)
	}

	s, err := openSession(ctx, f)
	if err != nil {
		return err
	}
	defer s.Close()

	if f.Shell {
		return cli.NewExecutor(s.ctrl).Run(ctx)
	}

	if err := tui.NewExecutor(s.ctrl, s.cfg.Runner.DefaultAction()).Run(ctx); err != nil {
		return fmt.Errorf("executor error: %w", err)
	}
	return nil
}
