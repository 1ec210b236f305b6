package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/orchestrator"
	"github.com/entrhq/chatsweep/pkg/types"
	"github.com/entrhq/chatsweep/pkg/view"
)

const (
	statusSuccess        = "success"
	statusFailed         = "failed"
	statusPartialSuccess = "partial_success"
	statusDryRun         = "dry_run"
	statusStopped        = "stopped"
)

// ErrPlanTooLarge is returned when a job selects more conversations than max_items.
var ErrPlanTooLarge = errors.New("plan exceeds max_items")

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("headless")
	if err != nil {
		debugLog.Warnf("Failed to initialize headless logger, using stderr fallback: %v", err)
	}
}

// Executor runs one headless job against a controller.
type Executor struct {
	ctrl           *orchestrator.Controller
	config         *Config
	logger         *Logger
	artifactWriter *ArtifactWriter

	chatMatcher    *view.TitleMatcher
	projectNames   *view.TitleMatcher
	projectMatcher *view.TitleMatcher

	summary *ExecutionSummary
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger replaces the stdout logger.
func WithLogger(l *Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// NewExecutor validates config and builds its title matchers.
func NewExecutor(ctrl *orchestrator.Controller, config *Config, opts ...ExecutorOption) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Executor{
		ctrl:           ctrl,
		config:         config,
		artifactWriter: NewArtifactWriter(config.Artifacts.OutputDir, config.Artifacts),
		summary: &ExecutionSummary{
			Action: config.Action,
			DryRun: config.DryRun,
			Status: "running",
		},
	}

	var err error
	if e.chatMatcher, err = view.NewTitleMatcher(config.Chats.Match, config.Chats.Exclude); err != nil {
		return nil, fmt.Errorf("chats: %w", err)
	}
	if e.projectNames, err = view.NewTitleMatcher(config.Projects.Names, nil); err != nil {
		return nil, fmt.Errorf("projects.names: %w", err)
	}
	if e.projectMatcher, err = view.NewTitleMatcher(config.Projects.Match, config.Projects.Exclude); err != nil {
		return nil, fmt.Errorf("projects: %w", err)
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = NewWriterLogger(parseLogLevel(config.Logging.Verbosity), os.Stdout, config.Logging.Color)
	}
	return e, nil
}

// Summary returns the summary of the last Run.
func (e *Executor) Summary() *ExecutionSummary { return e.summary }

// Run refreshes, plans and executes the job, then writes artifacts.
// It returns an error when the job failed outright or any item failed.
func (e *Executor) Run(ctx context.Context) error {
	e.summary.StartTime = time.Now()
	debugLog.Infof("headless job: action=%s dry_run=%v", e.config.Action, e.config.DryRun)
	e.logger.Header(fmt.Sprintf("chatsweep headless: %s", e.config.Action))

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	events, unsubscribe := e.ctrl.Subscribe(orchestrator.DefaultSubscriberBuffer)
	eventsDone := make(chan struct{})
	go e.handleEvents(events, eventsDone)

	runErr := e.execute(ctx)

	unsubscribe()
	<-eventsDone
	return e.finish(runErr)
}

func (e *Executor) execute(ctx context.Context) error {
	if e.config.Delay > 0 {
		e.ctrl.SetDelay(e.config.Delay)
	}

	if e.config.LoadAll {
		e.logger.Step("Loading the whole sidebar")
		res, err := e.ctrl.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load all: %w", err)
		}
		e.summary.Metrics.LoadAllRounds = res.Rounds
		e.logger.Successf("Load all done: %d rounds, %d chats", res.Rounds, res.FinalCount)
	} else {
		e.logger.Step("Reading the sidebar")
		if err := e.ctrl.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}
	e.summary.Metrics.ChatsLoaded = len(e.ctrl.Items())
	e.summary.Metrics.ProjectsLoaded = len(e.ctrl.Groups())

	if !e.ctrl.HasCredential(ctx) && !e.config.DryRun {
		e.logger.Warningf("no bearer captured yet; remote calls may fail")
	}

	e.logger.Step("Planning")
	plan, err := e.plan(ctx)
	if err != nil {
		return err
	}
	e.summary.Metrics.Planned = len(plan)
	e.logger.Infof("%d conversations selected for %s", len(plan), e.config.Action)

	if e.config.MaxItems > 0 && len(plan) > e.config.MaxItems {
		return fmt.Errorf("%w: %d > %d", ErrPlanTooLarge, len(plan), e.config.MaxItems)
	}

	if e.config.DryRun {
		for _, p := range e.summary.Planned {
			e.logger.Verbosef("would %s %s %q", e.config.Action, p.ID, p.Title)
		}
		return nil
	}
	if len(plan) == 0 {
		return nil
	}

	e.logger.Step(fmt.Sprintf("Running %s on %d conversations (delay %s)", e.config.Action, len(plan), e.ctrl.Delay()))
	summary, err := e.ctrl.RunBulk(ctx, plan, e.config.Action)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	e.summary.Run = &summary
	e.summary.Metrics.Processed = summary.Processed
	e.summary.Metrics.OK = summary.OK
	e.summary.Metrics.Failed = summary.Failed
	return nil
}

// plan collects matching flat chats, then matching conversations of matching
// projects. Ids are de-duplicated in that order.
func (e *Executor) plan(ctx context.Context) ([]types.Item, error) {
	var plan []types.Item
	seen := make(map[string]bool)
	add := func(it types.Item, project string) {
		if seen[it.ID] {
			return
		}
		seen[it.ID] = true
		plan = append(plan, it)
		e.summary.Planned = append(e.summary.Planned, PlannedItem{ID: it.ID, Title: it.DisplayTitle(), Project: project})
	}

	if e.config.Chats.Enabled {
		for _, it := range e.ctrl.Items() {
			if e.chatMatcher.Match(it.DisplayTitle()) {
				add(it, "")
			}
		}
	}

	if e.config.Projects.Enabled {
		for _, g := range e.ctrl.Groups() {
			if !e.projectNames.Match(g.Title) {
				continue
			}
			e.logger.Verbosef("loading project %q", g.Title)
			res, err := e.ctrl.LoadGroup(ctx, g.GroupID)
			if err != nil {
				return nil, fmt.Errorf("load project %q: %w", g.Title, err)
			}
			if res.Stopped {
				return nil, fmt.Errorf("load project %q: stopped after %d conversations", g.Title, res.Items)
			}
			cache, _ := e.ctrl.GroupCache(g.GroupID)
			for _, it := range cache.Items {
				if e.projectMatcher.Match(it.DisplayTitle()) {
					add(it, g.Title)
				}
			}
		}
	}
	return plan, nil
}

func (e *Executor) finish(runErr error) error {
	e.summary.EndTime = time.Now()
	e.summary.Duration = e.summary.EndTime.Sub(e.summary.StartTime)

	switch {
	case runErr != nil:
		e.summary.Status = statusFailed
		e.summary.Error = runErr.Error()
	case e.config.DryRun:
		e.summary.Status = statusDryRun
	case e.summary.Run == nil:
		e.summary.Status = statusSuccess
	case e.summary.Run.Failed == 0 && !e.summary.Run.Stopped:
		e.summary.Status = statusSuccess
	case e.summary.Run.OK == 0 && e.summary.Run.Failed == 0:
		e.summary.Status = statusStopped
	case e.summary.Run.OK > 0:
		e.summary.Status = statusPartialSuccess
	default:
		e.summary.Status = statusFailed
	}

	if err := e.artifactWriter.WriteAll(e.summary); err != nil {
		e.logger.Warningf("failed to write artifacts: %v", err)
	}
	e.logger.Summary(e.summary)
	debugLog.Infof("headless job finished: status=%s", e.summary.Status)

	switch e.summary.Status {
	case statusFailed:
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("all %d conversations failed", e.summary.Run.Failed)
	case statusStopped:
		return fmt.Errorf("run stopped before any of %d conversations was processed", e.summary.Run.Total)
	case statusPartialSuccess:
		if e.summary.Run.Stopped {
			return fmt.Errorf("run stopped after %d of %d conversations", e.summary.Run.Processed, e.summary.Run.Total)
		}
		return fmt.Errorf("%d of %d conversations failed", e.summary.Run.Failed, e.summary.Run.Total)
	}
	return nil
}

func (e *Executor) handleEvents(events <-chan types.Event, done chan struct{}) {
	defer close(done)
	for ev := range events {
		switch ev.Type {
		case types.EventTypeRunProgress:
			e.logger.ItemDone(ev.ItemID, ev.Done, ev.Total, ev.Err)
		case types.EventTypeGroupProgress:
			e.logger.Debugf("project %s: %d conversations", ev.GroupID, ev.Done)
		case types.EventTypeCollectRound:
			e.logger.Debugf("load all round %d: %d chats", ev.Done, ev.Total)
		case types.EventTypeLog:
			switch ev.Level {
			case types.LogWarn:
				e.logger.Warningf("%s", ev.Message)
			case types.LogError:
				e.logger.Errorf("%s", ev.Message)
			default:
				e.logger.Verbosef("%s", ev.Message)
			}
		}
	}
}
