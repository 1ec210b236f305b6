// Package orchestrator owns one session: the working set read from the page,
// selections, the mutation ledger and the run lock. Every presentation layer
// drives the session through a Controller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/chatsweep/pkg/collect"
	"github.com/entrhq/chatsweep/pkg/groups"
	"github.com/entrhq/chatsweep/pkg/ledger"
	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/runner"
	"github.com/entrhq/chatsweep/pkg/runstate"
	"github.com/entrhq/chatsweep/pkg/selection"
	"github.com/entrhq/chatsweep/pkg/types"
	"github.com/entrhq/chatsweep/pkg/view"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("orchestrator")
	if err != nil {
		debugLog.Warnf("Failed to initialize orchestrator logger, using stderr fallback: %v", err)
	}
}

// ErrUnknownItem is returned for ids that are neither a listed chat nor in a loaded project.
var ErrUnknownItem = errors.New("unknown conversation")

// Enumerator reads the working set from the live page.
type Enumerator interface {
	EnumerateFlatItems(ctx context.Context) ([]types.Item, error)
	EnumerateGroups(ctx context.Context) ([]types.Group, error)
	AdvanceView(ctx context.Context) error
	CurrentEnumerableCount(ctx context.Context) (int, error)
	Reload(ctx context.Context) error
}

// Remote performs backend calls.
type Remote interface {
	Mutate(ctx context.Context, itemID string, action types.Action) error
	FetchGroupPage(ctx context.Context, groupID, cursor string) (types.GroupPage, error)
	HasCredential(ctx context.Context) bool
}

type settings struct {
	delay       time.Duration
	collectOpts collect.Options
	baseURL     string
	location    *time.Location
	view        *view.State
	wait        runner.WaitFunc
	sinks       []types.Emitter
}

// Option configures a Controller.
type Option func(*settings)

// WithDelay sets the initial per-item delay.
func WithDelay(d time.Duration) Option {
	return func(s *settings) { s.delay = d }
}

// WithCollectOptions sets the load-all loop parameters.
func WithCollectOptions(o collect.Options) Option {
	return func(s *settings) { s.collectOpts = o }
}

// WithBaseURL sets the origin used to build project conversation URLs.
func WithBaseURL(u string) Option {
	return func(s *settings) { s.baseURL = u }
}

// WithLocation sets the zone for project update labels.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) { s.location = loc }
}

// WithView supplies a pre-configured view state.
func WithView(v *view.State) Option {
	return func(s *settings) { s.view = v }
}

// WithWait replaces every pause. Tests pass a no-op.
func WithWait(w runner.WaitFunc) Option {
	return func(s *settings) { s.wait = w }
}

// WithEmitter adds a synchronous event sink.
func WithEmitter(e types.Emitter) Option {
	return func(s *settings) { s.sinks = append(s.sinks, e) }
}

// Controller is the command surface of one session.
type Controller struct {
	enum   Enumerator
	remote Remote

	hub         *hub
	state       *runstate.State
	ledger      *ledger.Ledger
	selection   *selection.Model
	view        *view.State
	runner      *runner.Runner
	loader      *groups.Loader
	collector   *collect.Collector
	collectOpts collect.Options

	mu          sync.RWMutex
	items       []types.Item
	groups      []types.Group
	refreshedAt time.Time
}

// New wires a session around enum and remote.
func New(enum Enumerator, remote Remote, opts ...Option) *Controller {
	cfg := settings{delay: runner.DefaultDelay}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.view == nil {
		cfg.view = view.NewState()
	}

	h := newHub(cfg.sinks...)
	c := &Controller{
		enum:        enum,
		remote:      remote,
		hub:         h,
		ledger:      ledger.New(),
		selection:   selection.NewModel(),
		view:        cfg.view,
		collectOpts: cfg.collectOpts.WithDefaults(),
	}
	c.state = runstate.New(func(running bool) { h.Emit(types.NewBusyEvent(running)) })

	runnerOpts := []runner.Option{
		runner.WithReloader(enum),
		runner.WithEmitter(h),
		runner.WithDelay(cfg.delay),
	}
	var collectOpts []collect.Option
	if cfg.wait != nil {
		runnerOpts = append(runnerOpts, runner.WithWait(cfg.wait))
		collectOpts = append(collectOpts, collect.WithWait(cfg.wait))
	}
	c.runner = runner.New(remote, c.ledger, c.state, runnerOpts...)

	loaderOpts := []groups.Option{groups.WithEmitter(h)}
	if cfg.baseURL != "" {
		loaderOpts = append(loaderOpts, groups.WithBaseURL(cfg.baseURL))
	}
	if cfg.location != nil {
		loaderOpts = append(loaderOpts, groups.WithLocation(cfg.location))
	}
	c.loader = groups.NewLoader(remote, c.state, c.selection, loaderOpts...)
	c.collector = collect.New(enum, c.state, h, collectOpts...)
	return c
}

// Subscribe returns a channel of session events and a function that ends the
// subscription and closes the channel.
func (c *Controller) Subscribe(buffer int) (<-chan types.Event, func()) {
	return c.hub.subscribe(buffer)
}

// Refresh re-reads chats and projects from the page. It clears the global
// selection and the refresh hint. A missing credential is reported, not fatal.
// Refresh is refused while a run holds the session.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.state.Running() {
		c.logf(types.LogWarn, "Refresh refused: %v", types.ErrBusy)
		return fmt.Errorf("refresh: %w", types.ErrBusy)
	}
	c.logf(types.LogInfo, "Refreshing…")
	c.ledger.AcknowledgeRefresh()

	if !c.remote.HasCredential(ctx) {
		c.logf(types.LogWarn, "Note: Bearer not captured yet (API actions may fail). Open chatgpt.com and reload/open a chat so it makes backend-api requests.")
	}

	items, err := c.enum.EnumerateFlatItems(ctx)
	if err != nil {
		c.logf(types.LogError, "Failed: %v", err)
		return fmt.Errorf("refresh: %w", err)
	}
	grps, err := c.enum.EnumerateGroups(ctx)
	if err != nil {
		c.logf(types.LogError, "Failed: %v", err)
		return fmt.Errorf("refresh: %w", err)
	}

	c.mu.Lock()
	c.items = items
	c.groups = grps
	c.refreshedAt = time.Now()
	c.mu.Unlock()
	c.selection.Global().Clear()

	debugLog.Infof("refresh: %d chats, %d projects", len(items), len(grps))
	c.hub.Emit(types.Event{Type: types.EventTypeRefreshed, Time: time.Now(), Done: len(items), Total: len(grps)})
	c.logf(types.LogInfo, "Loaded chats=%d, projects=%d", len(items), len(grps))
	return nil
}

// LoadAll scrolls the page until the chat count settles, then refreshes.
// A busy session is refused without refreshing.
func (c *Controller) LoadAll(ctx context.Context) (collect.Result, error) {
	c.logf(types.LogInfo, "Load all: scrolling sidebar until stable (pause=%dms)…", c.collectOpts.Pause.Milliseconds())

	res, err := c.collector.Run(ctx, c.collectOpts)
	if errors.Is(err, types.ErrBusy) {
		c.logf(types.LogWarn, "Load all refused: %v", err)
		return res, err
	}
	if err != nil {
		c.logf(types.LogError, "Load all failed: %v", err)
	} else {
		note := ""
		if res.Note != "" {
			note = " (" + res.Note + ")"
		} else if res.Stopped {
			note = " (stopped)"
		}
		c.logf(types.LogInfo, "Load all done. rounds=%d finalCount=%d%s", res.Rounds, res.FinalCount, note)
	}

	if rerr := c.Refresh(ctx); rerr != nil && err == nil {
		err = rerr
	}
	return res, err
}

// LoadGroup fetches every conversation of a project. The project is shown
// expanded while loading and collapsed afterwards.
func (c *Controller) LoadGroup(ctx context.Context, groupID string) (groups.Result, error) {
	if c.loader.Loading(groupID) {
		return groups.Result{GroupID: groupID}, fmt.Errorf("load group %s: %w", groupID, types.ErrAlreadyLoading)
	}
	c.view.SetExpanded(groupID, true)
	defer c.view.SetExpanded(groupID, false)

	res, err := c.loader.Load(ctx, groupID)
	if errors.Is(err, types.ErrBusy) {
		c.logf(types.LogWarn, "Project load refused: %v", err)
	}
	return res, err
}

// RunBulk applies action to items in the given order.
func (c *Controller) RunBulk(ctx context.Context, items []types.Item, action types.Action) (types.RunSummary, error) {
	return c.runner.RunBulk(ctx, runner.BulkRequest{Items: items, Action: action})
}

// RunBulkSelected applies action to selected chats that pass the current
// filter, in display order. Hidden selected chats are left alone.
func (c *Controller) RunBulkSelected(ctx context.Context, action types.Action) (types.RunSummary, error) {
	targets := c.SelectedVisible()
	if len(targets) == 0 {
		c.logf(types.LogWarn, "No chats selected (within current filter).")
		return types.RunSummary{Action: action}, nil
	}
	return c.RunBulk(ctx, targets, action)
}

// RunBulkGroup applies action to the selected conversations of a loaded
// project, regardless of the filter.
func (c *Controller) RunBulkGroup(ctx context.Context, groupID string, action types.Action) (types.RunSummary, error) {
	cache, ok := c.loader.Cache(groupID)
	if !ok {
		return types.RunSummary{}, fmt.Errorf("project %s is not loaded", groupID)
	}
	return c.RunBulk(ctx, c.selection.Group(groupID).Pick(cache.Items), action)
}

// RunSingle applies action to one conversation. Listed chats reload the page
// afterwards; project conversations do not.
func (c *Controller) RunSingle(ctx context.Context, itemID string, action types.Action) error {
	reload := false
	if _, ok := c.chat(itemID); ok {
		reload = true
	} else if _, ok := c.loader.Find(itemID); !ok {
		return fmt.Errorf("%s %s: %w", action, itemID, ErrUnknownItem)
	}
	return c.runner.RunSingle(ctx, runner.SingleRequest{ItemID: itemID, Action: action, Reload: reload})
}

// Undo reverses an archive.
func (c *Controller) Undo(ctx context.Context, itemID string) error {
	return c.runner.Undo(ctx, itemID)
}

// Stop asks the current run to end after its in-flight item. It reports
// whether anything was running.
func (c *Controller) Stop() bool {
	active := c.state.Stop()
	c.logf(types.LogInfo, "Stop requested (will stop after current item).")
	return active
}

// SelectAllVisible adds every chat passing the filter to the global selection.
func (c *Controller) SelectAllVisible() int {
	visible := c.VisibleChats()
	c.selection.Global().AddAll(selection.IDsOf(visible))
	return len(visible)
}

// SelectNone clears the global selection.
func (c *Controller) SelectNone() {
	c.selection.Global().Clear()
}

// ToggleGroupAll selects or clears every conversation of a loaded project,
// including ones hidden by the filter.
func (c *Controller) ToggleGroupAll(groupID string) selection.TriState {
	cache, _ := c.loader.Cache(groupID)
	return c.selection.Group(groupID).ToggleAll(selection.IDsOf(cache.Items))
}

// ToggleExpanded flips a project's expanded state and returns the new state.
func (c *Controller) ToggleExpanded(groupID string) bool {
	expanded := !c.view.Expanded(groupID)
	c.view.SetExpanded(groupID, expanded)
	return expanded
}

// SetDelay sets the per-item delay and returns the clamped value.
func (c *Controller) SetDelay(d time.Duration) time.Duration {
	return c.runner.SetDelay(d)
}

// Delay returns the per-item delay.
func (c *Controller) Delay() time.Duration {
	return c.runner.Delay()
}

// Running reports whether a run holds the lock.
func (c *Controller) Running() bool { return c.state.Running() }

// Ledger returns the mutation ledger.
func (c *Controller) Ledger() *ledger.Ledger { return c.ledger }

// Selection returns the selection model.
func (c *Controller) Selection() *selection.Model { return c.selection }

// View returns the view state.
func (c *Controller) View() *view.State { return c.view }

// HasCredential reports whether API calls can be authorized.
func (c *Controller) HasCredential(ctx context.Context) bool { return c.remote.HasCredential(ctx) }

// RefreshedAt returns when the working set was last read.
func (c *Controller) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

// Items returns the listed chats in natural order.
func (c *Controller) Items() []types.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.Item(nil), c.items...)
}

// Groups returns the listed projects in natural order.
func (c *Controller) Groups() []types.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.Group(nil), c.groups...)
}

// GroupCache returns a snapshot of a loaded project.
func (c *Controller) GroupCache(groupID string) (groups.Cache, bool) {
	return c.loader.Cache(groupID)
}

// VisibleChats returns filtered chats in display order.
func (c *Controller) VisibleChats() []types.Item {
	return c.view.Chats(c.Items())
}

// VisibleGroups returns visible projects in display order.
func (c *Controller) VisibleGroups() []types.Group {
	return c.view.Groups(c.Groups())
}

// VisibleGroupItems returns a loaded project's filtered conversations in display order.
func (c *Controller) VisibleGroupItems(groupID string) []types.Item {
	cache, _ := c.loader.Cache(groupID)
	return c.view.GroupItems(cache.Items)
}

// SelectedVisible returns selected chats that pass the filter, in display order.
func (c *Controller) SelectedVisible() []types.Item {
	return c.selection.Global().Pick(c.VisibleChats())
}

// Meta returns the summary counts.
func (c *Controller) Meta() view.Meta {
	return c.view.Meta(c.Items(), c.Groups(), c.selection.Global().Len())
}

// Find looks up a conversation among listed chats and loaded projects.
func (c *Controller) Find(itemID string) (types.Item, bool) {
	if it, ok := c.chat(itemID); ok {
		return it, true
	}
	return c.loader.Find(itemID)
}

func (c *Controller) chat(itemID string) (types.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if it.ID == itemID {
			return it, true
		}
	}
	return types.Item{}, false
}

func (c *Controller) logf(level types.LogLevel, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case types.LogError:
		debugLog.Errorf("%s", msg)
	case types.LogWarn:
		debugLog.Warnf("%s", msg)
	default:
		debugLog.Infof("%s", msg)
	}
	c.hub.Emit(types.NewLogEvent(level, msg))
}
