// Package cli provides a line-oriented command shell over the orchestrator.
//
// Long operations (bulk runs, project loads, load all) run in the background so
// that "stop" can be typed while they are in progress. Everything else runs
// inline. Lists are numbered; commands accept either a list number or an id.
//
// Example usage:
//
//	ctrl := orchestrator.New(tab, client)
//	executor := cli.NewExecutor(ctrl, cli.WithWriter(os.Stdout))
//	if err := executor.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/entrhq/chatsweep/pkg/ledger"
	"github.com/entrhq/chatsweep/pkg/orchestrator"
	"github.com/entrhq/chatsweep/pkg/selection"
	"github.com/entrhq/chatsweep/pkg/types"
	"github.com/entrhq/chatsweep/pkg/view"
)

const titleWidth = 60

// Executor reads commands from a reader and prints results to a writer.
type Executor struct {
	ctrl   *orchestrator.Controller
	reader *bufio.Reader
	writer io.Writer

	// Display options
	showLogs bool

	mu sync.Mutex // serialises writes
	wg sync.WaitGroup
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithWriter sets a custom output writer (default is os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithReader sets a custom input reader (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = bufio.NewReader(r)
	}
}

// WithShowLogs enables/disables echoing controller log lines.
func WithShowLogs(show bool) ExecutorOption {
	return func(e *Executor) {
		e.showLogs = show
	}
}

// NewExecutor creates a new CLI executor for the given controller.
func NewExecutor(ctrl *orchestrator.Controller, opts ...ExecutorOption) *Executor {
	e := &Executor{
		ctrl:     ctrl,
		reader:   bufio.NewReader(os.Stdin),
		writer:   os.Stdout,
		showLogs: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the command loop. It returns when the input ends, the user quits
// or ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	events, unsubscribe := e.ctrl.Subscribe(orchestrator.DefaultSubscriberBuffer)
	eventsDone := make(chan struct{})
	go e.handleEvents(events, eventsDone)
	defer func() {
		e.wg.Wait()
		unsubscribe()
		<-eventsDone
	}()

	e.println("chatsweep")
	e.println("Type 'help' for commands, 'quit' to exit.")
	e.println()

	if err := e.ctrl.Refresh(ctx); err != nil {
		e.printf("❌ Error: %v\n", err)
	}

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		default:
		}

		e.print("> ")
		input, err := e.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			e.shutdown()
			return fmt.Errorf("failed to read input: %w", err)
		}

		// End of input lets background work finish; quit stops it.
		quit, cmdErr := e.Execute(ctx, input)
		if cmdErr != nil {
			e.printf("❌ Error: %v\n", cmdErr)
		}
		if quit {
			e.shutdown()
			return nil
		}
		if err != nil {
			return nil
		}
	}
}

// Execute runs one command line. quit reports whether the shell should exit.
func (e *Executor) Execute(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		e.printHelp()
	case "status":
		e.printStatus(ctx)
	case "refresh", "r":
		return false, e.ctrl.Refresh(ctx)
	case "list", "ls":
		e.printChats()
	case "projects":
		e.printProjects()
	case "open":
		return false, e.openProject(args)
	case "filter":
		e.ctrl.View().SetFilter(strings.Join(args, " "))
		e.println(e.ctrl.Meta().String())
	case "sort":
		return false, e.setSort(args)
	case "select":
		return false, e.selectChats(args, true)
	case "deselect":
		return false, e.selectChats(args, false)
	case "all":
		e.printf("Selected %d visible chats.\n", e.ctrl.SelectAllVisible())
	case "none":
		e.ctrl.SelectNone()
		e.println("Selection cleared.")
	case "toggle-all":
		state := e.ctrl.Selection().Global().ToggleAll(selection.IDsOf(e.ctrl.VisibleChats()))
		e.printf("Visible chats: %s\n", state)
	case "pselect":
		return false, e.selectProject(args)
	case "load":
		return false, e.loadProject(ctx, args)
	case "load-all":
		e.background(func() error {
			_, err := e.ctrl.LoadAll(ctx)
			return err
		})
	case "run":
		return false, e.runBulk(ctx, args)
	case "archive":
		return false, e.single(ctx, args, types.ActionArchive)
	case "delete":
		return false, e.single(ctx, args, types.ActionDelete)
	case "undo":
		if len(args) != 1 {
			return false, errors.New("usage: undo <n|id>")
		}
		it, err := e.resolveChat(args[0])
		if err != nil {
			return false, err
		}
		return false, e.ctrl.Undo(ctx, it.ID)
	case "delay":
		return false, e.setDelay(args)
	case "stop":
		if !e.ctrl.Stop() {
			e.println("Nothing is running.")
		}
	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return false, nil
}

// Wait blocks until background operations finish.
func (e *Executor) Wait() { e.wg.Wait() }

func (e *Executor) background(fn func() error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := fn(); err != nil {
			e.printf("❌ Error: %v\n", err)
		}
	}()
}

func (e *Executor) handleEvents(events <-chan types.Event, done chan struct{}) {
	defer close(done)
	for ev := range events {
		e.handleEvent(ev)
	}
}

func (e *Executor) handleEvent(ev types.Event) {
	switch ev.Type {
	case types.EventTypeLog:
		if !e.showLogs {
			return
		}
		switch ev.Level {
		case types.LogError:
			e.printf("❌ %s\n", ev.Message)
		case types.LogWarn:
			e.printf("⚠️  %s\n", ev.Message)
		default:
			e.printf("· %s\n", ev.Message)
		}
	case types.EventTypeRunEnd:
		if ev.Summary != nil {
			e.printSummary(*ev.Summary)
		}
	}
}

func (e *Executor) printSummary(s types.RunSummary) {
	status := "done"
	if s.Stopped {
		status = "stopped"
	}
	e.printf("✅ %s %s: ok=%d failed=%d processed=%d/%d (%s)\n",
		s.Action, status, s.OK, s.Failed, s.Processed, s.Total, s.Duration().Round(time.Millisecond))
	for _, f := range s.Failures {
		e.printf("   ✗ %s %s: %s\n", f.ItemID, f.Title, f.Error)
	}
}

func (e *Executor) printHelp() {
	e.println(`Commands:
  refresh                    re-read the sidebar
  list | projects            show visible chats / projects
  open <project>             show a loaded project's conversations
  filter [text]              filter titles (substring or glob), empty clears
  sort <natural|alpha> [asc|desc]
  select|deselect <n|id>...  change chat selection
  all | none                 select every visible chat / clear selection
  toggle-all                 select every visible chat, or clear them when all are selected
  pselect <project> [n...]   toggle a project's conversations (all when no n)
  load <project>             fetch a project's conversations
  load-all                   scroll the sidebar until the list stops growing
  run <archive|delete> [project]
                             bulk over the chat selection or a project's selection
  archive|delete|undo <n|id> act on one conversation
  delay [ms]                 show or set the pause between bulk items
  stop                       stop after the current item
  status | help | quit`)
}

func (e *Executor) printStatus(ctx context.Context) {
	e.println(e.ctrl.Meta().String())
	mode, dir := e.ctrl.View().Sort()
	e.printf("sort=%s %s  delay=%dms  running=%t  credential=%t\n",
		mode, dir, e.ctrl.Delay().Milliseconds(), e.ctrl.Running(), e.ctrl.HasCredential(ctx))
	if at := e.ctrl.RefreshedAt(); !at.IsZero() {
		e.printf("refreshed %s\n", at.Format(time.Kitchen))
	}
	if e.ctrl.Ledger().RefreshSuggested() {
		e.println("refresh suggested")
	}
}

func (e *Executor) printChats() {
	chats := e.ctrl.VisibleChats()
	e.printf("My Chats (%d)\n", len(chats))
	if len(chats) == 0 {
		e.println("  (no chats matched filter)")
	}
	sel := e.ctrl.Selection().Global()
	for i, it := range chats {
		e.printf("%4d %s %s%s\n", i+1, checked(sel.Has(it.ID)), fit(it.DisplayTitle()), e.suffix(it))
	}
}

func (e *Executor) printProjects() {
	grps := e.ctrl.VisibleGroups()
	e.printf("Projects (%d)\n", len(grps))
	if len(grps) == 0 {
		e.println("  (no projects matched filter)")
	}
	for i, g := range grps {
		state := "not loaded"
		box := "[ ]"
		if cache, ok := e.ctrl.GroupCache(g.GroupID); ok {
			sel := e.ctrl.Selection().Group(g.GroupID)
			box = tri(sel.State(selection.IDsOf(cache.Items)))
			state = fmt.Sprintf("%d chats, %d selected", len(cache.Items), sel.Len())
			if cache.Loading {
				state = "loading"
			}
		}
		e.printf("%4d %s %s  (%s)\n", i+1, box, fit(g.Title), state)
	}
}

func (e *Executor) openProject(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: open <project>")
	}
	g, err := e.resolveGroup(args[0])
	if err != nil {
		return err
	}
	cache, ok := e.ctrl.GroupCache(g.GroupID)
	if !ok {
		return fmt.Errorf("project %q is not loaded (try 'load %s')", g.Title, args[0])
	}
	items := e.ctrl.VisibleGroupItems(g.GroupID)
	sel := e.ctrl.Selection().Group(g.GroupID)
	e.printf("%s: %d chats (visible %d) (selected %d)\n", g.Title, len(cache.Items), len(items), sel.Len())
	if len(items) == 0 {
		e.println("  (no conversations matched filter in this project)")
	}
	for i, it := range items {
		e.printf("%4d %s %s%s\n", i+1, checked(sel.Has(it.ID)), fit(it.DisplayTitle()), e.suffix(it))
	}
	return nil
}

func (e *Executor) setSort(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New("usage: sort <natural|alpha> [asc|desc]")
	}
	mode, err := view.ParseSortMode(args[0])
	if err != nil {
		return err
	}
	_, dir := e.ctrl.View().Sort()
	if len(args) == 2 {
		if dir, err = view.ParseSortDir(args[1]); err != nil {
			return err
		}
	}
	e.ctrl.View().SetSort(mode, dir)
	return nil
}

func (e *Executor) selectChats(args []string, on bool) error {
	if len(args) == 0 {
		return errors.New("usage: select|deselect <n|id>...")
	}
	sel := e.ctrl.Selection().Global()
	for _, a := range args {
		it, err := e.resolveChat(a)
		if err != nil {
			return err
		}
		if on {
			sel.Add(it.ID)
		} else {
			sel.Remove(it.ID)
		}
	}
	e.println(e.ctrl.Meta().String())
	return nil
}

func (e *Executor) selectProject(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: pselect <project> [n...]")
	}
	g, err := e.resolveGroup(args[0])
	if err != nil {
		return err
	}
	cache, ok := e.ctrl.GroupCache(g.GroupID)
	if !ok {
		return fmt.Errorf("project %q is not loaded", g.Title)
	}
	if len(args) == 1 {
		state := e.ctrl.ToggleGroupAll(g.GroupID)
		e.printf("%s: %s\n", g.Title, state)
		return nil
	}
	items := e.ctrl.VisibleGroupItems(g.GroupID)
	sel := e.ctrl.Selection().Group(g.GroupID)
	for _, a := range args[1:] {
		it, err := pick(items, a)
		if err != nil {
			return err
		}
		sel.Toggle(it.ID)
	}
	e.printf("%s: %d of %d selected\n", g.Title, sel.Count(selection.IDsOf(cache.Items)), len(cache.Items))
	return nil
}

func (e *Executor) loadProject(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: load <project>")
	}
	g, err := e.resolveGroup(args[0])
	if err != nil {
		return err
	}
	e.background(func() error {
		_, err := e.ctrl.LoadGroup(ctx, g.GroupID)
		return err
	})
	return nil
}

func (e *Executor) runBulk(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New("usage: run <archive|delete> [project]")
	}
	action, err := types.ParseAction(args[0])
	if err != nil {
		return err
	}
	if !action.Bulk() {
		return fmt.Errorf("%s cannot be run in bulk", action)
	}

	var count int
	var run func() error
	if len(args) == 2 {
		g, err := e.resolveGroup(args[1])
		if err != nil {
			return err
		}
		cache, ok := e.ctrl.GroupCache(g.GroupID)
		if !ok {
			return fmt.Errorf("project %q is not loaded", g.Title)
		}
		count = len(e.ctrl.Selection().Group(g.GroupID).Pick(cache.Items))
		run = func() error {
			_, err := e.ctrl.RunBulkGroup(ctx, g.GroupID, action)
			return err
		}
	} else {
		count = len(e.ctrl.SelectedVisible())
		run = func() error {
			_, err := e.ctrl.RunBulkSelected(ctx, action)
			return err
		}
	}

	if action == types.ActionDelete && count > 0 &&
		!e.confirm(fmt.Sprintf("Delete %d conversations? This cannot be undone. (y/N) ", count)) {
		e.println("Cancelled.")
		return nil
	}
	e.background(run)
	return nil
}

func (e *Executor) single(ctx context.Context, args []string, action types.Action) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <n|id>", action)
	}
	it, err := e.resolveChat(args[0])
	if err != nil {
		return err
	}
	if action == types.ActionDelete &&
		!e.confirm(fmt.Sprintf("Delete %q? This cannot be undone. (y/N) ", it.DisplayTitle())) {
		e.println("Cancelled.")
		return nil
	}
	return e.ctrl.RunSingle(ctx, it.ID, action)
}

func (e *Executor) setDelay(args []string) error {
	switch len(args) {
	case 0:
	case 1:
		ms, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid delay %q: %w", args[0], err)
		}
		e.ctrl.SetDelay(time.Duration(ms) * time.Millisecond)
	default:
		return errors.New("usage: delay [ms]")
	}
	e.printf("Delay: %dms\n", e.ctrl.Delay().Milliseconds())
	return nil
}

func (e *Executor) confirm(prompt string) bool {
	e.print(prompt)
	answer, err := e.reader.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// resolveChat accepts a list number, a flat chat id or a loaded project chat id.
func (e *Executor) resolveChat(ref string) (types.Item, error) {
	if it, err := pick(e.ctrl.VisibleChats(), ref); err == nil {
		return it, nil
	}
	if it, ok := e.ctrl.Find(ref); ok {
		return it, nil
	}
	return types.Item{}, fmt.Errorf("no conversation %q", ref)
}

func (e *Executor) resolveGroup(ref string) (types.Group, error) {
	grps := e.ctrl.VisibleGroups()
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(grps) {
			return types.Group{}, fmt.Errorf("project %d out of range (1-%d)", n, len(grps))
		}
		return grps[n-1], nil
	}
	canonical, _ := types.CanonicalGroupID(ref)
	for _, g := range e.ctrl.Groups() {
		if g.GroupID == ref || g.GroupID == canonical || g.RawID == ref {
			return g, nil
		}
	}
	return types.Group{}, fmt.Errorf("no project %q", ref)
}

func pick(items []types.Item, ref string) (types.Item, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(items) {
			return types.Item{}, fmt.Errorf("%d out of range (1-%d)", n, len(items))
		}
		return items[n-1], nil
	}
	for _, it := range items {
		if it.ID == ref {
			return it, nil
		}
	}
	return types.Item{}, fmt.Errorf("no conversation %q", ref)
}

func (e *Executor) suffix(it types.Item) string {
	var out string
	if label := it.UpdatedLabel; label != "" {
		out += "  " + label
	} else if it.Bucket != "" {
		out += "  " + it.Bucket
	}
	switch state := e.ctrl.Ledger().State(it.ID); state {
	case ledger.Archived, ledger.Deleted:
		out += "  [" + state.String() + "]"
	}
	return out
}

func (e *Executor) shutdown() {
	if e.ctrl.Stop() {
		e.println("\nStopping current run...")
	}
}

func checked(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func tri(s selection.TriState) string {
	switch s {
	case selection.All:
		return "[x]"
	case selection.Partial:
		return "[-]"
	}
	return "[ ]"
}

func fit(s string) string {
	return runewidth.FillRight(runewidth.Truncate(s, titleWidth, "…"), titleWidth)
}

func (e *Executor) print(a ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprint(e.writer, a...)
}

func (e *Executor) println(a ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.writer, a...)
}

func (e *Executor) printf(format string, a ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.writer, format, a...)
}
