package headless

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/chatsweep/pkg/orchestrator"
	"github.com/entrhq/chatsweep/pkg/types"
)

const gid = "g-p-0123456789abcdef0123456789abcdef"

type stubEnum struct{}

func (stubEnum) EnumerateFlatItems(context.Context) ([]types.Item, error) {
	return []types.Item{
		{ID: "c1", Title: "Standup notes", Order: 0},
		{ID: "c2", Title: "Standup (keep)", Order: 1},
		{ID: "c3", Title: "Tax questions", Order: 2},
	}, nil
}

func (stubEnum) EnumerateGroups(context.Context) ([]types.Group, error) {
	return []types.Group{
		{GroupID: gid, Title: "Scratch", Order: 0},
		{GroupID: "g-p-ffffffffffffffffffffffffffffffff", Title: "Work", Order: 1},
	}, nil
}

func (stubEnum) AdvanceView(context.Context) error                   { return nil }
func (stubEnum) CurrentEnumerableCount(context.Context) (int, error) { return 3, nil }
func (stubEnum) Reload(context.Context) error                        { return nil }

type stubRemote struct {
	mu      sync.Mutex
	calls   []string
	fetched []string
	fail    map[string]bool
}

func (r *stubRemote) Mutate(_ context.Context, id string, a types.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, a.String()+":"+id)
	if r.fail[id] {
		return types.NewRemoteError("mutate", 500, "boom")
	}
	return nil
}

func (r *stubRemote) FetchGroupPage(_ context.Context, groupID, _ string) (types.GroupPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetched = append(r.fetched, groupID)
	return types.GroupPage{Items: []types.Item{{ID: "p1", Title: "Scratch one"}, {ID: "p2", Title: "Keep this"}}}, nil
}

func (r *stubRemote) HasCredential(context.Context) bool { return true }

func (r *stubRemote) callList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestExecutor(t *testing.T, remote *stubRemote, mutate func(c *Config)) (*Executor, *bytes.Buffer) {
	t.Helper()
	ctrl := orchestrator.New(stubEnum{}, remote,
		orchestrator.WithWait(func(context.Context, time.Duration) error { return nil }))

	cfg := DefaultConfig()
	cfg.Artifacts.OutputDir = filepath.Join(t.TempDir(), "artifacts")
	cfg.Logging.Color = false
	cfg.Chats.Match = []string{"standup*"}
	cfg.Chats.Exclude = []string{"*keep*"}
	if mutate != nil {
		mutate(cfg)
	}

	var out bytes.Buffer
	e, err := NewExecutor(ctrl, cfg, WithLogger(NewWriterLogger(LogLevelVerbose, &out, false)))
	require.NoError(t, err)
	return e, &out
}

func plannedIDs(s *ExecutionSummary) []string {
	var ids []string
	for _, p := range s.Planned {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestDryRunPlansWithoutMutating(t *testing.T) {
	remote := &stubRemote{}
	e, out := newTestExecutor(t, remote, nil)

	require.NoError(t, e.Run(context.Background()))

	s := e.Summary()
	assert.Equal(t, statusDryRun, s.Status)
	assert.Equal(t, []string{"c1"}, plannedIDs(s))
	assert.Empty(t, remote.callList())
	assert.Equal(t, 3, s.Metrics.ChatsLoaded)
	assert.Equal(t, 2, s.Metrics.ProjectsLoaded)
	assert.Contains(t, out.String(), `would archive c1 "Standup notes"`)
	assert.Contains(t, out.String(), "DRY RUN")

	_, err := os.Stat(filepath.Join(e.config.Artifacts.OutputDir, "summary.json"))
	assert.NoError(t, err)
}

func TestRunWithProjects(t *testing.T) {
	remote := &stubRemote{}
	e, _ := newTestExecutor(t, remote, func(c *Config) {
		c.DryRun = false
		c.Projects = ProjectSelector{Enabled: true, Names: []string{"scratch"}, Exclude: []string{"keep*"}}
	})

	require.NoError(t, e.Run(context.Background()))

	s := e.Summary()
	assert.Equal(t, statusSuccess, s.Status)
	assert.Equal(t, []string{"c1", "p1"}, plannedIDs(s))
	assert.Equal(t, "Scratch", s.Planned[1].Project)
	assert.Equal(t, []string{"archive:c1", "archive:p1"}, remote.callList())
	assert.Equal(t, []string{gid}, remote.fetched, "only matching projects are loaded")
	require.NotNil(t, s.Run)
	assert.Equal(t, 2, s.Metrics.OK)
}

func TestPartialFailure(t *testing.T) {
	remote := &stubRemote{fail: map[string]bool{"c3": true}}
	e, out := newTestExecutor(t, remote, func(c *Config) {
		c.DryRun = false
		c.Chats.Match = nil
		c.Chats.Exclude = []string{"*keep*"}
	})

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 conversations failed")

	s := e.Summary()
	assert.Equal(t, statusPartialSuccess, s.Status)
	assert.Equal(t, 1, s.Metrics.Failed)
	assert.Contains(t, out.String(), "PARTIAL SUCCESS")
	assert.Contains(t, out.String(), "HTTP 500")
}

func TestAllFailed(t *testing.T) {
	remote := &stubRemote{fail: map[string]bool{"c1": true}}
	e, _ := newTestExecutor(t, remote, func(c *Config) { c.DryRun = false })

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, statusFailed, e.Summary().Status)
}

func TestStoppedBeforeFirstItem(t *testing.T) {
	remote := &stubRemote{}
	e, out := newTestExecutor(t, remote, func(c *Config) { c.DryRun = false })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run stopped before any of 1 conversations was processed")
	assert.NotContains(t, err.Error(), "failed")

	s := e.Summary()
	assert.Equal(t, statusStopped, s.Status)
	require.NotNil(t, s.Run)
	assert.True(t, s.Run.Stopped)
	assert.Zero(t, s.Run.Processed)
	assert.Empty(t, remote.callList())
	assert.Contains(t, out.String(), "STOPPED")
}

func TestPlanTooLarge(t *testing.T) {
	remote := &stubRemote{}
	e, _ := newTestExecutor(t, remote, func(c *Config) {
		c.DryRun = false
		c.Chats.Match = nil
		c.Chats.Exclude = nil
		c.MaxItems = 2
	})

	err := e.Run(context.Background())
	assert.True(t, errors.Is(err, ErrPlanTooLarge))
	assert.Empty(t, remote.callList())
	assert.Equal(t, statusFailed, e.Summary().Status)
}

func TestEmptyPlanSucceeds(t *testing.T) {
	remote := &stubRemote{}
	e, _ := newTestExecutor(t, remote, func(c *Config) {
		c.DryRun = false
		c.Chats.Match = []string{"nothing matches this"}
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, statusSuccess, e.Summary().Status)
	assert.Empty(t, remote.callList())
}

func TestNewExecutorRejectsBadConfig(t *testing.T) {
	ctrl := orchestrator.New(stubEnum{}, &stubRemote{})

	cfg := DefaultConfig()
	cfg.Action = types.ActionUndelete
	_, err := NewExecutor(ctrl, cfg)
	assert.ErrorContains(t, err, "invalid configuration")

	cfg = DefaultConfig()
	cfg.Chats.Match = []string{"[unclosed"}
	_, err = NewExecutor(ctrl, cfg)
	assert.ErrorContains(t, err, "invalid match pattern")
}
