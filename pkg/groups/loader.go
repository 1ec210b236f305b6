// Package groups loads and caches the conversations of individual projects.
package groups

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/runstate"
	"github.com/entrhq/chatsweep/pkg/selection"
	"github.com/entrhq/chatsweep/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("groups")
	if err != nil {
		debugLog.Warnf("Failed to initialize groups logger, using stderr fallback: %v", err)
	}
}

// FirstCursor starts a listing.
const FirstCursor = "0"

// UpdatedLabelLayout formats item update times.
const UpdatedLabelLayout = "2006-01-02 15:04"

// PageFetcher fetches one page of a project's conversations.
type PageFetcher interface {
	FetchGroupPage(ctx context.Context, groupID, cursor string) (types.GroupPage, error)
}

// Cache is the loaded state of one project.
type Cache struct {
	GroupID string
	Loading bool
	Items   []types.Item

	// Cursor is the next page to fetch. Empty once the listing is exhausted.
	Cursor string

	// LoadedAt is stamped whenever a load reaches a terminal state.
	LoadedAt time.Time

	// Err is the error that ended the last load, if any.
	Err error

	// Stopped is set when the last load ended on a stop request.
	Stopped bool
}

// Result summarizes one Load call.
type Result struct {
	GroupID string
	Items   int
	Pages   int
	Stopped bool
}

// Loader fetches project pages under the run lock and keeps one Cache per project.
type Loader struct {
	fetcher   PageFetcher
	state     *runstate.State
	selection *selection.Model
	emitter   types.Emitter
	baseURL   string
	location  *time.Location
	now       func() time.Time

	mu     sync.RWMutex
	caches map[string]*Cache
}

// Option configures a Loader.
type Option func(*Loader)

// WithEmitter sets the event sink.
func WithEmitter(e types.Emitter) Option {
	return func(l *Loader) {
		if e != nil {
			l.emitter = e
		}
	}
}

// WithBaseURL sets the origin used to build conversation URLs.
func WithBaseURL(u string) Option {
	return func(l *Loader) { l.baseURL = strings.TrimRight(u, "/") }
}

// WithLocation sets the time zone for update labels.
func WithLocation(loc *time.Location) Option {
	return func(l *Loader) {
		if loc != nil {
			l.location = loc
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(fetcher PageFetcher, state *runstate.State, sel *selection.Model, opts ...Option) *Loader {
	l := &Loader{
		fetcher:   fetcher,
		state:     state,
		selection: sel,
		emitter:   types.Discard,
		baseURL:   "https://chatgpt.com",
		location:  time.Local,
		now:       time.Now,
		caches:    make(map[string]*Cache),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches every page of groupID, replacing any previous cache and the
// project's selection. Items fetched before an error or stop are kept.
func (l *Loader) Load(ctx context.Context, groupID string) (Result, error) {
	res := Result{GroupID: groupID}
	if groupID == "" {
		return res, fmt.Errorf("load group: empty group id")
	}

	l.mu.Lock()
	if c, ok := l.caches[groupID]; ok && c.Loading {
		l.mu.Unlock()
		return res, fmt.Errorf("load group %s: %w", groupID, types.ErrAlreadyLoading)
	}
	l.mu.Unlock()

	stop, release, err := l.state.Acquire(ctx, "load "+groupID)
	if err != nil {
		return res, err
	}
	defer release()

	l.mu.Lock()
	l.caches[groupID] = &Cache{GroupID: groupID, Loading: true, Cursor: FirstCursor}
	l.mu.Unlock()
	l.selection.Group(groupID).Clear()

	l.logf(types.LogInfo, "Loading project chats (gizmo=%s)…", groupID)
	debugLog.Infof("load %s: start", groupID)

	var (
		all       []types.Item
		cursor    = FirstCursor
		exhausted bool
		loadErr   error
	)
	for {
		if runstate.Stopped(stop) {
			res.Stopped = true
			break
		}

		page, err := l.fetcher.FetchGroupPage(ctx, groupID, cursor)
		if err != nil {
			loadErr = fmt.Errorf("load group %s page %d: %w", groupID, res.Pages+1, err)
			break
		}
		res.Pages++

		for _, it := range page.Items {
			if it.ID == "" {
				continue
			}
			all = append(all, l.normalize(groupID, it, len(all)))
		}

		l.mu.Lock()
		l.caches[groupID].Items = append([]types.Item(nil), all...)
		l.mu.Unlock()
		l.emitter.Emit(types.NewGroupProgressEvent(groupID, len(all)))
		debugLog.Debugf("load %s: page %d, %d items so far, next=%q", groupID, res.Pages, len(all), page.NextCursor)

		if page.NextCursor == "" || page.NextCursor == cursor {
			exhausted = true
			break
		}
		cursor = page.NextCursor
	}

	res.Items = len(all)

	l.mu.Lock()
	c := l.caches[groupID]
	c.Loading = false
	c.LoadedAt = l.now()
	c.Err = loadErr
	c.Stopped = res.Stopped
	if exhausted {
		c.Cursor = ""
	} else {
		c.Cursor = cursor
	}
	l.mu.Unlock()

	l.emitter.Emit(types.Event{
		Type:    types.EventTypeGroupLoaded,
		Time:    time.Now(),
		GroupID: groupID,
		Done:    len(all),
		Err:     loadErr,
	})

	if loadErr != nil {
		debugLog.Errorf("load %s: %v", groupID, loadErr)
		l.logf(types.LogError, "Project chats load FAILED: %v", loadErr)
		return res, loadErr
	}

	suffix := ""
	if res.Stopped {
		suffix = " (stopped early)"
	}
	debugLog.Infof("load %s: %d items in %d pages%s", groupID, len(all), res.Pages, suffix)
	l.logf(types.LogInfo, "Project chats loaded: %d%s", len(all), suffix)
	return res, nil
}

func (l *Loader) normalize(groupID string, it types.Item, order int) types.Item {
	it.GroupID = groupID
	it.Order = order
	if it.URL == "" {
		it.URL = l.baseURL + "/c/" + it.ID
	}
	if !it.UpdatedAt.IsZero() && it.UpdatedLabel == "" {
		it.UpdatedLabel = it.UpdatedAt.In(l.location).Format(UpdatedLabelLayout)
	}
	return it
}

// Cache returns a copy of the cache for groupID.
func (l *Loader) Cache(groupID string) (Cache, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.caches[groupID]
	if !ok {
		return Cache{}, false
	}
	out := *c
	out.Items = append([]types.Item(nil), c.Items...)
	return out, true
}

// Loading reports whether groupID is currently loading.
func (l *Loader) Loading(groupID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.caches[groupID]
	return ok && c.Loading
}

// GroupIDs returns the ids of every project loaded this session, sorted.
func (l *Loader) GroupIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.caches))
	for id := range l.caches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Find returns the cached item with id from any loaded project.
func (l *Loader) Find(id string) (types.Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.caches {
		for _, it := range c.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return types.Item{}, false
}

func (l *Loader) logf(level types.LogLevel, format string, args ...interface{}) {
	l.emitter.Emit(types.NewLogEvent(level, fmt.Sprintf(format, args...)))
}
