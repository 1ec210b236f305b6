// Package browser drives the live chat tab with Playwright.
//
// A Tab owns a persistent Chromium profile so the user's signed-in session
// survives restarts. It reads the sidebar, scrolls it to load more history,
// reloads the page after mutations, and forwards the bearer credential the web
// app sends to its backend to a CredentialSink.
package browser

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/chatsweep/pkg/logging"
	"github.com/entrhq/chatsweep/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("browser")
	if err != nil {
		debugLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

const (
	DefaultStartURL       = "https://chatgpt.com/"
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 900
)

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Options configures Launch.
type Options struct {
	// StartURL is opened when the profile has no chat tab yet.
	StartURL string

	// UserDataDir holds the persistent browser profile. Defaults to ~/.chatsweep/profile.
	UserDataDir string

	// Headless runs without a visible window. Signing in requires a visible window.
	Headless bool

	// Timeout is the default Playwright operation timeout.
	Timeout time.Duration

	Viewport *Viewport
}

// CredentialSink receives authorization header values seen on backend requests.
type CredentialSink interface {
	Capture(headerValue string) bool
}

// page is the subset of a Playwright page the Tab uses.
type page interface {
	URL() string
	Content() (string, error)
	Evaluate(expression string) (interface{}, error)
	Count(selector string) (int, error)
	Reload() error
}

type playwrightPage struct {
	p playwright.Page
}

func (pp playwrightPage) URL() string              { return pp.p.URL() }
func (pp playwrightPage) Content() (string, error) { return pp.p.Content() }
func (pp playwrightPage) Evaluate(expr string) (interface{}, error) {
	return pp.p.Evaluate(expr)
}
func (pp playwrightPage) Count(selector string) (int, error) {
	return pp.p.Locator(selector).Count()
}
func (pp playwrightPage) Reload() error {
	_, err := pp.p.Reload(playwright.PageReloadOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded})
	return err
}

// Tab is the live view.
type Tab struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	bctx    playwright.BrowserContext
	page    page
	origin  *url.URL
	closed  bool
	capture int
}

// DefaultUserDataDir returns ~/.chatsweep/profile.
func DefaultUserDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".chatsweep", "profile"), nil
}

// Launch installs Playwright's Chromium if needed, opens the persistent profile
// and navigates to StartURL unless a chat tab is already open.
func Launch(ctx context.Context, opts Options, sink CredentialSink) (*Tab, error) {
	if opts.StartURL == "" {
		opts.StartURL = DefaultStartURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.UserDataDir == "" {
		dir, err := DefaultUserDataDir()
		if err != nil {
			return nil, err
		}
		opts.UserDataDir = dir
	}
	origin, err := originOf(opts.StartURL)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.UserDataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	// Keep Playwright quiet so it does not draw over the TUI.
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	t := &Tab{pw: pw, bctx: bctx, origin: origin}

	apiPrefix := origin.String() + "/backend-api/"
	bctx.OnRequest(func(req playwright.Request) {
		if sink == nil || !strings.HasPrefix(req.URL(), apiPrefix) {
			return
		}
		for k, v := range req.Headers() {
			if strings.EqualFold(k, "authorization") && sink.Capture(v) {
				t.mu.Lock()
				t.capture++
				first := t.capture == 1
				t.mu.Unlock()
				if first {
					debugLog.Infof("captured bearer from %s", req.URL())
				}
				return
			}
		}
	})

	pg, err := chatPage(bctx, origin)
	if err != nil {
		_ = bctx.Close()
		_ = pw.Stop()
		return nil, err
	}
	pg.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	if !sameOrigin(pg.URL(), origin) {
		if _, err := pg.Goto(opts.StartURL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}); err != nil {
			_ = bctx.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("navigation failed: %w", err)
		}
	}

	t.page = playwrightPage{p: pg}
	debugLog.Infof("browser ready: profile=%s headless=%v url=%s", opts.UserDataDir, opts.Headless, pg.URL())
	return t, nil
}

// chatPage returns an existing tab on origin, the first tab, or a new one.
func chatPage(bctx playwright.BrowserContext, origin *url.URL) (playwright.Page, error) {
	pages := bctx.Pages()
	for _, p := range pages {
		if sameOrigin(p.URL(), origin) {
			return p, nil
		}
	}
	if len(pages) > 0 {
		return pages[0], nil
	}
	p, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return p, nil
}

func originOf(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid start url %q", raw)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}

func sameOrigin(raw string, origin *url.URL) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, origin.Scheme) && strings.EqualFold(u.Host, origin.Host)
}

func (t *Tab) live(ctx context.Context) (page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.page == nil {
		return nil, fmt.Errorf("browser closed: %w", types.ErrEnumerationUnavailable)
	}
	if !sameOrigin(t.page.URL(), t.origin) {
		return nil, fmt.Errorf("tab is on %s, not %s: %w", t.page.URL(), t.origin.Host, types.ErrEnumerationUnavailable)
	}
	return t.page, nil
}

// Snapshot parses the current sidebar.
func (t *Tab) Snapshot(ctx context.Context) (Sidebar, error) {
	p, err := t.live(ctx)
	if err != nil {
		return Sidebar{}, err
	}
	content, err := p.Content()
	if err != nil {
		return Sidebar{}, fmt.Errorf("read page: %v: %w", err, types.ErrEnumerationUnavailable)
	}
	return ParseSidebar(strings.NewReader(content), t.origin.String())
}

// EnumerateFlatItems returns the sidebar chats in display order.
func (t *Tab) EnumerateFlatItems(ctx context.Context) ([]types.Item, error) {
	sb, err := t.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return sb.Chats, nil
}

// EnumerateGroups returns the sidebar projects in display order.
func (t *Tab) EnumerateGroups(ctx context.Context) ([]types.Group, error) {
	sb, err := t.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return sb.Groups, nil
}

// scrollScript scrolls the nearest scrollable ancestor of the first chat link
// to the bottom. It returns false when no such container exists.
const scrollScript = `() => {
  const sel = 'a[href^="/c/"], a[href^="/chat/"], a[href*="/c/"]';
  const visible = (el) => el.offsetParent !== null;
  let scroller = null;
  const link = document.querySelector(sel);
  if (link) {
    let el = link.parentElement;
    for (let i = 0; i < 24 && el; i++) {
      const oy = getComputedStyle(el).overflowY;
      if ((oy === "auto" || oy === "scroll") && el.scrollHeight > el.clientHeight) { scroller = el; break; }
      el = el.parentElement;
    }
    if (!scroller) {
      scroller = Array.from(document.querySelectorAll("nav, aside, div"))
        .find(x => visible(x) && x.scrollHeight > x.clientHeight) || null;
    }
  }
  if (!scroller) return false;
  scroller.scrollTop = scroller.scrollHeight;
  return true;
}`

// AdvanceView scrolls the sidebar to trigger loading more history.
func (t *Tab) AdvanceView(ctx context.Context) error {
	p, err := t.live(ctx)
	if err != nil {
		return err
	}
	res, err := p.Evaluate(scrollScript)
	if err != nil {
		return fmt.Errorf("scroll sidebar: %w", err)
	}
	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("no sidebar scroll container found: %w", types.ErrEnumerationUnavailable)
	}
	return nil
}

// CurrentEnumerableCount counts chat links currently in the page.
func (t *Tab) CurrentEnumerableCount(ctx context.Context) (int, error) {
	p, err := t.live(ctx)
	if err != nil {
		return 0, err
	}
	n, err := p.Count(ChatSelector)
	if err != nil {
		return 0, fmt.Errorf("count chats: %w", err)
	}
	return n, nil
}

// Reload reloads the chat tab.
func (t *Tab) Reload(ctx context.Context) error {
	p, err := t.live(ctx)
	if err != nil {
		return err
	}
	debugLog.Debugf("reloading %s", p.URL())
	if err := p.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// Close closes the browser and stops Playwright. Safe to call multiple times.
func (t *Tab) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if t.bctx != nil {
		if err := t.bctx.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.pw != nil {
		if err := t.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing browser: %v", errs)
	}
	return nil
}
