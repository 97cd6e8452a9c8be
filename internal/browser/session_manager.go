// Package browser drives Chrome through rod and exposes a single page as a
// dom.Document.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"sprintreview/internal/config"
	"sprintreview/internal/dom"
	"sprintreview/internal/logging"
)

// ErrNotStarted is returned by document operations before Start.
var ErrNotStarted = errors.New("browser session not started")

// SessionManager owns the Chrome instance and the one page the scraper
// drives. Only Start and Shutdown are safe to call concurrently.
type SessionManager struct {
	cfg               config.BrowserConfig
	navigationTimeout time.Duration

	mu       sync.RWMutex
	launcher *launcher.Launcher // nil when attached to a running Chrome
	browser  *rod.Browser
	page     *rod.Page
}

// NewSessionManager creates a session manager for cfg.Browser.
func NewSessionManager(cfg *config.Config) *SessionManager {
	return &SessionManager{
		cfg:               cfg.Browser,
		navigationTimeout: cfg.GetNavigationTimeout(),
	}
}

// Start connects to cfg.DebuggerURL, or launches Chrome with the configured
// binary and profile, and opens the working page. The connection lives until
// ctx is done or Shutdown is called.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("Stale browser connection detected, reconnecting...")
		m.closeLocked()
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		l := m.newLauncher()
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome %s: %w", m.cfg.ChromeExePath, err)
		}
		m.launcher = l
		controlURL = url
		logging.Browser("chrome launched (headless=%v, profile=%s)", m.cfg.Headless, m.cfg.UserProfilePath)
	} else {
		logging.Browser("attaching to chrome at %s", controlURL)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		m.closeLocked()
		return fmt.Errorf("connect to chrome: %w", err)
	}
	m.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		m.closeLocked()
		return fmt.Errorf("create page: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.viewportWidth(),
		Height:            m.viewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.BrowserWarn("failed to set viewport: %v", err)
	}
	m.page = page
	return nil
}

func (m *SessionManager) newLauncher() *launcher.Launcher {
	l := launcher.New().Headless(m.cfg.Headless)
	if m.cfg.ChromeExePath != "" {
		l = l.Bin(m.cfg.ChromeExePath)
	}
	if m.cfg.UserProfilePath != "" {
		l = l.UserDataDir(m.cfg.UserProfilePath)
	}
	for _, rawFlag := range m.cfg.LaunchFlags {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			l = l.Set(flags.Flag(name), val)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	return l
}

func (m *SessionManager) viewportWidth() int {
	if m.cfg.ViewportWidth <= 0 {
		return 1024
	}
	return m.cfg.ViewportWidth
}

func (m *SessionManager) viewportHeight() int {
	if m.cfg.ViewportHeight <= 0 {
		return 768
	}
	return m.cfg.ViewportHeight
}

// Shutdown closes the page. A launched Chrome is closed too; an attached one
// is left running.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *SessionManager) closeLocked() error {
	var err error
	if m.page != nil {
		err = m.page.Close()
		m.page = nil
	}
	if m.launcher != nil {
		if m.browser != nil {
			if cerr := m.browser.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		m.launcher.Cleanup()
		m.launcher = nil
	}
	m.browser = nil
	return err
}

// IsConnected returns whether a page is open.
func (m *SessionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.page != nil
}

func (m *SessionManager) current() (*rod.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.page == nil {
		return nil, ErrNotStarted
	}
	return m.page, nil
}

// Load implements dom.Document.
func (m *SessionManager) Load(ctx context.Context, url string) error {
	page, err := m.current()
	if err != nil {
		return err
	}
	p := page.Context(ctx).Timeout(m.navigationTimeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	logging.BrowserDebug("loaded %s", url)
	return nil
}

// AwaitSelector implements dom.Document. Only the wait's own deadline counts
// as TimedOut; cancellation of ctx is returned as an error.
func (m *SessionManager) AwaitSelector(ctx context.Context, selector string, timeout time.Duration) (dom.Presence, error) {
	page, err := m.current()
	if err != nil {
		return dom.TimedOut, err
	}
	p := page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	el, err := p.Element(selector)
	if err == nil {
		err = el.WaitVisible()
	}
	switch {
	case err == nil:
		return dom.Found, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		logging.BrowserDebug("%q not visible after %v", selector, timeout)
		return dom.TimedOut, nil
	default:
		return dom.TimedOut, fmt.Errorf("wait for %q: %w", selector, err)
	}
}

// Evaluate implements dom.Document.
func (m *SessionManager) Evaluate(ctx context.Context, q dom.Query, args ...any) (json.RawMessage, error) {
	page, err := m.current()
	if err != nil {
		return nil, err
	}
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           q.JS,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value.Nil() {
		return json.RawMessage("null"), nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", q.Name, err)
	}
	return raw, nil
}

// Click implements dom.Document. Links that would open a new tab are
// followed in the current page.
func (m *SessionManager) Click(ctx context.Context, selector string, index int) error {
	page, err := m.current()
	if err != nil {
		return err
	}
	els, err := page.Context(ctx).Elements(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	if index < 0 || index >= len(els) {
		return fmt.Errorf("%q[%d] of %d: %w", selector, index, len(els), dom.ErrNoElement)
	}
	el := els[index]
	if _, err := el.Eval(`function() { this.removeAttribute('target') }`); err != nil {
		return fmt.Errorf("prepare click %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

var _ dom.Document = (*SessionManager)(nil)
