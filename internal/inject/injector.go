// Package inject realises the input-injection capability with an executable
// plugin, e.g. one that drives an Android device over adb.
package inject

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/plugin"
)

// Swipes run along the vertical centre line between these heights.
const (
	swipeLow  = 0.75
	swipeHigh = 0.25
	swipeX    = 0.5
)

// Config configures a PluginInjector.
type Config struct {
	// Plugin is the name in the plugin manifest.
	Plugin string
	// SwipeDuration is how long one swipe stroke lasts.
	SwipeDuration time.Duration
	// CheckTTL keeps a successful availability check for this long. Failed
	// checks are never kept.
	CheckTTL time.Duration
	// PluginConfig is sent as the request config of every plugin call.
	PluginConfig json.RawMessage
}

// requestSource identifies this process in plugin requests.
const requestSource = "mudra"

// DefaultConfig returns the adb-input plugin with 300ms swipes.
func DefaultConfig() Config {
	return Config{
		Plugin:        "adb-input",
		SwipeDuration: 300 * time.Millisecond,
		CheckTTL:      2 * time.Second,
	}
}

// PluginInjector implements dispatch.Injector by running a plugin per
// primitive. It is safe for concurrent use.
//
// Availability is checked in the background: IsAvailable returns the last
// result at once and starts a new check when that result is stale or
// negative, so callers never wait on the plugin.
type PluginInjector struct {
	cfg    Config
	mgr    *plugin.Manager
	exec   *plugin.Executor
	logger *slog.Logger
	now    func() time.Time

	available atomic.Bool
	checking  atomic.Bool

	mu        sync.Mutex
	availTill time.Time
}

var _ dispatch.Injector = (*PluginInjector)(nil)

// New creates a PluginInjector. The plugin is looked up lazily so it can be
// installed while the process runs.
func New(cfg Config, mgr *plugin.Manager, exec *plugin.Executor, logger *slog.Logger) *PluginInjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PluginInjector{
		cfg:    cfg,
		mgr:    mgr,
		exec:   exec,
		logger: logger,
		now:    time.Now,
	}
}

// IsAvailable reports the result of the last availability check without
// blocking. Unavailability is never trusted: every call that sees it starts
// another check.
func (p *PluginInjector) IsAvailable() bool {
	if !p.fresh() {
		p.refresh()
	}
	return p.available.Load()
}

// Check tests synchronously whether the plugin is installed and its device
// is reachable, and records the result. Plugins without a status action
// count as available once found.
func (p *PluginInjector) Check() bool {
	ok := p.check()

	p.mu.Lock()
	if ok {
		p.availTill = p.now().Add(p.cfg.CheckTTL)
	} else {
		p.availTill = time.Time{}
	}
	p.available.Store(ok)
	p.mu.Unlock()
	return ok
}

func (p *PluginInjector) check() bool {
	plug, err := p.mgr.Lookup(p.cfg.Plugin)
	if err != nil {
		p.logger.Debug("injector plugin missing", "plugin", p.cfg.Plugin, "error", err)
		return false
	}
	if plug.Manifest.Supports(plugin.ActionStatus) {
		if err := p.run(plug, plugin.ActionStatus, nil); err != nil {
			p.logger.Debug("injector not ready", "plugin", p.cfg.Plugin, "error", err)
			return false
		}
	}
	return true
}

func (p *PluginInjector) fresh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available.Load() && p.now().Before(p.availTill)
}

// refresh starts a background check unless one is already running.
func (p *PluginInjector) refresh() {
	if !p.checking.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer p.checking.Store(false)
		p.Check()
	}()
}

// Swipe swipes up (next item) or down (previous item).
func (p *PluginInjector) Swipe(dir dispatch.Direction) error {
	params := plugin.SwipeParams{
		X1: swipeX, Y1: swipeLow,
		X2: swipeX, Y2: swipeHigh,
		DurationMs: p.cfg.SwipeDuration.Milliseconds(),
	}
	if dir == dispatch.SwipeDown {
		params.Y1, params.Y2 = swipeHigh, swipeLow
	}
	return p.do(plugin.ActionSwipe, params)
}

// Tap presses at the normalized position (x, y) for d.
func (p *PluginInjector) Tap(x, y float64, d time.Duration) error {
	return p.do(plugin.ActionTap, plugin.TapParams{X: x, Y: y, DurationMs: d.Milliseconds()})
}

// VolumeDown lowers the media volume one step.
func (p *PluginInjector) VolumeDown() error {
	return p.do(plugin.ActionVolumeDown, nil)
}

func (p *PluginInjector) do(name string, params any) error {
	plug, err := p.mgr.Lookup(p.cfg.Plugin)
	if err != nil {
		p.invalidate()
		return fmt.Errorf("%w: %v", dispatch.ErrCapabilityUnavailable, err)
	}
	if !plug.Manifest.Supports(name) {
		return fmt.Errorf("plugin %s does not support %s", plug.Manifest.Name, name)
	}
	if err := p.run(plug, name, params); err != nil {
		p.invalidate()
		return err
	}
	return nil
}

func (p *PluginInjector) run(plug *plugin.Plugin, name string, params any) error {
	req := &plugin.Request{Action: name, Source: requestSource, Config: p.cfg.PluginConfig}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", name, err)
		}
		req.Params = raw
	}

	resp, err := p.exec.Execute(context.Background(), plug, req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if !resp.Success {
		if resp.Error == "" {
			return fmt.Errorf("%s: %w", name, errPluginFailed)
		}
		return fmt.Errorf("%s: %w: %s", name, errPluginFailed, resp.Error)
	}
	return nil
}

// invalidate marks the plugin unavailable after a failed primitive. The
// next IsAvailable call checks again.
func (p *PluginInjector) invalidate() {
	p.mu.Lock()
	p.availTill = time.Time{}
	p.available.Store(false)
	p.mu.Unlock()
}

var errPluginFailed = errors.New("plugin reported failure")
