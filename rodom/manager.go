// Package rodom captures live documents from Chrome via Rod. It owns the
// browser lifecycle and the per-session page table, and turns a live page
// into an immutable dom.Tree with a single injected-JS evaluation so the
// engine never holds references into the mutating document.
package rodom

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Manager manages the Chrome process: launch a local instance or connect to
// a remote one, hand out the browser handle, and clean up on Close.
type Manager struct {
	cfg  ManagerConfig
	mu   sync.RWMutex
	b    *rod.Browser
	lnch *launcher.Launcher
}

// ManagerConfig configures the browser manager.
type ManagerConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome.
	Remote string

	Logger *slog.Logger
}

// NewManager creates a Manager. Call Start to launch or connect.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to the configured remote) and returns
// the Rod browser handle.
func (m *Manager) Start() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.cfg.Logger
	var wsURL string

	if m.cfg.Remote != "" {
		wsURL = m.cfg.Remote
		log.Info("rodom: connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("rodom: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("rodom: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("rodom: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("rodom: ignore cert errors failed", "error", err)
	}

	m.b = b
	return b, nil
}

// Browser returns the current browser handle, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.b
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.b != nil {
		m.b.Close()
		m.b = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
