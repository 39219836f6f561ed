package rodom

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/domlens/dom"
)

// Sessions maps client sessions to open browser pages. It implements the
// engine's Capturer, Navigator, and HTMLSource contracts.
type Sessions struct {
	mgr    *Manager
	cfg    SessionConfig
	mu     sync.RWMutex
	pages  map[string]*rod.Page
	logger *slog.Logger
}

// SessionConfig configures per-session page handling.
type SessionConfig struct {
	NavTimeout time.Duration

	// ResourceBlocking lists resource types to block (images, fonts, media,
	// stylesheets) to keep navigation and capture fast.
	ResourceBlocking []string

	Logger *slog.Logger
}

// NewSessions creates the session table over a started Manager.
func NewSessions(mgr *Manager, cfg SessionConfig) *Sessions {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sessions{
		mgr:    mgr,
		cfg:    cfg,
		pages:  make(map[string]*rod.Page),
		logger: cfg.Logger,
	}
}

// Open creates (or reuses) the session's page and navigates it. Stealth is
// applied on page creation; navigation waits for load up to NavTimeout.
func (s *Sessions) Open(ctx context.Context, sessionID, url string) error {
	s.mu.Lock()
	page := s.pages[sessionID]
	s.mu.Unlock()

	if page == nil {
		b := s.mgr.Browser()
		if b == nil {
			return fmt.Errorf("rodom: no active browser")
		}
		p, err := stealth.Page(b)
		if err != nil {
			return fmt.Errorf("rodom: create page: %w", err)
		}
		if len(s.cfg.ResourceBlocking) > 0 {
			if err := applyResourceBlocking(p, s.cfg.ResourceBlocking); err != nil {
				s.logger.Warn("rodom: resource blocking failed", "error", err)
			}
		}
		page = p
		s.mu.Lock()
		s.pages[sessionID] = page
		s.mu.Unlock()
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		return fmt.Errorf("rodom: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.logger.Warn("rodom: wait load timeout", "url", url, "error", err)
	}

	s.logger.Info("rodom: session page ready", "session", sessionID, "url", url)
	return nil
}

// Capture serialises the session's current document into a dom.Tree.
func (s *Sessions) Capture(ctx context.Context, sessionID string) (*dom.Tree, error) {
	page, err := s.page(sessionID)
	if err != nil {
		return nil, err
	}
	return capture(ctx, page)
}

// HTML returns the session's raw serialised document.
func (s *Sessions) HTML(ctx context.Context, sessionID string) ([]byte, error) {
	page, err := s.page(sessionID)
	if err != nil {
		return nil, err
	}
	res, err := page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("rodom: get document: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// End closes the session's page. Unknown sessions are a no-op.
func (s *Sessions) End(sessionID string) error {
	s.mu.Lock()
	page := s.pages[sessionID]
	delete(s.pages, sessionID)
	s.mu.Unlock()

	if page == nil {
		return nil
	}
	if err := page.Close(); err != nil {
		return fmt.Errorf("rodom: close page: %w", err)
	}
	return nil
}

// Close ends all sessions.
func (s *Sessions) Close() {
	s.mu.Lock()
	pages := s.pages
	s.pages = make(map[string]*rod.Page)
	s.mu.Unlock()

	for id, p := range pages {
		if err := p.Close(); err != nil {
			s.logger.Warn("rodom: close page", "session", id, "error", err)
		}
	}
}

func (s *Sessions) page(sessionID string) (*rod.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page := s.pages[sessionID]
	if page == nil {
		return nil, fmt.Errorf("rodom: no page for session %s", sessionID)
	}
	return page, nil
}

// applyResourceBlocking intercepts requests and drops the configured
// resource types.
func applyResourceBlocking(page *rod.Page, types []string) error {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if shouldBlock(blockSet, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return nil
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	switch strings.ToLower(resType) {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	}
	return blockSet[strings.ToLower(resType)]
}
