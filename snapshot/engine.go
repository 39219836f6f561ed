// Package snapshot is the page perception engine. One call renders the
// client's live page as an indexed text snapshot — visible text plus
// interactive controls in reading order — and decides whether to return the
// full blob or a smaller diff against the session's previous snapshot.
//
// Pipeline per request:
//
//	capture → scan controls → linearize → diff-select → store baseline
//
// The baseline stored is always the full current snapshot, regardless of
// what the caller received. A failed capture never touches the baseline.
//
// Usage:
//
//	eng, err := snapshot.New(capt, cfg, logger)
//	res, err := eng.Compute(ctx, sessionID)
//	eng.RegisterMCP(mcpServer)
//	eng.RegisterConnectivity(router)
package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/domlens/dom"
	"github.com/hazyhaar/domlens/session"
	"github.com/hazyhaar/domlens/snapdiff"
	"github.com/hazyhaar/domlens/snapshot/internal/layout"
	"github.com/hazyhaar/domlens/snapshot/internal/scan"
)

// Capturer reads the live document of a session. Implementations query the
// hosting browser by handle per call and never hand out live references; a
// returned tree is a best-effort reflection of the page at read time.
type Capturer interface {
	Capture(ctx context.Context, sessionID string) (*dom.Tree, error)
}

// Navigator is the optional session-bootstrap side of a Capturer: opening a
// page for a session and tearing the session down. rodom.Sessions implements
// both.
type Navigator interface {
	Open(ctx context.Context, sessionID, url string) error
	End(sessionID string) error
}

// HTMLSource is the optional raw-document side of a Capturer, used by the
// markdown perception mode.
type HTMLSource interface {
	HTML(ctx context.Context, sessionID string) ([]byte, error)
}

// Result is the engine's response for one request: either the full current
// snapshot (IsDiff false) or a rendered diff against the session's previous
// snapshot (IsDiff true). Never both mixed.
type Result struct {
	Text   string `json:"text"`
	IsDiff bool   `json:"is_diff"`
}

// Control re-exports the scanner's control record for action-layer callers.
type Control = scan.Control

// Engine computes snapshots per session.
type Engine struct {
	capt     Capturer
	store    session.Store
	locks    *session.Locks
	strategy snapdiff.Strategy
	layout   layout.Options
	logger   *slog.Logger
	config   *Config
}

// New creates an Engine. The store backend and diff strategy come from cfg;
// capt supplies live documents.
func New(capt Capturer, cfg *Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	strategy, err := snapdiff.New(cfg.Diff.Strategy, cfg.Diff.Options)
	if err != nil {
		return nil, err
	}

	var store session.Store
	switch cfg.Store.Backend {
	case "memory":
		store = session.NewMemory()
	case "sqlite":
		s, err := session.OpenSQLite(cfg.Store.DBPath)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("snapshot: unknown store backend %q", cfg.Store.Backend)
	}

	return &Engine{
		capt:     capt,
		store:    store,
		locks:    session.NewLocks(),
		strategy: strategy,
		layout: layout.Options{
			LineThreshold:   cfg.Layout.LineThreshold,
			BacktrackMargin: cfg.Layout.BacktrackMargin,
		},
		logger: logger,
		config: cfg,
	}, nil
}

// Compute produces the snapshot response for one request. Requests for the
// same session are serialized; distinct sessions run concurrently. On
// capture failure the error is surfaced and the baseline stays untouched.
// An empty page is not an error: it yields an empty snapshot and still
// updates the baseline.
func (e *Engine) Compute(ctx context.Context, sessionID string) (Result, error) {
	res, _, err := e.compute(ctx, sessionID)
	return res, err
}

// ComputeWithControls also returns the scanned controls so an action layer
// can resolve snapshot indexes to element handles. The controls belong to
// this snapshot only; a mutated page invalidates them.
func (e *Engine) ComputeWithControls(ctx context.Context, sessionID string) (Result, []Control, error) {
	return e.compute(ctx, sessionID)
}

func (e *Engine) compute(ctx context.Context, sessionID string) (Result, []Control, error) {
	release := e.locks.Acquire(sessionID)
	defer release()

	tree, err := e.capt.Capture(ctx, sessionID)
	if err != nil {
		return Result{}, nil, &AccessorError{SessionID: sessionID, Err: err}
	}

	controls := scan.Controls(tree)
	current := layout.Linearize(tree, controls, e.layout)

	previous, ok, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return Result{}, nil, fmt.Errorf("snapshot: load baseline: %w", err)
	}

	var res Result
	if !ok {
		res = Result{Text: current, IsDiff: false}
	} else {
		sel := e.strategy.Select(previous, current)
		res = Result{Text: sel.Text, IsDiff: sel.IsDiff}
	}

	// The baseline is always the full current snapshot, never the diff.
	if err := e.store.Set(ctx, sessionID, current); err != nil {
		return Result{}, nil, fmt.Errorf("snapshot: store baseline: %w", err)
	}

	e.logger.Debug("snapshot: computed",
		"session", sessionID,
		"controls", len(controls),
		"full_len", len(current),
		"is_diff", res.IsDiff)

	return res, controls, nil
}

// OpenSession navigates a session's page, when the capturer supports
// bootstrap.
func (e *Engine) OpenSession(ctx context.Context, sessionID, url string) error {
	nav, ok := e.capt.(Navigator)
	if !ok {
		return fmt.Errorf("snapshot: capturer does not support navigation")
	}
	if err := nav.Open(ctx, sessionID, url); err != nil {
		return fmt.Errorf("snapshot: open session %s: %w", sessionID, err)
	}
	return nil
}

// EndSession tears a session down: its baseline is removed and, when the
// capturer owns the page, the page is closed.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	release := e.locks.Acquire(sessionID)
	defer release()

	if nav, ok := e.capt.(Navigator); ok {
		if err := nav.End(sessionID); err != nil {
			e.logger.Warn("snapshot: close session page", "session", sessionID, "error", err)
		}
	}
	return e.store.Remove(ctx, sessionID)
}

// Store exposes the baseline store for admin and testing.
func (e *Engine) Store() session.Store {
	return e.store
}

// Stats summarises the engine's configuration and active baselines.
type Stats struct {
	Strategy     string `json:"strategy"`
	StoreBackend string `json:"store_backend"`
	Sessions     int    `json:"sessions"`
}

// Stats reports the engine's runtime state. Session counting needs a store
// that implements session.Counter; both bundled backends do.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		Strategy:     e.config.Diff.Strategy,
		StoreBackend: e.config.Store.Backend,
	}
	if c, ok := e.store.(session.Counter); ok {
		n, err := c.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot: stats: %w", err)
		}
		st.Sessions = n
	}
	return st, nil
}
