package snapshot

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domlens/kit"
)

// RegisterMCP registers the perception tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerSnapshotTool(srv)
	e.registerMarkdownTool(srv)
	e.registerEndSessionTool(srv)
	e.registerStatsTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- snapshot ---

type snapshotRequest struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url,omitempty"`
}

type snapshotResponse struct {
	Text     string    `json:"text"`
	IsDiff   bool      `json:"is_diff"`
	Controls []Control `json:"controls,omitempty"`
}

func (e *Engine) registerSnapshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_snapshot",
		Description: "Snapshot the session's page as indexed text. Returns the full snapshot on first call, then a diff against the previous snapshot when smaller.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Client session ID"},
			"url":        map[string]any{"type": "string", "description": "Optional: navigate the session's page to this URL before snapshotting"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*snapshotRequest)
		if r.URL != "" {
			if err := e.OpenSession(ctx, r.SessionID, r.URL); err != nil {
				return nil, err
			}
		}
		res, controls, err := e.ComputeWithControls(ctx, r.SessionID)
		if err != nil {
			return nil, err
		}
		return &snapshotResponse{Text: res.Text, IsDiff: res.IsDiff, Controls: controls}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r snapshotRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- markdown ---

func (e *Engine) registerMarkdownTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_markdown",
		Description: "Render the session's page as markdown. Reading mode: full document every time, no diffing, the session baseline is untouched.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Client session ID"},
			"url":        map[string]any{"type": "string", "description": "Optional: navigate the session's page to this URL first"},
		}, []string{"session_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*snapshotRequest)
		if r.URL != "" {
			if err := e.OpenSession(ctx, r.SessionID, r.URL); err != nil {
				return nil, err
			}
		}
		return e.ComputeDocument(ctx, r.SessionID)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r snapshotRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- end_session ---

func (e *Engine) registerEndSessionTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_end_session",
		Description: "End a session: close its page and drop its snapshot baseline.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session ID to end"},
		}, []string{"session_id"}),
	}

	type endReq struct {
		SessionID string `json:"session_id"`
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*endReq)
		if err := e.EndSession(ctx, r.SessionID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ended", "session_id": r.SessionID}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r endReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- stats ---

func (e *Engine) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domlens_stats",
		Description: "Get engine statistics: diff strategy, store backend, and active session count.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return e.Stats(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
