// Package mcpserver exposes a canvas session's version history as MCP tools.
//
// Tools:
//
//	list_snapshots   retained snapshots, oldest first
//	get_snapshot     the collection reconstructed at an index
//	checkpoint       snapshot a collection supplied by the caller
//	diff_snapshots   per-tab deltas between two indices
//
// Failures (bad arguments, out-of-range indices, store errors) are reported
// as tool results with IsError set, never as protocol errors.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ipcrm/napkin/internal/canvas"
	"github.com/ipcrm/napkin/internal/history"
	"github.com/ipcrm/napkin/internal/session"
)

// Backend is the session surface the tools operate on.
// Implemented by *session.Session.
type Backend interface {
	ID() string
	Snapshots() []session.Info
	Restore(index int) (canvas.Collection, error)
	Diff(from, to int) ([]history.DocumentDelta, error)
	Checkpoint(ctx context.Context, c canvas.Collection, activeIndex int) (session.Result, error)
}

// Implementation identifies the server to MCP clients.
var Implementation = &mcp.Implementation{Name: "napkin-history", Version: "0.1.0"}

// New creates an MCP server with the history tools registered.
func New(b Backend, logger *slog.Logger) *mcp.Server {
	srv := mcp.NewServer(Implementation, nil)
	Register(srv, b, logger)
	return srv
}

// Register adds the history tools to srv.
func Register(srv *mcp.Server, b Backend, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &tools{backend: b, logger: logger}

	addTool(srv, logger, &mcp.Tool{
		Name:        "list_snapshots",
		Description: "List the retained canvas snapshots, oldest first, with summaries and tab titles.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, t.listSnapshots)

	addTool(srv, logger, &mcp.Tool{
		Name:        "get_snapshot",
		Description: "Reconstruct the full canvas collection captured by the snapshot at an index.",
		InputSchema: inputSchema(map[string]any{
			"index": map[string]any{"type": "integer", "minimum": 0, "description": "Snapshot index, 0 is the oldest"},
		}, []string{"index"}),
	}, t.getSnapshot)

	addTool(srv, logger, &mcp.Tool{
		Name:        "checkpoint",
		Description: "Snapshot a canvas collection. Returns changed=false if it matches the latest snapshot.",
		InputSchema: inputSchema(map[string]any{
			"collection": map[string]any{
				"type":        "object",
				"description": "Collection with documents[] (title, shapes, viewport) and active_index",
			},
			"active_index": map[string]any{
				"type":        "integer",
				"description": "Active tab; defaults to collection.active_index",
			},
		}, []string{"collection"}),
	}, t.checkpoint)

	addTool(srv, logger, &mcp.Tool{
		Name:        "diff_snapshots",
		Description: "Per-tab shape changes that turn snapshot 'from' into snapshot 'to'.",
		InputSchema: inputSchema(map[string]any{
			"from": map[string]any{"type": "integer", "minimum": 0},
			"to":   map[string]any{"type": "integer", "minimum": 0},
		}, []string{"from", "to"}),
	}, t.diffSnapshots)
}

type handler func(ctx context.Context, args json.RawMessage) (any, error)

// errInvalidArgs marks decode failures so they are reported distinctly.
var errInvalidArgs = errors.New("invalid arguments")

func addTool(srv *mcp.Server, logger *slog.Logger, tool *mcp.Tool, h handler) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := h(ctx, req.Params.Arguments)
		if err != nil {
			logger.Debug("tool failed", "tool", tool.Name, "error", err)
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

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

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

type tools struct {
	backend Backend
	logger  *slog.Logger
}

type listResp struct {
	Session   string         `json:"session"`
	Snapshots []session.Info `json:"snapshots"`
}

func (t *tools) listSnapshots(ctx context.Context, args json.RawMessage) (any, error) {
	return listResp{Session: t.backend.ID(), Snapshots: t.backend.Snapshots()}, nil
}

type getReq struct {
	Index *int `json:"index"`
}

type getResp struct {
	Index      int               `json:"index"`
	Collection canvas.Collection `json:"collection"`
}

func (t *tools) getSnapshot(ctx context.Context, args json.RawMessage) (any, error) {
	var r getReq
	if err := decode(args, &r); err != nil {
		return nil, err
	}
	if r.Index == nil {
		return nil, fmt.Errorf("%w: index is required", errInvalidArgs)
	}
	c, err := t.backend.Restore(*r.Index)
	if err != nil {
		return nil, err
	}
	return getResp{Index: *r.Index, Collection: c}, nil
}

type checkpointReq struct {
	Collection  *canvas.Collection `json:"collection"`
	ActiveIndex *int               `json:"active_index"`
}

func (t *tools) checkpoint(ctx context.Context, args json.RawMessage) (any, error) {
	var r checkpointReq
	if err := decode(args, &r); err != nil {
		return nil, err
	}
	if r.Collection == nil {
		return nil, fmt.Errorf("%w: collection is required", errInvalidArgs)
	}
	active := r.Collection.ActiveIndex
	if r.ActiveIndex != nil {
		active = *r.ActiveIndex
	}
	return t.backend.Checkpoint(ctx, *r.Collection, active)
}

type diffReq struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

type diffResp struct {
	From   int                     `json:"from"`
	To     int                     `json:"to"`
	Deltas []history.DocumentDelta `json:"deltas"`
}

func (t *tools) diffSnapshots(ctx context.Context, args json.RawMessage) (any, error) {
	var r diffReq
	if err := decode(args, &r); err != nil {
		return nil, err
	}
	if r.From == nil || r.To == nil {
		return nil, fmt.Errorf("%w: from and to are required", errInvalidArgs)
	}
	deltas, err := t.backend.Diff(*r.From, *r.To)
	if err != nil {
		return nil, err
	}
	if deltas == nil {
		deltas = []history.DocumentDelta{}
	}
	return diffResp{From: *r.From, To: *r.To, Deltas: deltas}, nil
}
