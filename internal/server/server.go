// Package server provides the internal MCP server implementation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BearHuddleston/employee-mcp-server/pkg/config"
	"github.com/BearHuddleston/employee-mcp-server/pkg/mcp"
)

// Server implements the core MCP server logic
type Server struct {
	toolHandler mcp.ToolHandler
	serverInfo  mcp.ServerInfo
	logger      *slog.Logger
}

// New creates a new MCP server with the given handlers
func New(cfg *config.Config, toolHandler mcp.ToolHandler, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if toolHandler == nil {
		return nil, fmt.Errorf("toolHandler cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		toolHandler: toolHandler,
		serverInfo: mcp.ServerInfo{
			Name:    cfg.ServerName,
			Version: cfg.ServerVersion,
		},
		logger: logger,
	}, nil
}

// Initialize handles the MCP initialization handshake
func (s *Server) Initialize(ctx context.Context) (*mcp.InitializeResponse, error) {
	return &mcp.InitializeResponse{
		ProtocolVersion: mcp.ProtocolVersion,
		Capabilities: map[string]any{
			"tools": map[string]any{},
		},
		ServerInfo: s.serverInfo,
	}, nil
}

// HandleRequest processes a JSON-RPC request. Exactly one response is sent
// for every request; a panic while dispatching becomes an internal error
// response.
func (s *Server) HandleRequest(ctx context.Context, req mcp.Request) (err error) {
	logger := s.logger
	if session := mcp.SessionID(ctx); session != "" {
		logger = logger.With("session", session)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling request", "method", req.Method, "panic", r)
			err = s.sendError(ctx, req.ID, mcp.ErrorCodeInternalError, fmt.Sprintf("Internal error: %v", r), nil)
		}
	}()

	logger.Debug("handling request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(ctx, req.ID)
	case "tools/list":
		return s.handleToolsList(ctx, req.ID)
	case "tools/call":
		return s.handleToolsCall(ctx, req.ID, req)
	default:
		return s.sendError(ctx, req.ID, mcp.ErrorCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

// Helper methods for sending responses
func (s *Server) sendResponse(ctx context.Context, id any, result any) error {
	response := mcp.Response{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
	return s.sendResponseDirect(ctx, response)
}

func (s *Server) sendError(ctx context.Context, id any, code int, message string, data any) error {
	if sender := ctx.Value(mcp.ResponseSenderKey); sender != nil {
		if rs, ok := sender.(mcp.ResponseSender); ok {
			return rs.SendError(id, code, message, data)
		}
	}
	// This shouldn't happen in normal operation
	return fmt.Errorf("no response sender in context")
}

func (s *Server) sendResponseDirect(ctx context.Context, response mcp.Response) error {
	if sender := ctx.Value(mcp.ResponseSenderKey); sender != nil {
		if rs, ok := sender.(mcp.ResponseSender); ok {
			return rs.SendResponse(response)
		}
	}
	// This shouldn't happen in normal operation
	return fmt.Errorf("no response sender in context")
}

// Request handlers
func (s *Server) handleInitialize(ctx context.Context, id any) error {
	result, err := s.Initialize(ctx)
	if err != nil {
		return s.sendError(ctx, id, mcp.ErrorCodeInternalError, fmt.Sprintf("Internal error: %s", err.Error()), nil)
	}
	return s.sendResponse(ctx, id, result)
}

func (s *Server) handleToolsList(ctx context.Context, id any) error {
	tools, err := s.toolHandler.ListTools(ctx)
	if err != nil {
		return s.sendError(ctx, id, mcp.ErrorCodeInternalError, fmt.Sprintf("Internal error: %s", err.Error()), nil)
	}
	return s.sendResponse(ctx, id, map[string][]mcp.Tool{"tools": tools})
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req mcp.Request) error {
	params, err := s.parseToolCallParams(req.Params)
	if err != nil {
		return s.sendError(ctx, id, mcp.ErrorCodeInvalidParams, fmt.Sprintf("Invalid params: %s", err.Error()), nil)
	}

	response, err := s.toolHandler.CallTool(ctx, params)
	if errors.Is(err, mcp.ErrUnknownTool) {
		return s.sendError(ctx, id, mcp.ErrorCodeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name), nil)
	}
	if err != nil {
		s.logger.Warn("tool call failed", "tool", params.Name, "error", err)
		return s.sendError(ctx, id, mcp.ErrorCodeInternalError, fmt.Sprintf("Internal error: %s", err.Error()), nil)
	}
	return s.sendResponse(ctx, id, response)
}

// Parameter parsing helpers
func (s *Server) parseToolCallParams(params json.RawMessage) (mcp.ToolCallParams, error) {
	if len(params) == 0 || string(params) == "null" {
		return mcp.ToolCallParams{}, fmt.Errorf("params cannot be nil")
	}

	// Convert params to map
	var paramsMap map[string]any
	if err := json.Unmarshal(params, &paramsMap); err != nil {
		return mcp.ToolCallParams{}, fmt.Errorf("params must be an object")
	}

	// Extract name
	name, ok := paramsMap["name"].(string)
	if !ok {
		return mcp.ToolCallParams{}, fmt.Errorf("name parameter is required and must be a string")
	}

	// Extract arguments
	args := make(map[string]any)
	if arguments, exists := paramsMap["arguments"]; exists && arguments != nil {
		argsMap, ok := arguments.(map[string]any)
		if !ok {
			return mcp.ToolCallParams{}, fmt.Errorf("arguments must be an object")
		}
		args = argsMap
	}

	return mcp.ToolCallParams{
		Name:      name,
		Arguments: args,
	}, nil
}
