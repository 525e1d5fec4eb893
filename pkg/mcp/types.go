// Package mcp provides core Model Context Protocol types and interfaces.
package mcp

import (
	"context"
	"encoding/json"
)

// Constants for MCP protocol
const (
	ProtocolVersion = "0.1.0"
	JSONRPCVersion  = "2.0"
)

// JSON-RPC 2.0 error codes
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603
)

// Core MCP types
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InitializeResponse struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

// JSON-RPC 2.0 message types
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	ID      any             `json:"id"` // string, number or null; echoed back verbatim
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response always serializes its id, so a request without one is answered
// with "id": null.
type Response struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewErrorResponse builds an error response for the given request id.
func NewErrorResponse(id any, code int, message string) Response {
	return Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &ErrorResponse{
			Code:    code,
			Message: message,
		},
	}
}

// Core interfaces

// Server defines the core MCP server interface.
type Server interface {
	// Initialize handles the MCP initialization handshake.
	Initialize(ctx context.Context) (*InitializeResponse, error)
	// HandleRequest processes a JSON-RPC request and sends exactly one
	// response through the ResponseSender stored in ctx.
	HandleRequest(ctx context.Context, req Request) error
}

// ToolHandler defines the interface for handling MCP tool operations.
type ToolHandler interface {
	// ListTools returns all available tools.
	ListTools(ctx context.Context) ([]Tool, error)
	// CallTool executes a tool with the given parameters.
	CallTool(ctx context.Context, params ToolCallParams) (ToolResponse, error)
}

// ResponseSender defines the interface for sending responses back to clients.
type ResponseSender interface {
	// SendResponse sends a successful response.
	SendResponse(response Response) error
	// SendError sends an error response.
	SendError(id any, code int, message string, data any) error
}

// Context keys for dependency injection
type contextKey string

const ResponseSenderKey contextKey = "responseSender"
const SessionIDKey contextKey = "sessionID"

// SessionID returns the transport session id stored in ctx, or "" when the
// transport has no sessions.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}
