package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BearHuddleston/employee-mcp-server/pkg/mcp"
)

// Stdio implements the newline-delimited stdio transport for MCP.
// Requests are handled strictly one at a time: the response to a line is
// written and flushed before the next line is decoded.
type Stdio struct {
	in             io.Reader
	sender         *LineSender
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewStdio creates a stdio transport reading requests from in and writing
// responses to out.
func NewStdio(in io.Reader, out io.Writer, requestTimeout time.Duration, logger *slog.Logger) *Stdio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stdio{
		in:             in,
		sender:         NewLineSender(out),
		requestTimeout: requestTimeout,
		logger:         logger,
	}
}

// Start reads JSON-RPC messages until the input is exhausted or ctx is done.
// End of input is a clean shutdown and returns nil. Lines have no length
// limit.
func (t *Stdio) Start(ctx context.Context, server mcp.Server) error {
	t.logger.Info("Starting stdio transport")

	reader := bufio.NewReader(t.in)

	// Create channels for message processing
	lineChan := make(chan []byte)
	errChan := make(chan error)

	// Start reader goroutine
	go func() {
		defer close(lineChan)
		defer close(errChan)

		for {
			line, err := reader.ReadBytes('\n')
			if len(line) > 0 {
				select {
				case <-ctx.Done():
					return
				case lineChan <- line:
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case <-ctx.Done():
				case errChan <- err:
				}
				return
			}
		}
	}()

	// Message processing loop
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Stdio transport shutting down")
			return nil
		case err := <-errChan:
			if err != nil {
				t.logger.Error("Error reading input", "error", err)
			}
			return err
		case line, ok := <-lineChan:
			if !ok {
				t.logger.Info("Input closed, exiting")
				return nil
			}

			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			if err := t.handleMessage(ctx, server, line); err != nil {
				t.logger.Error("Error handling message", "error", err)
			}
		}
	}
}

// Stop stops the stdio transport (no-op for stdio)
func (t *Stdio) Stop() error {
	return nil
}

func (t *Stdio) handleMessage(ctx context.Context, server mcp.Server, line []byte) error {
	req, errResp := DecodeRequest(line)
	if errResp != nil {
		return t.sender.SendResponse(*errResp)
	}

	// Add stdout sender to context
	reqCtx := context.WithValue(ctx, mcp.ResponseSenderKey, mcp.ResponseSender(t.sender))
	if t.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(reqCtx, t.requestTimeout)
		defer cancel()
	}

	return server.HandleRequest(reqCtx, req)
}

// DecodeRequest decodes one JSON-RPC message. Malformed JSON yields a parse
// error response and a non-object value an invalid request response, both
// with a null id.
func DecodeRequest(data []byte) (mcp.Request, *mcp.Response) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		resp := mcp.NewErrorResponse(nil, mcp.ErrorCodeParseError, "Parse error")
		return mcp.Request{}, &resp
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		resp := mcp.NewErrorResponse(nil, mcp.ErrorCodeInvalidRequest, "Invalid Request")
		return mcp.Request{}, &resp
	}

	var req mcp.Request
	if err := json.Unmarshal(data, &req); err != nil {
		resp := mcp.NewErrorResponse(obj["id"], mcp.ErrorCodeInvalidRequest, "Invalid Request")
		return mcp.Request{}, &resp
	}
	return req, nil
}

// LineSender implements ResponseSender by writing one JSON document per line
// and flushing after each.
type LineSender struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewLineSender wraps w.
func NewLineSender(w io.Writer) *LineSender {
	return &LineSender{w: bufio.NewWriter(w)}
}

func (s *LineSender) SendResponse(response mcp.Response) error {
	jsonBytes, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(append(jsonBytes, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return s.w.Flush()
}

func (s *LineSender) SendError(id any, code int, message string, data any) error {
	errorResp := &mcp.ErrorResponse{
		Code:    code,
		Message: message,
		Data:    data,
	}
	response := mcp.Response{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      id,
		Error:   errorResp,
	}
	return s.SendResponse(response)
}
