package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BearHuddleston/employee-mcp-server/pkg/config"
	"github.com/BearHuddleston/employee-mcp-server/pkg/mcp"
)

// maxBodySize bounds a single request body.
const maxBodySize = 10 * 1024 * 1024

// HTTPTransport implements Transport for JSON-RPC over HTTP POST.
// Dispatches are serialized so requests reach the store one at a time, the
// same as on stdio.
type HTTPTransport struct {
	port     int
	server   *http.Server
	config   *config.Config
	logger   *slog.Logger
	dispatch sync.Mutex
}

// HTTPResponseSender implements ResponseSender for HTTP responses
type HTTPResponseSender struct {
	writer http.ResponseWriter
	sent   bool
	mu     sync.Mutex
}

func (h *HTTPResponseSender) SendResponse(response mcp.Response) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sent {
		return fmt.Errorf("response already sent")
	}

	h.writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	h.writer.WriteHeader(http.StatusOK)
	err := json.NewEncoder(h.writer).Encode(response)
	h.sent = true
	return err
}

func (h *HTTPResponseSender) SendError(id any, code int, message string, data any) error {
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
	return h.SendResponse(response)
}

// NewHTTP creates a new HTTP transport
func NewHTTP(cfg *config.Config, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTransport{
		port:   cfg.HTTPPort,
		config: cfg,
		logger: logger,
	}
}

// Handler returns the HTTP handler serving the MCP and health endpoints.
func (t *HTTPTransport) Handler(ctx context.Context, server mcp.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		t.corsMiddleware,
		t.securityMiddleware,
	)

	r.Post("/mcp", func(w http.ResponseWriter, r *http.Request) {
		t.handlePost(ctx, server, w, r)
	})
	r.Options("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// CORS preflight handled by middleware
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	return r
}

func (t *HTTPTransport) Start(ctx context.Context, server mcp.Server) error {
	eg, egctx := errgroup.WithContext(ctx)

	t.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", t.port),
		Handler:      t.Handler(egctx, server),
		ReadTimeout:  t.config.ReadTimeout,
		WriteTimeout: t.config.WriteTimeout,
		IdleTimeout:  t.config.IdleTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
	}

	t.logger.Info("Starting HTTP transport", "port", t.port, "endpoint", fmt.Sprintf("http://localhost:%d/mcp", t.port))

	eg.Go(func() error {
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for context cancellation
	eg.Go(func() error {
		<-egctx.Done()
		t.logger.Info("HTTP transport shutting down")
		return t.Stop()
	})

	return eg.Wait()
}

func (t *HTTPTransport) Stop() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), t.config.ShutdownTimeout)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

func (t *HTTPTransport) handlePost(ctx context.Context, server mcp.Server, w http.ResponseWriter, r *http.Request) {
	// Reuse the client's session id or hand out a new one
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	w.Header().Set("Mcp-Session-Id", sessionID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		t.sendError(w, nil, mcp.ErrorCodeParseError, "Parse error", err.Error())
		return
	}

	req, errResp := DecodeRequest(body)
	if errResp != nil {
		t.sendError(w, errResp.ID, errResp.Error.Code, errResp.Error.Message, nil)
		return
	}

	// Create request context with optional timeout and HTTP response sender
	reqCtx := ctx
	if t.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, t.config.RequestTimeout)
		defer cancel()
	}

	httpSender := &HTTPResponseSender{writer: w}
	reqCtx = context.WithValue(reqCtx, mcp.ResponseSenderKey, mcp.ResponseSender(httpSender))
	reqCtx = context.WithValue(reqCtx, mcp.SessionIDKey, sessionID)

	t.dispatch.Lock()
	err = server.HandleRequest(reqCtx, req)
	t.dispatch.Unlock()

	if err != nil {
		t.logger.Error("Error handling request", "error", err, "session", sessionID)
		if !httpSender.sent {
			t.sendError(w, req.ID, mcp.ErrorCodeInternalError, fmt.Sprintf("Internal error: %s", err.Error()), nil)
		}
		return
	}

	// If no response was sent (shouldn't happen with proper request handling),
	// send a default error
	if !httpSender.sent {
		t.sendError(w, req.ID, mcp.ErrorCodeInternalError, "Internal error: no response generated", nil)
	}
}

func (t *HTTPTransport) sendError(w http.ResponseWriter, id any, code int, message string, data any) {
	errorResp := mcp.Response{
		JSONRPC: mcp.JSONRPCVersion,
		ID:      id,
		Error: &mcp.ErrorResponse{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(errorResp)
}

func (t *HTTPTransport) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Mcp-Session-Id")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (t *HTTPTransport) securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Security headers
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		// Validate Origin for security (DNS rebinding protection)
		origin := r.Header.Get("Origin")
		if origin != "" {
			isLocal := strings.Contains(r.Host, "localhost") ||
				strings.Contains(r.Host, "127.0.0.1") ||
				strings.Contains(r.Host, "::1")

			if !isLocal {
				t.logger.Warn("Request from external origin", "origin", origin, "host", r.Host)
			}
		}

		next.ServeHTTP(w, r)
	})
}
