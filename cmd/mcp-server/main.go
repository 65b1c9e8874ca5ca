// cmd/mcp-server/main.go: Standalone HTTP MCP server for gonewton
//
// Exposes the parser, Jacobian builder and Newton-Raphson solver as an HTTP
// endpoint for agent frameworks.
//
// Usage:
//
//	go run ./cmd/mcp-server -port 8080
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/njchilds90/gonewton"
	"github.com/njchilds90/gonewton/internal/config"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	port := flag.Int("port", cfg.Server.Port, "Port to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With(slog.String("component", "mcp-server"))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("gonewton MCP server listening", slog.String("addr", addr))

	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newMux(cfg config.Config, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// POST /tool: handle a tool call
	mux.HandleFunc("/tool", func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		log := logger.With(slog.String("request_id", reqID))
		w.Header().Set("X-Request-Id", reqID)
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic in /tool", slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req gonewton.ToolRequest
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		// Ensure there's no trailing junk.
		if dec.More() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: trailing data"})
			return
		}
		if err := applySolverDefaults(&req, cfg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		start := time.Now()
		resp := gonewton.HandleToolCall(req)
		log.Info("tool call",
			slog.String("tool", req.Tool),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("ok", resp.Error == ""),
		)
		writeJSON(w, http.StatusOK, resp)
	})

	// GET /schema: return tool schema for agent registration
	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, gonewton.MCPToolSpec())
	})

	// GET /health: liveness check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	return mux
}

// applySolverDefaults fills newton_solve parameters the caller left out from
// the configured defaults and rejects iteration budgets above the server cap.
func applySolverDefaults(req *gonewton.ToolRequest, cfg config.Config) error {
	if req.Tool != "newton_solve" {
		return nil
	}
	if req.Params == nil {
		req.Params = map[string]interface{}{}
	}
	if _, ok := req.Params["tolerance"]; !ok {
		req.Params["tolerance"] = cfg.Solver.Tolerance
	}
	limit := cfg.Server.MaxIterations
	v, ok := req.Params["max_iterations"]
	if !ok {
		req.Params["max_iterations"] = float64(min(cfg.Solver.MaxIterations, limit))
		return nil
	}
	if n, isNum := v.(float64); isNum && n > float64(limit) {
		return fmt.Errorf("max_iterations %g exceeds the server limit of %d", n, limit)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
