// Package httpapi serves the optional status endpoint set: liveness,
// session status, recently spoken messages, a live SSE feed, and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/you/livetts/internal/core"
)

// Server notifies connected clients of spoken messages and answers status
// queries. It holds no persistent state.
type Server struct {
	httpServer *http.Server
	ring       *Ring
	status     func() any
	metrics    *Metrics
	limiter    *ipRateLimiter
	cors       *corsPolicy
	accessLog  bool

	mu      sync.Mutex
	clients map[chan core.ChatMessage]struct{}
	closed  bool
}

// Options configure the server.
type Options struct {
	Addr            string
	CORSOrigins     []string
	RateLimitRPS    int
	RateLimitBurst  int
	EnableAccessLog bool
	RingSize        int
	Registry        *prometheus.Registry // nil disables /metrics
	Status          func() any           // payload for /status
}

// New builds the server; Start must be called to begin listening.
func New(opts Options) *Server {
	srv := &Server{
		ring:      NewRing(opts.RingSize),
		status:    opts.Status,
		metrics:   newMetrics(opts.Registry),
		limiter:   newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		cors:      newCORSPolicy(opts.CORSOrigins),
		accessLog: opts.EnableAccessLog,
		clients:   make(map[chan core.ChatMessage]struct{}),
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", srv.wrap("/healthz", http.HandlerFunc(srv.handleHealthz)))
	mux.Handle("/status", srv.wrap("/status", http.HandlerFunc(srv.handleStatus)))
	mux.Handle("/count", srv.wrap("/count", http.HandlerFunc(srv.handleCount)))
	mux.Handle("/recent", srv.wrap("/recent", http.HandlerFunc(srv.handleRecent)))
	mux.Handle("/stream", srv.wrap("/stream", http.HandlerFunc(srv.handleStream)))
	if srv.metrics != nil {
		mux.Handle("/metrics", srv.wrap("/metrics", srv.metrics.Handler()))
	}

	srv.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// wrap applies rate limiting, CORS, metrics, and the access log to a route.
func (s *Server) wrap(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(remoteIP(r)) {
			s.metrics.IncRateLimited()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		if handled, _ := s.cors.handlePreflight(w, r); handled {
			return
		}
		if !s.cors.applyHeaders(w, r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		rec := newResponseRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)
		dur := time.Since(start)

		s.metrics.ObserveRequest(route, r.Method, rec.Status(), dur)
		if s.accessLog {
			slog.Info("httpapi: access",
				"route", route,
				"method", r.Method,
				"status", rec.Status(),
				"bytes", rec.bytes,
				"dur", dur,
				"ip", remoteIP(r),
			)
		}
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var payload any
	if s.status != nil {
		payload = s.status()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleCount(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"count": s.ring.Count()})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
			if limit > 1000 {
				limit = 1000
			}
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(s.ring.Recent(limit))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	clientCh := make(chan core.ChatMessage, 256)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.clients[clientCh] = struct{}{}
	s.mu.Unlock()
	s.metrics.IncSSEClients(1)

	defer func() {
		s.mu.Lock()
		delete(s.clients, clientCh)
		s.mu.Unlock()
		s.metrics.IncSSEClients(-1)
	}()

	fmt.Fprintf(w, ":ok\n\n")
	flusher.Flush()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ":ping\n\n")
			flusher.Flush()
		case msg, ok := <-clientCh:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// Publish records a spoken message and fans it out to stream clients. Slow
// clients drop messages rather than stall the publisher.
func (s *Server) Publish(msg core.ChatMessage) {
	s.ring.Add(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for ch := range s.clients {
		select {
		case ch <- msg:
		default:
			s.metrics.IncBroadcastDrops()
		}
	}
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	slog.Info("httpapi: listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	return nil
}

// Shutdown closes client streams and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for ch := range s.clients {
		close(ch)
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}
