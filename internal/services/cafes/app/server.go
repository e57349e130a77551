// Package server wires the cafes runtime: storage, HTTP routes, metrics and
// the optional gRPC health listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/cafes/internal/platform/grpc"
	"github.com/louisbranch/cafes/internal/platform/telemetry/metrics"
	"github.com/louisbranch/cafes/internal/platform/timeouts"
	"github.com/louisbranch/cafes/internal/services/cafes/api/httpapi"
	"github.com/louisbranch/cafes/internal/services/cafes/routepath"
	"github.com/louisbranch/cafes/internal/services/cafes/service"
	"github.com/louisbranch/cafes/internal/services/cafes/storage/sqlite"
	"github.com/louisbranch/cafes/internal/services/cafes/web"
	"github.com/munnerz/goautoneg"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

const healthServiceName = "cafes.Cafes"

// Config describes how the cafes server listens and where it stores data.
type Config struct {
	HTTPAddr   string
	DBPath     string
	APIKey     string
	HealthAddr string
}

// Server hosts the cafes HTTP surface and its storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store

	healthListener net.Listener
	grpcServer     *grpc.Server
	health         *health.Server
}

// New opens the store and binds the listeners described by cfg.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		return nil, errors.New("http address is required")
	}
	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}

	store, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cafes sqlite store: %w", err)
	}

	m := metrics.New()
	svc := service.New(store, service.WithAPIKey(cfg.APIKey), service.WithRecorder(m))
	handler, err := NewHandler(svc, m)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	s := &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store: store,
	}

	if healthAddr := strings.TrimSpace(cfg.HealthAddr); healthAddr != "" {
		healthListener, err := net.Listen("tcp", healthAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("listen on %s: %w", healthAddr, err)
		}
		s.healthListener = healthListener
		s.grpcServer, s.health = platformgrpc.NewHealthServer(healthServiceName)
	}

	return s, nil
}

// NewHandler builds the full HTTP surface for svc, instrumented with m.
func NewHandler(svc *service.Service, m *metrics.Metrics) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("cafes service is required")
	}
	if m == nil {
		m = metrics.New()
	}
	pages, err := web.New(svc)
	if err != nil {
		return nil, fmt.Errorf("build pages: %w", err)
	}
	api := httpapi.New(svc)

	mux := http.NewServeMux()
	api.Register(mux)
	pages.Register(mux)
	mux.Handle(http.MethodPost+" "+routepath.Add, negotiate(pages.HandleAddSubmit, api.HandleAdd))
	mux.Handle(http.MethodGet+" "+routepath.Random, negotiate(pages.HandleRandom, api.HandleRandom))
	mux.HandleFunc(http.MethodGet+" "+routepath.Healthz, handleHealthz)
	mux.Handle(http.MethodGet+" "+routepath.Metrics, m.Handler())

	return m.InstrumentHandler(accessLog(mux)), nil
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HealthAddr returns the gRPC health listener address, or empty when disabled.
func (s *Server) HealthAddr() string {
	if s == nil || s.healthListener == nil {
		return ""
	}
	return s.healthListener.Addr().String()
}

// Run creates and serves a cafes server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs the HTTP server (and the health listener, when configured)
// until ctx is canceled or a listener fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	serveErr := make(chan error, 2)
	log.Printf("cafes server listening at %v", s.listener.Addr())
	go func() {
		err := s.httpServer.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			err = fmt.Errorf("serve http: %w", err)
		}
		serveErr <- err
	}()
	if s.grpcServer != nil {
		log.Printf("cafes health listening at %v", s.healthListener.Addr())
		go func() {
			err := s.grpcServer.Serve(s.healthListener)
			if errors.Is(err, grpc.ErrServerStopped) {
				err = nil
			}
			if err != nil {
				err = fmt.Errorf("serve gRPC health: %w", err)
			}
			serveErr <- err
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	if shutdownErr := s.shutdown(); err == nil {
		err = shutdownErr
	}
	return err
}

func (s *Server) shutdown() error {
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.healthListener != nil {
		_ = s.healthListener.Close()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close cafes store: %v", err)
		}
	}
}

// negotiate routes a shared path to the page handler when the client
// prefers HTML, and to the JSON handler otherwise.
func negotiate(page, api http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantsHTML(r) {
			page(w, r)
			return
		}
		api(w, r)
	})
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.TrimSpace(accept) == "" {
		return false
	}
	return goautoneg.Negotiate(accept, []string{"application/json", "text/html"}) == "text/html"
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &loggingRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}

type loggingRecorder struct {
	http.ResponseWriter
	status int
}

func (r *loggingRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *loggingRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
