package ember

import (
	"context"
	"net"
	"reflect"
	"sync"
	"time"
)

// DefaultNotFoundHandler is invoked when `RouteRegistry.Resolve` finds
// no match, per spec §4.10 step 3.
func DefaultNotFoundHandler(req *Request, res *Response) (interface{}, error) {
	res.SetStatus(404)
	return "", &RoutingError{Method: req.Method, Path: req.Path}
}

// Server is the top-level ember instance: route registry, middleware
// chain, handler-pool manager, buffer pool and logger, wired together
// the way the teacher's `Air` wires its router/binder/logger, adapted
// to the spec's hand-rolled connection and dispatch pipeline.
type Server struct {
	Config *Config

	routes     *RouteRegistry
	middleware *MiddlewareChain
	pools      *PoolManager
	buffers    *BufferPool
	values     *ValuePool
	wsUpgrader *WebSocketUpgrader
	Logger     *Logger

	NotFoundHandler HandlerFunc
	ErrorHandler    func(err error, req *Request, res *Response)

	mu           sync.Mutex
	shutdownJobs []func()
	listener     *listener
}

// NewServer returns a `Server` configured by cfg (or `DefaultConfig` if
// cfg is nil).
func NewServer(cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		Config:          cfg,
		routes:          NewRouteRegistry(),
		middleware:      NewMiddlewareChain(),
		pools:           NewPoolManager(time.Duration(cfg.HandlerPoolResizeIntervalSeconds) * time.Second),
		buffers:         NewBufferPool(cfg.RequestBufferSize, cfg.RequestBufferPoolSize),
		values:          NewValuePool(),
		wsUpgrader:      NewWebSocketUpgrader(cfg.WebSocketBufferSize),
		NotFoundHandler: DefaultNotFoundHandler,
		ErrorHandler:    DefaultErrorHandler,
	}
	s.Logger = NewLogger(cfg)

	if cfg.CORSEnabled {
		s.EnableCORS()
	}

	return s
}

// DefaultErrorHandler converts an error into a status code and body,
// per spec §4.12's failure table. Validation failures get a JSON
// `{"error": "<message>"}` body per spec §6/§7; every other error kind
// is framework-level and gets a plain-text body.
func DefaultErrorHandler(err error, req *Request, res *Response) {
	if _, ok := err.(*ValidationError); ok {
		res.SetStatus(400)
		res.SetContentType("application/json")
		res.Write(map[string]string{"error": err.Error()})
		return
	}

	status := 500
	switch err.(type) {
	case *ParseError:
		status = 400
	case *RoutingError:
		status = 404
	case *HandlerError:
		status = 500
	}
	res.SetStatus(status)
	res.SetContentType("text/plain")
	res.Write(err.Error())
}

// classKeyOf derives a stable pool-registry key for a handler class
// from the reflect type of one handler built by newHandler.
func classKeyOf(newHandler func() Handler) string {
	h := newHandler()
	return reflect.TypeOf(h).String()
}

// RegisterRoute registers a route whose handler is constructed fresh
// per the `HandlerPool` acquisition algorithm, per spec §4.8.
func (s *Server) RegisterRoute(method, path string, newHandler func() Handler, cfg PoolConfig) error {
	if cfg.Max <= 0 {
		cfg = PoolConfig{
			Initial: s.Config.HandlerPoolDefaultInitial,
			Min:     s.Config.HandlerPoolDefaultMin,
			Max:     s.Config.HandlerPoolDefaultMax,
		}
	}
	pool := s.pools.Get(method+":"+path+":"+classKeyOf(newHandler), newHandler, cfg)
	_, err := s.routes.Register(method, path, pool, HandlerStandard)
	return err
}

// RegisterFunc registers a route handled by a single shared inline
// function instance, per spec §4.8's `SingleInstancePool` variant.
func (s *Server) RegisterFunc(method, path string, fn HandlerFunc) error {
	pool := NewSingleInstancePool(fn)
	_, err := s.routes.Register(method, path, pool, HandlerSimple)
	return err
}

// WebSocket registers a route that hands matching requests off to the
// WebSocket upgrade path instead of the ordinary dispatcher pipeline,
// per spec §4.10 step 2.
func (s *Server) WebSocket(path string, onConnect func(*Session)) error {
	_, err := s.routes.RegisterWebSocket(path, onConnect)
	return err
}

// Redirect registers a route that always responds 302 to target, per
// the supplemented redirect-route feature in SPEC_FULL.md §3.
func (s *Server) Redirect(method, path, target string) error {
	fn := func(req *Request, res *Response) (interface{}, error) {
		res.SetStatus(302)
		res.SetHeader("Location", target)
		return "", nil
	}
	pool := NewSingleInstancePool(fn)
	_, err := s.routes.Register(method, path, pool, HandlerRedirect)
	return err
}

// UseMiddleware appends mw to the global middleware chain.
func (s *Server) UseMiddleware(mw Middleware) { s.middleware.Use(mw) }

// UsePathMiddleware appends mw to the chain scoped to prefix.
func (s *Server) UsePathMiddleware(prefix string, mw Middleware) {
	s.middleware.UsePath(prefix, mw)
}

// EnableCORS registers the `OPTIONS /*` catch-all route from spec
// §4.9 ("CORS is implemented as a middleware + an OPTIONS /* catch-all
// route emitting 204 with the configured headers"). The CORS
// middleware itself is registered separately via `UseMiddleware`
// (e.g. `middleware.CORSWithConfig`).
func (s *Server) EnableCORS() {
	fn := func(req *Request, res *Response) (interface{}, error) {
		res.SetStatus(204)
		if len(s.Config.CORSAllowOrigins) > 0 {
			res.SetHeader("Access-Control-Allow-Origin", s.Config.CORSAllowOrigins[0])
		}
		res.SetHeader("Access-Control-Allow-Methods", joinComma(s.Config.CORSAllowMethods))
		res.SetHeader("Access-Control-Allow-Headers", joinComma(s.Config.CORSAllowHeaders))
		return "", nil
	}
	pool := NewSingleInstancePool(fn)
	s.routes.Register("OPTIONS", "/*", pool, HandlerInternal)
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// AddShutdownJob registers a function that `Shutdown` runs once,
// mirroring the teacher's `Air.AddShutdownJob`.
func (s *Server) AddShutdownJob(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownJobs = append(s.shutdownJobs, f)
}

// Serve starts accepting connections on cfg.Address and runs the
// `ConnectionLoop` for each, per spec §4/§5. It blocks until the
// listener is closed.
func (s *Server) Serve() error {
	if err := s.Config.LoadConfigFile(); err != nil {
		return err
	}

	l, err := newListener(s.Config.Address)
	if err != nil {
		return err
	}
	s.listener = l

	loop := &ConnectionLoop{server: s, listener: l}
	return loop.Run()
}

// Close closes the listener without waiting for active connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Shutdown closes the listener, then runs every registered shutdown
// job, then stops the pool manager's monitor, per spec's supplemented
// graceful-shutdown feature (grounded on `Air.Shutdown`).
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Close()

	done := make(chan struct{})
	go func() {
		s.mu.Lock()
		jobs := append([]func(){}, s.shutdownJobs...)
		s.mu.Unlock()

		var wg sync.WaitGroup
		for _, job := range jobs {
			if job == nil {
				continue
			}
			wg.Add(1)
			go func(j func()) { defer wg.Done(); j() }(job)
		}
		wg.Wait()
		s.pools.Close()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	return err
}

var _ net.Listener = (*listener)(nil)
