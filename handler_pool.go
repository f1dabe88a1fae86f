package ember

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Handler is implemented by pooled, reusable handler instances. It
// collapses the teacher-language's `RequestHandler` -> `BaseHandler` ->
// user-class inheritance chain (spec §9) into a single interface with
// bind/unbind bookkeeping plus the `Handle` business logic.
type Handler interface {
	// Bind attaches the request/response pair for the current
	// acquisition. Idle handlers carry nil request/response, per the
	// `HandlerPool` invariants in spec §3.
	Bind(req *Request, res *Response)
	// Handle runs the handler and returns a value to become the
	// response body, or an error.
	Handle() (interface{}, error)
	// Unbind clears the request/response binding before the handler
	// rejoins its pool's idle queue.
	Unbind()
}

// Initializer is an optional hook a `Handler` may implement; when
// present it runs once right after `Bind`, mirroring the source's
// `initialize()` hook (spec §9).
type Initializer interface {
	Initialize()
}

// BaseHandler supplies the `Bind`/`Unbind` bookkeeping so concrete
// handler types only need to implement `Handle` (and, optionally,
// `Initialize`).
type BaseHandler struct {
	Request  *Request
	Response *Response
}

// Bind implements `Handler`.
func (b *BaseHandler) Bind(req *Request, res *Response) {
	b.Request, b.Response = req, res
}

// Unbind implements `Handler`.
func (b *BaseHandler) Unbind() {
	b.Request, b.Response = nil, nil
}

// HandlerFunc adapts a plain function to the `Handler` interface for
// routes registered with an inline function rather than a handler
// class, per spec §4.8's `SingleInstancePool` variant.
type HandlerFunc func(req *Request, res *Response) (interface{}, error)

// funcHandler wraps a `HandlerFunc` so it satisfies `Handler`.
type funcHandler struct {
	BaseHandler
	fn HandlerFunc
}

// Handle implements `Handler`.
func (h *funcHandler) Handle() (interface{}, error) {
	return h.fn(h.Request, h.Response)
}

// handlerPool is the narrow interface the `RouteEntry` and the
// dispatcher depend on; both `HandlerPool` and `SingleInstancePool`
// satisfy it.
type handlerPool interface {
	acquire(req *Request, res *Response) Handler
	release(h Handler)
}

// SingleInstancePool is the pool variant for route handlers registered
// as inline functions: one shared instance; `acquire` binds
// request/response, `release` unbinds, per spec §4.8.
type SingleInstancePool struct {
	mu sync.Mutex
	h  Handler
}

// NewSingleInstancePool returns a `SingleInstancePool` wrapping fn.
func NewSingleInstancePool(fn HandlerFunc) *SingleInstancePool {
	return &SingleInstancePool{h: &funcHandler{fn: fn}}
}

func (p *SingleInstancePool) acquire(req *Request, res *Response) Handler {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.h.Bind(req, res)
	return p.h
}

func (p *SingleInstancePool) release(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h.Unbind()
}

// PoolConfig carries the per-handler-class sizing knobs from spec §6
// (`handler_pool_default_initial/min/max`).
type PoolConfig struct {
	Initial int
	Min     int
	Max     int
}

// DefaultPoolConfig mirrors spec §6's defaults.
var DefaultPoolConfig = PoolConfig{Initial: 5, Min: 2, Max: 20}

// HandlerPool is a per-handler-class object pool with adaptive min/max
// sizing, per spec §4.8. `acquire` pops an idle handler, binding
// request/response; on an empty pool, if `total < max` a fresh instance
// is constructed, otherwise the caller busy-spins briefly and then
// yields until one is returned (grounded on the `getWorker`/
// `waitForWorker` pattern of a worker-pool style acquire loop).
type HandlerPool struct {
	newHandler func() Handler

	mu   sync.Mutex
	idle []Handler

	total  int32
	active int32
	hits   uint64
	misses uint64

	min, max int32

	acquireCount uint64
	resizeMu     sync.Mutex
	lastResize   time.Time
}

// NewHandlerPool returns a `HandlerPool` pre-warmed with `cfg.Initial`
// handlers built from newHandler.
func NewHandlerPool(newHandler func() Handler, cfg PoolConfig) *HandlerPool {
	if cfg.Max <= 0 {
		cfg = DefaultPoolConfig
	}

	p := &HandlerPool{
		newHandler: newHandler,
		min:        int32(cfg.Min),
		max:        int32(cfg.Max),
		lastResize: time.Now(),
	}

	for i := 0; i < cfg.Initial; i++ {
		p.idle = append(p.idle, newHandler())
		p.total++
	}

	return p
}

// acquire implements spec §4.8's acquisition algorithm.
func (p *HandlerPool) acquire(req *Request, res *Response) Handler {
	spins := 0
	for {
		p.mu.Lock()
		if n := len(p.idle); n > 0 {
			h := p.idle[n-1]
			p.idle = p.idle[:n-1]
			p.mu.Unlock()

			atomic.AddUint64(&p.hits, 1)
			atomic.AddInt32(&p.active, 1)
			p.bindAndInit(h, req, res)
			p.maybeResize()
			return h
		}
		p.mu.Unlock()

		if atomic.LoadInt32(&p.total) < atomic.LoadInt32(&p.max) {
			h := p.newHandler()
			atomic.AddInt32(&p.total, 1)
			atomic.AddInt32(&p.active, 1)
			atomic.AddUint64(&p.misses, 1)
			p.bindAndInit(h, req, res)
			p.maybeResize()
			return h
		}

		atomic.AddUint64(&p.misses, 1)
		spins++
		if spins < 32 {
			runtime.Gosched()
		} else {
			time.Sleep(time.Millisecond)
		}
	}
}

func (p *HandlerPool) bindAndInit(h Handler, req *Request, res *Response) {
	h.Bind(req, res)
	if init, ok := h.(Initializer); ok {
		init.Initialize()
	}
}

// release clears the handler's binding and enqueues it, per spec §4.8.
func (p *HandlerPool) release(h Handler) {
	h.Unbind()
	atomic.AddInt32(&p.active, -1)
	p.mu.Lock()
	p.idle = append(p.idle, h)
	p.mu.Unlock()
}

// maybeResize implements the unified adaptive-sizing policy from spec
// §4.8, merging the acquire-driven and periodic-monitor variants the
// source kept as two overlapping policies (spec §9's "Open Questions").
// It runs at most once per `acquireCount` reaching 100 resets the
// counter; the `resizeMu` ensures at most one resize decision executes
// at a time, per spec §5.
func (p *HandlerPool) maybeResize() {
	if atomic.AddUint64(&p.acquireCount, 1) < 100 {
		return
	}
	atomic.StoreUint64(&p.acquireCount, 0)
	p.resize()
}

// resize applies the sizing rules unconditionally; it is also what the
// `PoolManager`'s periodic monitor calls for every pool it owns.
func (p *HandlerPool) resize() {
	if !p.resizeMu.TryLock() {
		return
	}
	defer p.resizeMu.Unlock()

	total := atomic.LoadInt32(&p.total)
	active := atomic.LoadInt32(&p.active)
	hits := atomic.LoadUint64(&p.hits)
	misses := atomic.LoadUint64(&p.misses)

	var missRatio float64
	if hits+misses > 0 {
		missRatio = float64(misses) / float64(hits+misses)
	}

	max := atomic.LoadInt32(&p.max)
	if missRatio > 0.2 && total < max {
		add := int32(5)
		if total+add > max {
			add = max - total
		}
		p.mu.Lock()
		for i := int32(0); i < add; i++ {
			p.idle = append(p.idle, p.newHandler())
		}
		p.mu.Unlock()
		atomic.AddInt32(&p.total, add)
	}

	p.mu.Lock()
	idleCount := int32(len(p.idle))
	p.mu.Unlock()
	if idleCount > 2*p.min && total > p.min {
		drop := total - p.min
		if drop > idleCount {
			drop = idleCount
		}
		p.mu.Lock()
		if drop > int32(len(p.idle)) {
			drop = int32(len(p.idle))
		}
		p.idle = p.idle[:int32(len(p.idle))-drop]
		p.mu.Unlock()
		atomic.AddInt32(&p.total, -drop)
	}

	if total > 0 {
		ratio := float64(active) / float64(total)
		switch {
		case ratio > 0.8 && max < 1000:
			newMax := max + max/2
			if newMax > 1000 {
				newMax = 1000
			}
			atomic.StoreInt32(&p.max, newMax)
		case ratio < 0.2 && max > p.min:
			newMax := max - max/4
			if newMax < p.min {
				newMax = p.min
			}
			atomic.StoreInt32(&p.max, newMax)
		}
	}

	p.lastResize = time.Now()
}

// PoolManager owns one `HandlerPool` per handler-class identity and
// runs the periodic resize monitor from spec §4.8 for all of them.
// Pools are keyed by an xxhash digest of the caller-provided class key
// (typically a reflect type name or route literal), giving the common
// Get path an O(1) lookup.
type PoolManager struct {
	mu    sync.Mutex
	pools map[uint64]*HandlerPool

	interval time.Duration
	done     chan struct{}
}

// NewPoolManager returns a `PoolManager` whose periodic monitor runs
// every interval (spec §6's `handler_pool_resize_interval_seconds`).
func NewPoolManager(interval time.Duration) *PoolManager {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m := &PoolManager{
		pools:    map[uint64]*HandlerPool{},
		interval: interval,
		done:     make(chan struct{}),
	}
	go m.monitor()
	return m
}

// Get returns the pool registered under classKey, creating it via
// newHandler/cfg on first use.
func (m *PoolManager) Get(classKey string, newHandler func() Handler, cfg PoolConfig) *HandlerPool {
	h := xxhash.Sum64String(classKey)

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[h]; ok {
		return p
	}
	p := NewHandlerPool(newHandler, cfg)
	m.pools[h] = p
	return p
}

// monitor raises or lowers each pool's max every interval, per spec
// §4.8's periodic-monitor policy (unified with the acquire-driven path
// inside `HandlerPool.resize`).
func (m *PoolManager) monitor() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			pools := make([]*HandlerPool, 0, len(m.pools))
			for _, p := range m.pools {
				pools = append(pools, p)
			}
			m.mu.Unlock()

			for _, p := range pools {
				p.resize()
			}
		case <-m.done:
			return
		}
	}
}

// Close stops the periodic monitor.
func (m *PoolManager) Close() {
	close(m.done)
}
