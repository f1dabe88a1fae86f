package ember

import "strings"

// Middleware is a single link in a `MiddlewareChain`. It returns false
// to short-circuit the chain, meaning the current response (whatever
// state it is in) is sent as-is, per spec §4.9.
type Middleware func(req *Request, res *Response) bool

// pathChain pairs a path-prefix filter with its ordered middleware.
type pathChain struct {
	prefix string
	chain  []Middleware
}

// MiddlewareChain holds a global ordered list and a set of
// per-path-prefix ordered lists, per spec §4.9.
type MiddlewareChain struct {
	global []Middleware
	byPath []pathChain
}

// NewMiddlewareChain returns an empty `MiddlewareChain`.
func NewMiddlewareChain() *MiddlewareChain {
	return &MiddlewareChain{}
}

// Use appends to the global chain, run first on every request.
func (m *MiddlewareChain) Use(mw Middleware) {
	m.global = append(m.global, mw)
}

// UsePath appends mw to the chain registered for prefix, run after the
// global chain for any request path starting with prefix.
func (m *MiddlewareChain) UsePath(prefix string, mw Middleware) {
	for i := range m.byPath {
		if m.byPath[i].prefix == prefix {
			m.byPath[i].chain = append(m.byPath[i].chain, mw)
			return
		}
	}
	m.byPath = append(m.byPath, pathChain{prefix: prefix, chain: []Middleware{mw}})
}

// Run executes the global chain, then every per-prefix chain whose
// prefix matches req.Path, in registration order. It returns false as
// soon as any middleware does, stopping immediately.
func (m *MiddlewareChain) Run(req *Request, res *Response) bool {
	for _, mw := range m.global {
		if !mw(req, res) {
			return false
		}
	}
	for _, pc := range m.byPath {
		if !strings.HasPrefix(req.Path, pc.prefix) {
			continue
		}
		for _, mw := range pc.chain {
			if !mw(req, res) {
				return false
			}
		}
	}
	return true
}
