package ember

import "sync"

// ValuePool recycles the per-request `Request`/`Response` values, so a
// `ConnectionLoop` doesn't allocate a fresh pair for every request.
// Adapted from the teacher's `Pool`, trimmed to the two value types
// this framework's `Request`/`Response` model actually needs (the
// teacher's pool additionally covered its `Context`/header/URI/cookie
// types, which this framework doesn't have as distinct types — see
// DESIGN.md).
type ValuePool struct {
	requests  sync.Pool
	responses sync.Pool
}

// NewValuePool returns an empty `ValuePool`.
func NewValuePool() *ValuePool {
	p := &ValuePool{}
	p.requests.New = func() interface{} { return &Request{} }
	p.responses.New = func() interface{} { return NewResponse() }
	return p
}

// Request returns a zeroed `Request` from the pool.
func (p *ValuePool) Request() *Request {
	return p.requests.Get().(*Request)
}

// Response returns a `Response` at its default values from the pool.
func (p *ValuePool) Response() *Response {
	return p.responses.Get().(*Response)
}

// PutRequest clears req and returns it to the pool.
func (p *ValuePool) PutRequest(req *Request) {
	req.reset()
	p.requests.Put(req)
}

// PutResponse clears res and returns it to the pool.
func (p *ValuePool) PutResponse(res *Response) {
	res.reset()
	p.responses.Put(res)
}
