package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type echoHandler struct {
	BaseHandler
}

func (h *echoHandler) Handle() (interface{}, error) {
	return h.Request.QueryValue("msg"), nil
}

func TestHandlerPoolAcquireGrowsUpToMax(t *testing.T) {
	pool := NewHandlerPool(func() Handler { return &echoHandler{} }, PoolConfig{Initial: 1, Min: 1, Max: 3})

	req, _ := parseRequest([]byte("GET /echo?msg=hi HTTP/1.1\r\nHost: x\r\n\r\n"), "")
	res := NewResponse()

	h1 := pool.acquire(req, res)
	h2 := pool.acquire(req, res)
	h3 := pool.acquire(req, res)

	body, err := h1.Handle()
	assert.NoError(t, err)
	assert.Equal(t, "hi", body)

	pool.release(h1)
	pool.release(h2)
	pool.release(h3)
}

func TestSingleInstancePoolBindsAndUnbinds(t *testing.T) {
	pool := NewSingleInstancePool(func(req *Request, res *Response) (interface{}, error) {
		return req.Path, nil
	})

	req, _ := parseRequest([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\n"), "")
	res := NewResponse()

	h := pool.acquire(req, res)
	body, err := h.Handle()
	assert.NoError(t, err)
	assert.Equal(t, "/a", body)
	pool.release(h)
}

func TestPoolManagerReturnsSamePoolForSameKey(t *testing.T) {
	mgr := NewPoolManager(0)
	defer mgr.Close()

	p1 := mgr.Get("route-key", func() Handler { return &echoHandler{} }, PoolConfig{Initial: 1, Min: 1, Max: 2})
	p2 := mgr.Get("route-key", func() Handler { return &echoHandler{} }, PoolConfig{Initial: 1, Min: 1, Max: 2})
	assert.Same(t, p1, p2)
}
