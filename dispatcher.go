package ember

import (
	"fmt"
	"net"
	"runtime"
)

// InputDeclarer is implemented by handlers that declare their expected
// inputs, so the dispatcher can pre-touch them before `Handle` runs,
// per spec §4.7 and §4.10 step 7.
type InputDeclarer interface {
	Inputs() *ExpectedInputs
}

// Dispatch runs the `HttpRequestDispatcher` algorithm from spec §4.10
// against a single fully-buffered request read off conn. When the
// request is a WebSocket upgrade to a WebSocket route, it returns only
// after the session has run to completion.
func (s *Server) Dispatch(conn net.Conn, raw []byte, clientAddr string) {
	req := s.values.Request()
	if err := parseRequestInto(req, raw, clientAddr); err != nil {
		s.values.PutRequest(req)
		res := s.values.Response()
		s.ErrorHandler(err, &Request{}, res)
		s.writeResponse(conn, res)
		s.values.PutResponse(res)
		return
	}

	match := s.routes.Resolve(req.Method, req.Path)

	if IsWebSocketUpgrade(req.Headers) && match != nil && match.Entry.HandlerType == HandlerWebSocket {
		req.RouteParams = match.Params
		s.dispatchWebSocket(conn, req, match.Entry)
		s.values.PutRequest(req)
		return
	}

	res := s.values.Response()
	defer s.values.PutResponse(res)
	defer s.values.PutRequest(req)

	if match != nil {
		req.RouteParams = match.Params
	}

	if !s.middleware.Run(req, res) {
		s.writeResponse(conn, res)
		return
	}

	if match == nil {
		_, nfErr := s.NotFoundHandler(req, res)
		if nfErr == nil {
			nfErr = &RoutingError{Method: req.Method, Path: req.Path}
		}
		s.ErrorHandler(nfErr, req, res)
		s.writeResponse(conn, res)
		return
	}

	handler := match.Entry.Pool.acquire(req, res)
	defer match.Entry.Pool.release(handler)

	if declarer, ok := handler.(InputDeclarer); ok {
		if inputs := declarer.Inputs(); inputs != nil {
			inputs.bind(req)
			if verr := inputs.Touch(); verr != nil {
				s.ErrorHandler(verr, req, res)
				s.writeResponse(conn, res)
				return
			}
		}
	}

	body, hErr := s.recoverInvoke(handler)
	s.finishResponse(res, body, hErr, req)
	s.writeResponse(conn, res)
}

// recoverInvoke calls handler.Handle, converting any panic into a
// `HandlerError` so the connection's task never dies from application
// code, per spec §4.12.
func (s *Server) recoverInvoke(handler Handler) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			var cause error
			switch v := r.(type) {
			case error:
				cause = v
			default:
				cause = fmt.Errorf("%v", v)
			}
			stack := make([]byte, 4<<10)
			n := runtime.Stack(stack, false)
			s.Logger.Errorf("[PANIC RECOVER] %s %s", cause, stack[:n])
			err = &HandlerError{Err: cause}
		}
	}()
	return handler.Handle()
}

// finishResponse converts a handler's return value to a body and, on
// error, routes it to the error handler, per spec §4.10 step 8.
func (s *Server) finishResponse(res *Response, body interface{}, err error, req *Request) {
	if err != nil {
		if _, ok := err.(*HandlerError); !ok {
			err = &HandlerError{Err: err}
		}
		s.ErrorHandler(err, req, res)
		return
	}

	switch v := body.(type) {
	case nil:
		res.Write("")
	case string, []byte:
		res.Write(v)
	case fmt.Stringer:
		res.Write(v.String())
	default:
		res.Write(fmt.Sprint(v))
	}
}

// writeResponse finalizes and serializes res, then writes it to conn
// with a write-remainder retry loop, per spec §4.10 step 9.
func (s *Server) writeResponse(conn net.Conn, res *Response) {
	if err := res.Finalize(s.Config.ChunkedThresholdBytes, s.Config.MaxChunkBytes); err != nil {
		res = NewResponse()
		res.Status = 500
		res.Write("internal server error")
		res.Finalize(s.Config.ChunkedThresholdBytes, s.Config.MaxChunkBytes)
	}

	out := res.Serialize()
	for len(out) > 0 {
		n, err := conn.Write(out)
		if err != nil {
			s.Logger.Errorf("write failed: %v", err)
			return
		}
		out = out[n:]
	}
}

// dispatchWebSocket performs the handshake and runs the session's
// frame-read loop to completion, per spec §4.11.
func (s *Server) dispatchWebSocket(conn net.Conn, req *Request, entry *RouteEntry) {
	session, err := s.wsUpgrader.Upgrade(req.Headers, conn)
	if err != nil {
		s.Logger.Errorf("websocket handshake failed: %v", err)
		conn.Close()
		return
	}
	session.Path = req.Path
	session.Params = req.RouteParams

	if entry.WSHandler != nil {
		entry.WSHandler(session)
	}
	session.Serve()
}
