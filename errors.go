package ember

import "fmt"

// ParseError is returned when the raw bytes of an HTTP request cannot be
// turned into a `Request`.
type ParseError struct {
	Reason string // Malformed, UnsupportedMethod, MalformedMultipart
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ember: parse error: %s", e.Reason)
	}
	return fmt.Sprintf("ember: parse error: %s: %s", e.Reason, e.Detail)
}

// newParseError returns a new `ParseError` with the reason and the detail.
func newParseError(reason, detail string) *ParseError {
	return &ParseError{Reason: reason, Detail: detail}
}

// ValidationError is returned by the `ExpectedInputs` machinery when a
// declared input is missing or cannot be converted to its expected type.
type ValidationError struct {
	Reason string // MissingParameter, MissingField, MissingFile, TypeMismatch
	Name   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ember: validation error: %s: %s", e.Reason, e.Name)
}

// newValidationError returns a new `ValidationError` with the reason and the
// input name.
func newValidationError(reason, name string) *ValidationError {
	return &ValidationError{Reason: reason, Name: name}
}

// RoutingError is returned when the `RouteRegistry` cannot resolve a request.
type RoutingError struct {
	Method string
	Path   string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("ember: unmatched route: %s %s", e.Method, e.Path)
}

// LifecycleError represents a programmer error in the use of the framework's
// mutable value types (a finalized `Response`, a duplicate route).
type LifecycleError struct {
	Reason string // AlreadyFinalized, DuplicateRoute, UnsupportedBody
	Detail string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("ember: lifecycle error: %s: %s", e.Reason, e.Detail)
}

// newLifecycleError returns a new `LifecycleError` with the reason and the
// detail.
func newLifecycleError(reason, detail string) *LifecycleError {
	return &LifecycleError{Reason: reason, Detail: detail}
}

// TransportError represents a failure of the underlying connection. It is
// always terminal for the connection it occurred on.
type TransportError struct {
	Reason string // ReadFailed, WriteFailed, ConnectionClosed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ember: transport error: %s", e.Reason)
	}
	return fmt.Sprintf("ember: transport error: %s: %v", e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// newTransportError returns a new `TransportError` with the reason and the
// underlying cause.
func newTransportError(reason string, err error) *TransportError {
	return &TransportError{Reason: reason, Err: err}
}

// WebSocketError represents a violation of the RFC 6455 frame protocol. Its
// `Code` is the close-frame status code that must be sent to the peer.
type WebSocketError struct {
	Reason string // ProtocolError, MessageTooBig, UnsupportedData
	Code   int
}

func (e *WebSocketError) Error() string {
	return fmt.Sprintf("ember: websocket error: %s (code %d)", e.Reason, e.Code)
}

// newWebSocketError returns a new `WebSocketError` with the reason and the
// RFC 6455 close code.
func newWebSocketError(reason string, code int) *WebSocketError {
	return &WebSocketError{Reason: reason, Code: code}
}

// HandlerError wraps an arbitrary error returned or panicked by application
// handler code so the dispatcher can tell it apart from its own errors.
type HandlerError struct {
	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("ember: handler error: %v", e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
