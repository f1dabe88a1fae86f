package ember

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultErrorHandlerValidationErrorIsJSON(t *testing.T) {
	res := NewResponse()
	DefaultErrorHandler(newValidationError("MissingParameter", "page"), &Request{}, res)

	assert.Equal(t, 400, res.Status)
	assert.Equal(t, "application/json", res.ContentType)
	assert.NoError(t, res.Finalize(1<<20, 64<<10))
	assert.Contains(t, string(res.BodyBytes()), `"error":`)
	assert.Contains(t, string(res.BodyBytes()), "MissingParameter")
}

func TestDefaultErrorHandlerFrameworkErrorsArePlainText(t *testing.T) {
	cases := []error{
		newParseError("Malformed", "bad request line"),
		&RoutingError{Method: "GET", Path: "/x"},
		&HandlerError{Err: assert.AnError},
	}
	for _, err := range cases {
		res := NewResponse()
		DefaultErrorHandler(err, &Request{}, res)
		assert.Equal(t, "text/plain", res.ContentType)
	}
}

func TestDefaultErrorHandlerStatusCodes(t *testing.T) {
	res := NewResponse()
	DefaultErrorHandler(newParseError("Malformed", "x"), &Request{}, res)
	assert.Equal(t, 400, res.Status)

	res = NewResponse()
	DefaultErrorHandler(&RoutingError{Method: "GET", Path: "/x"}, &Request{}, res)
	assert.Equal(t, 404, res.Status)

	res = NewResponse()
	DefaultErrorHandler(&HandlerError{Err: assert.AnError}, &Request{}, res)
	assert.Equal(t, 500, res.Status)
}
