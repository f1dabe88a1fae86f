package middleware

import (
	"testing"

	"github.com/emberhttp/ember"
	"github.com/stretchr/testify/assert"
)

func TestCORSSetsAllowOriginWhenOriginPresent(t *testing.T) {
	mw := CORSWithConfig(CORSConfig{AllowOrigins: []string{"https://example.com"}})

	req := &ember.Request{Headers: ember.Header{"Origin": "https://example.com"}}
	res := ember.NewResponse()

	assert.True(t, mw(req, res))
	assert.Equal(t, "https://example.com", res.Headers.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", res.Headers.Get("Vary"))
}

func TestCORSSkipsDisallowedOrigin(t *testing.T) {
	mw := CORSWithConfig(CORSConfig{AllowOrigins: []string{"https://allowed.example"}})

	req := &ember.Request{Headers: ember.Header{"Origin": "https://evil.example"}}
	res := ember.NewResponse()

	assert.True(t, mw(req, res))
	assert.False(t, res.Headers.Contains("Access-Control-Allow-Origin"))
}

func TestCORSNoOriginHeaderIsNoOp(t *testing.T) {
	mw := CORS()
	req := &ember.Request{Headers: ember.Header{}}
	res := ember.NewResponse()

	assert.True(t, mw(req, res))
	assert.False(t, res.Headers.Contains("Access-Control-Allow-Origin"))
}
