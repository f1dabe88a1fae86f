// Package middleware holds the built-in `ember.Middleware` values,
// mirroring the teacher's `gases` subpackage layout.
package middleware

import (
	"strings"

	"github.com/emberhttp/ember"
)

// CORSConfig configures the CORS middleware, adapted from the
// teacher's `gases.CORSConfig`.
type CORSConfig struct {
	AllowOrigins     []string
	AllowHeaders     []string
	AllowCredentials bool
	ExposeHeaders    []string
}

// DefaultCORSConfig allows any origin and no headers beyond the usual
// defaults.
var DefaultCORSConfig = CORSConfig{AllowOrigins: []string{"*"}}

// CORS returns a middleware applying `DefaultCORSConfig`.
func CORS() ember.Middleware { return CORSWithConfig(DefaultCORSConfig) }

// CORSWithConfig returns a middleware that sets the
// Access-Control-Allow-* response headers per config, per spec §4.9
// ("CORS is implemented as a middleware + an OPTIONS /* catch-all
// route"). The catch-all itself is registered separately by
// `ember.Server.EnableCORS`.
func CORSWithConfig(config CORSConfig) ember.Middleware {
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = DefaultCORSConfig.AllowOrigins
	}
	exposeHeaders := strings.Join(config.ExposeHeaders, ",")
	allowHeaders := strings.Join(config.AllowHeaders, ",")

	return func(req *ember.Request, res *ember.Response) bool {
		origin := req.Headers.Get("Origin")
		originSet := req.Headers.Contains("Origin")

		res.SetHeader("Vary", "Origin")
		if !originSet {
			return true
		}

		allowed := ""
		for _, o := range config.AllowOrigins {
			if o == "*" || o == origin {
				allowed = o
				break
			}
		}
		if allowed == "" {
			return true
		}

		res.SetHeader("Access-Control-Allow-Origin", allowed)
		if config.AllowCredentials {
			res.SetHeader("Access-Control-Allow-Credentials", "true")
		}
		if exposeHeaders != "" {
			res.SetHeader("Access-Control-Expose-Headers", exposeHeaders)
		}
		if allowHeaders != "" {
			res.SetHeader("Access-Control-Allow-Headers", allowHeaders)
		}
		return true
	}
}
