package ember

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config carries every tunable of an ember `Server`, per spec §6. It is
// loaded directly as Go values, or cascaded from a `.json`/`.toml`/
// `.yaml`/`.yml` file via `LoadConfigFile`, mirroring the teacher's
// `Air.Serve` cascade.
type Config struct {
	AppName string `mapstructure:"app_name"`

	Address string `mapstructure:"address"`

	// RequestBufferPoolSize bounds the free list of the request-side
	// `BufferPool`.
	RequestBufferPoolSize int `mapstructure:"request_buffer_pool_size"`
	// RequestBufferSize is the fixed capacity of each pooled request
	// buffer.
	RequestBufferSize int `mapstructure:"request_buffer_size"`
	// WebSocketBufferSize bounds a single WebSocket frame's payload.
	WebSocketBufferSize int `mapstructure:"websocket_buffer_size"`

	// HandlerPoolDefaultInitial/Min/Max size every `HandlerPool` a
	// handler class doesn't override explicitly.
	HandlerPoolDefaultInitial int `mapstructure:"handler_pool_default_initial"`
	HandlerPoolDefaultMin     int `mapstructure:"handler_pool_default_min"`
	HandlerPoolDefaultMax     int `mapstructure:"handler_pool_default_max"`
	// HandlerPoolResizeIntervalSeconds is the `PoolManager` periodic
	// monitor's tick interval.
	HandlerPoolResizeIntervalSeconds int `mapstructure:"handler_pool_resize_interval_seconds"`

	// ChunkedThresholdBytes and MaxChunkBytes drive `Response.Finalize`'s
	// chunked-encoding decision.
	ChunkedThresholdBytes int `mapstructure:"chunked_threshold_bytes"`
	MaxChunkBytes         int `mapstructure:"max_chunk_bytes"`

	// LoggerEnabled/LoggerFormat configure the ambient `Logger`.
	LoggerEnabled bool   `mapstructure:"logger_enabled"`
	LoggerFormat  string `mapstructure:"logger_format"`

	// CORSEnabled registers the `OPTIONS /*` catch-all via
	// `Server.EnableCORS`. It does not install the CORS middleware,
	// which is added separately with `UseMiddleware`.
	CORSEnabled          bool     `mapstructure:"cors_enabled"`
	CORSAllowOrigins     []string `mapstructure:"cors_allow_origins"`
	CORSAllowMethods     []string `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders     []string `mapstructure:"cors_allow_headers"`
	CORSAllowCredentials bool     `mapstructure:"cors_allow_credentials"`

	// ConfigFile, when set, is read and cascaded over the in-code
	// defaults by `LoadConfigFile`.
	ConfigFile string `mapstructure:"-"`
}

// DefaultConfig mirrors spec §6's defaults.
func DefaultConfig() *Config {
	return &Config{
		AppName:                          "ember",
		Address:                          ":8080",
		RequestBufferPoolSize:            256,
		RequestBufferSize:                262144,
		WebSocketBufferSize:              65536,
		HandlerPoolDefaultInitial:        5,
		HandlerPoolDefaultMin:            2,
		HandlerPoolDefaultMax:            20,
		HandlerPoolResizeIntervalSeconds: 30,
		ChunkedThresholdBytes:            1 << 20,
		MaxChunkBytes:                    64 << 10,
		LoggerEnabled:                    true,
		LoggerFormat:                     `{"app_name":"{{.app_name}}","time":"{{.time_rfc3339}}","level":"{{.level}}","file":"{{.short_file}}","line":"{{.line}}"}`,
		CORSAllowMethods: []string{
			"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		CORSAllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}
}

// LoadConfigFile applies the file at c.ConfigFile over c, cascading
// `.json` → `encoding/json`, `.toml` → BurntSushi/toml, `.yaml`/`.yml` →
// yaml.v3, then decoding the parsed map into c via mapstructure — the
// same cascade as the teacher's `Air.Serve`.
func (c *Config) LoadConfigFile() error {
	if c.ConfigFile == "" {
		return nil
	}

	b, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		return err
	}

	m := map[string]interface{}{}
	switch ext := strings.ToLower(filepath.Ext(c.ConfigFile)); ext {
	case ".json":
		err = json.Unmarshal(b, &m)
	case ".toml":
		err = toml.Unmarshal(b, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &m)
	default:
		err = fmt.Errorf("ember: unsupported configuration file extension: %s", ext)
	}
	if err != nil {
		return err
	}

	return mapstructure.Decode(m, c)
}
