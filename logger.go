package ember

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strconv"
	"sync"
	"text/template"
	"time"
)

// Logger is the ambient structured logger, adapted from the teacher's
// hand-rolled `Logger`: a compiled text/template log-line format, a
// `sync.Pool` of scratch buffers, and a mutex serializing writes so
// concurrent connections never interleave partial lines.
type Logger struct {
	config *Config

	template   *template.Template
	bufferPool *sync.Pool
	mutex      sync.Mutex
	levels     []string

	Output io.Writer
}

// loggerLevel is the level of the `Logger`.
type loggerLevel uint8

const (
	lvlDebug loggerLevel = iota
	lvlInfo
	lvlWarn
	lvlError
	lvlFatal
)

// NewLogger returns a `Logger` driven by cfg's `LoggerEnabled`/
// `LoggerFormat`.
func NewLogger(cfg *Config) *Logger {
	return &Logger{
		config: cfg,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 256))
			},
		},
		levels: []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"},
		Output: os.Stdout,
	}
}

// Print prints i with no level or template applied.
func (l *Logger) Print(i ...interface{}) { fmt.Fprintln(l.Output, i...) }

// Printf prints a formatted line with no level or template applied.
func (l *Logger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(l.Output, format+"\n", args...)
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(i ...interface{}) { l.log(lvlDebug, "", i...) }

// Debugf logs a formatted line at DEBUG level.
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(lvlDebug, format, args...) }

// Info logs at INFO level.
func (l *Logger) Info(i ...interface{}) { l.log(lvlInfo, "", i...) }

// Infof logs a formatted line at INFO level.
func (l *Logger) Infof(format string, args ...interface{}) { l.log(lvlInfo, format, args...) }

// Warn logs at WARN level.
func (l *Logger) Warn(i ...interface{}) { l.log(lvlWarn, "", i...) }

// Warnf logs a formatted line at WARN level.
func (l *Logger) Warnf(format string, args ...interface{}) { l.log(lvlWarn, format, args...) }

// Error logs at ERROR level.
func (l *Logger) Error(i ...interface{}) { l.log(lvlError, "", i...) }

// Errorf logs a formatted line at ERROR level.
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(lvlError, format, args...) }

// Fatal logs at FATAL level and exits the process.
func (l *Logger) Fatal(i ...interface{}) {
	l.log(lvlFatal, "", i...)
	os.Exit(1)
}

// log renders lvl's line through the compiled template and writes it.
func (l *Logger) log(lvl loggerLevel, format string, args ...interface{}) {
	if l.config == nil || !l.config.LoggerEnabled {
		return
	}
	if l.template == nil {
		format := l.config.LoggerFormat
		if format == "" {
			format = DefaultConfig().LoggerFormat
		}
		l.template = template.Must(template.New("logger").Parse(format))
	}

	message := ""
	switch {
	case format == "":
		message = fmt.Sprint(args...)
	default:
		message = fmt.Sprintf(format, args...)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	buf := l.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		l.bufferPool.Put(buf)
	}()

	_, file, line, _ := runtime.Caller(2)
	data := map[string]interface{}{
		"app_name":     l.config.AppName,
		"time_rfc3339": time.Now().Format(time.RFC3339),
		"level":        l.levels[lvl],
		"short_file":   path.Base(file),
		"long_file":    file,
		"line":         strconv.Itoa(line),
	}

	if err := l.template.Execute(buf, data); err != nil {
		return
	}

	s := buf.String()
	if n := len(s); n > 0 && s[n-1] == '}' {
		buf.Truncate(n - 1)
		buf.WriteByte(',')
		b, _ := json.Marshal(message)
		buf.WriteString(`"message":`)
		buf.Write(b)
		buf.WriteByte('}')
	} else {
		buf.WriteByte(' ')
		buf.WriteString(message)
	}
	buf.WriteByte('\n')
	l.Output.Write(buf.Bytes())
}
