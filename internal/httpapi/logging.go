package httpapi

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
)

// zlog is the structured logger used by the HTTP layer. A no-op logger by
// default; installed from the composition root.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("MLXD_LOG_LEVEL"))

// requestLogLevel resolves the effective log level for one request, with
// query and header overrides for ad hoc debugging.
func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// frameLogWriter logs complete SSE frames at debug level as they stream
// out, for request-scoped debugging of chunk content.
type frameLogWriter struct {
	buf []byte
}

func (fw *frameLogWriter) Write(p []byte) (int, error) {
	fw.buf = append(fw.buf, p...)
	for {
		idx := indexByte(fw.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(fw.buf[:idx])
		if len(line) > 0 {
			zlog.Debug().Str("frame", line).Msg("stream frame")
		}
		fw.buf = fw.buf[idx+1:]
	}
	return len(p), nil
}

func indexByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return -1
}
