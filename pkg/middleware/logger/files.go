package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func logDir() string {
	dir := strings.TrimSpace(os.Getenv("LOG_DIR"))
	if dir == "" {
		dir = "log"
	}
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func logLevel() zapcore.Level {
	if lvl, err := zapcore.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL"))); err == nil {
		return lvl
	}
	return zap.InfoLevel
}

// NewLog returns a JSON logger writing to a rotating file under LOG_DIR
// (default "log") and to stdout.
func NewLog(n string) *zap.Logger { return newLog(n, "msg") }

func newLog(n, messageKey string) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.MessageKey = messageKey

	console := zapcore.Lock(os.Stdout)

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir(), n),
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	})

	lvl := logLevel()
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, lvl),
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), console, lvl),
	)
	return zap.New(core)
}

var (
	accessMu     sync.Mutex
	accessLogger *zap.Logger
)

// access log lines carry no message
func httpAccessLogger() *zap.Logger {
	accessMu.Lock()
	defer accessMu.Unlock()
	if accessLogger == nil {
		accessLogger = newLog("http-access.log", zapcore.OmitKey)
	}
	return accessLogger
}

// SetAccessLogger lets tests/CLIs override the access logger (optional).
func SetAccessLogger(l *zap.Logger) {
	if l != nil {
		accessMu.Lock()
		accessLogger = l
		accessMu.Unlock()
	}
}
