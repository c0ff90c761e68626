// Package logger is the process-wide levelled logger. It keeps a small
// printf-style API on top of zap so the level can be flipped at runtime.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls encoder and file output.
type Options struct {
	Mode     string // "production" uses JSON, anything else console
	Filename string // optional rotated log file
}

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar  = zap.NewNop().Sugar()
	inited bool
)

// InitWithOptions builds the logger. Calling it again replaces the previous logger.
func InitWithOptions(lvl string, opts Options) {
	level.SetLevel(parseLevel(lvl))

	var encCfg zapcore.EncoderConfig
	var enc zapcore.Encoder
	if opts.Mode == "production" {
		encCfg = zap.NewProductionEncoderConfig()
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), level)}
	if opts.Filename != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotated),
			level,
		))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	mu.Lock()
	sugar = l.Sugar()
	inited = true
	mu.Unlock()
	zap.ReplaceGlobals(l)
}

// SetLevel changes the active level; unknown names fall back to info.
func SetLevel(lvl string) {
	level.SetLevel(parseLevel(lvl))
}

// GetLevel returns the active level name.
func GetLevel() string {
	return level.Level().String()
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if inited {
		_ = sugar.Sync()
	}
}

func parseLevel(lvl string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(lvl)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, args ...interface{}) { get().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { get().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { get().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { get().Errorf(format, args...) }
