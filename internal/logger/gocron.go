package logger

import (
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// gocronLogger forwards scheduler logs to zap.
type gocronLogger struct {
	sugar *zap.SugaredLogger
}

// NewGocronLogger adapts l to the gocron.Logger interface.
//
//nolint:ireturn // gocron.WithLogger takes the interface
func NewGocronLogger(l *zap.Logger) gocron.Logger {
	return &gocronLogger{sugar: l.Named("gocron").Sugar()}
}

func (g *gocronLogger) Debug(msg string, args ...any) { g.sugar.Debugw(msg, args...) }
func (g *gocronLogger) Info(msg string, args ...any)  { g.sugar.Infow(msg, args...) }
func (g *gocronLogger) Warn(msg string, args ...any)  { g.sugar.Warnw(msg, args...) }
func (g *gocronLogger) Error(msg string, args ...any) { g.sugar.Errorw(msg, args...) }
