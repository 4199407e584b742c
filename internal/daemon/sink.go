package daemon

import (
	"log/slog"

	"github.com/marcin-skalski/mondrian/internal/status"
)

// Sink receives the levels produced by each poll cycle. Calls come from the
// poll goroutine and must not block for long.
type Sink interface {
	Publish(category status.Category, level status.Level)
	PublishShutdown()
}

// SinkFuncs adapts plain callbacks to a Sink. Nil callbacks are skipped.
type SinkFuncs struct {
	OnPublish  func(status.Category, status.Level)
	OnShutdown func()
}

func (s SinkFuncs) Publish(c status.Category, l status.Level) {
	if s.OnPublish != nil {
		s.OnPublish(c, l)
	}
}

func (s SinkFuncs) PublishShutdown() {
	if s.OnShutdown != nil {
		s.OnShutdown()
	}
}

// LogSink writes every level to the log; it is the display of headless runs.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(c status.Category, l status.Level) {
	s.logger.Info("status", "category", c, "level", l)
}

func (s *LogSink) PublishShutdown() {
	s.logger.Warn("monitor shut down")
}

// Sinks fans out to several sinks in order.
type Sinks []Sink

func (ss Sinks) Publish(c status.Category, l status.Level) {
	for _, s := range ss {
		s.Publish(c, l)
	}
}

func (ss Sinks) PublishShutdown() {
	for _, s := range ss {
		s.PublishShutdown()
	}
}
