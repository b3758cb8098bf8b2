package memory

import (
	"context"
	"log/slog"
)

// NoopBackend is a Backend that persists nothing. It exists for tests and
// for diskless runs where losing the corpus on restart is acceptable.
type NoopBackend struct {
	logger *slog.Logger
}

// NewNoopBackend creates a NoopBackend that logs discarded writes at DEBUG
// level. If logger is nil, the default slog logger is used.
func NewNoopBackend(logger *slog.Logger) *NoopBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopBackend{logger: logger}
}

// Load always returns an empty corpus.
func (n *NoopBackend) Load(_ context.Context, _ int) ([]string, error) {
	return nil, nil
}

// Save logs the discarded entry and returns nil.
func (n *NoopBackend) Save(_ context.Context, text string, corpus []string) error {
	n.logger.Debug("memory noop: discarding retained message",
		"text_len", len(text),
		"corpus_len", len(corpus),
	)
	return nil
}

// Close is a no-op.
func (n *NoopBackend) Close() error { return nil }

// Compile-time interface satisfaction check.
var _ Backend = (*NoopBackend)(nil)
