package events

import (
	"context"

	"github.com/playbookforge/playbook-engine/engine/logging"
)

// =============================================================================
// LOGGING MIDDLEWARE
// =============================================================================

// LoggingMiddleware logs all bus traffic at debug level.
type LoggingMiddleware struct {
	log logging.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware(log logging.Logger) *LoggingMiddleware {
	if log == nil {
		log = logging.NewNop()
	}
	return &LoggingMiddleware{log: log}
}

// Before logs message receipt.
func (m *LoggingMiddleware) Before(ctx context.Context, message Message) (Message, error) {
	m.log.Debug("bus message", "type", GetMessageType(message), "category", message.Category())
	return message, nil
}

// After logs message completion.
func (m *LoggingMiddleware) After(ctx context.Context, message Message, result any, err error) (any, error) {
	if err != nil {
		m.log.Warn("bus message failed", "type", GetMessageType(message), "error", err)
	}
	return result, nil
}

var _ Middleware = (*LoggingMiddleware)(nil)
