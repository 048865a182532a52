package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Audit statuses
const (
	AuditSuccess = "Success"
	AuditFail    = "Fail"
)

// AuditLog writes one JSON line per authentication attempt.
// A nil *AuditLog is valid and discards everything.
type AuditLog struct {
	logger zerolog.Logger
	file   *os.File
}

// NewAuditLog opens (or creates) path in append mode. When enabled is false a no-op logger is returned.
func NewAuditLog(enabled bool, path string) (*AuditLog, error) {
	if !enabled {
		return &AuditLog{logger: zerolog.Nop()}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- operator controlled path
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &AuditLog{
		logger: zerolog.New(f).With().Timestamp().Logger(),
		file:   f,
	}, nil
}

// NewAuditLogTo writes audit lines to an arbitrary logger, used by tests.
func NewAuditLogTo(l zerolog.Logger) *AuditLog {
	return &AuditLog{logger: l}
}

// Attempt records an authentication attempt.
// authType is Local, Google or Logout; identifier is a username, email or user id.
func (a *AuditLog) Attempt(level zerolog.Level, authType, status, identifier, message string) {
	if a == nil {
		return
	}
	ev := a.logger.WithLevel(level).
		Str("auth_type", authType).
		Str("status", status)
	if identifier != "" {
		ev = ev.Str("identifier", identifier)
	}
	ev.Msg(message)
}

// Close closes the underlying file, if any.
func (a *AuditLog) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}
