package services

import (
	"errors"
	"log/slog"
)

var (
	// ErrConflict reports a uniqueness violation.
	ErrConflict = errors.New("conflict")

	// ErrCascade reports that a post was deleted but removing its
	// comments failed. The post stays deleted.
	ErrCascade = errors.New("cascade delete incomplete")
)

func componentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("component", component))
}
