// Package apidoc keeps API definitions, their groups and their audit trail
// consistent. Every mutation runs as one transaction together with the audit
// entries that describe it.
package apidoc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ArCaneSec/apidock/internal/logging"

	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *slog.Logger
}

func New(db *gorm.DB, log *slog.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{db: db, log: log.With("component", "apidoc")}
}

// atomic runs fn in a transaction. Any error rolls the whole unit back.
func (s *Service) atomic(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	err := failed(op, s.db.WithContext(ctx).Transaction(fn))
	s.report(ctx, op, err)
	return err
}

// read runs fn against a context bound handle outside any transaction.
func (s *Service) read(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	err := failed(op, fn(s.db.WithContext(ctx)))
	s.report(ctx, op, err)
	return err
}

func (s *Service) report(ctx context.Context, op string, err error) {
	switch {
	case err == nil:
	case isClientError(err):
		s.log.DebugContext(ctx, "rejected", "op", op, "error", err)
	default:
		s.log.ErrorContext(ctx, "operation failed", "op", op, "error", err)
	}
}

func isClientError(err error) bool {
	return errors.Is(err, ErrInvalidParameter) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrNameConflict)
}
