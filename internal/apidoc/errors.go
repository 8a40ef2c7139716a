package apidoc

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNameConflict     = errors.New("api name already exists in project")
	ErrOperationFailed  = errors.New("operation failed")

	ErrNotFound        = errors.New("not found")
	ErrProjectNotFound = fmt.Errorf("project %w", ErrNotFound)
	ErrGroupNotFound   = fmt.Errorf("group %w", ErrNotFound)
	ErrAPINotFound     = fmt.Errorf("api %w", ErrNotFound)
	ErrHistoryNotFound = fmt.Errorf("history %w", ErrNotFound)
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// failed classifies a storage error. Unique violations are name conflicts,
// domain errors pass through, everything else is an opaque failure.
func failed(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrNameConflict)
	case isDomain(err):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrOperationFailed, err)
	}
}

func isDomain(err error) bool {
	return errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNameConflict) ||
		errors.Is(err, ErrOperationFailed)
}
