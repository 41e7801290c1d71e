package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Apurer/flash-sale-engine/internal/domains/sales/ports"
)

// SQLSTATE codes the adapter classifies.
const (
	codeLockNotAvailable    = "55P03"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeDeadlockDetected    = "40P01"
)

// translate classifies driver errors. Errors that did not come from the
// database (domain rejections raised inside a transaction body) pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeLockNotAvailable:
		return fmt.Errorf("%w (%s)", ports.ErrLockTimeout, pgErr.Message)
	case codeCheckViolation:
		return fmt.Errorf("%w: constraint %s violated", ports.ErrPersistence, pgErr.ConstraintName)
	case codeDeadlockDetected:
		return fmt.Errorf("%w: %s", ports.ErrPersistence, pgErr.Message)
	}
	return fmt.Errorf("%w: %w", ports.ErrPersistence, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}
