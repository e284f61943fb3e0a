package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgQueryCanceled       = "57014"
	mysqlMaxExecTime      = 3024
	mysqlQueryInterrupted = 1317
)

// sanitizeError maps an internal error to a message safe to hand back to the
// client. Caller errors pass through; driver details are logged, not returned.
func sanitizeError(logger *slog.Logger, err error, action string) string {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, domain.ErrUnknownWeight),
		errors.Is(err, domain.ErrBatchSuperseded):
		return fmt.Sprintf("failed to %s: %v", action, err)
	case isTimeout(err):
		return fmt.Sprintf("%s timed out", action)
	}

	logger.Error("tool failed",
		slog.String("action", action),
		slog.String("error.message", err.Error()),
	)
	if errors.Is(err, domain.ErrMetadataUnavailable) {
		return fmt.Sprintf("failed to %s: %v (check server logs)", action, domain.ErrMetadataUnavailable)
	}
	return fmt.Sprintf("internal error while trying to %s; check server logs", action)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlMaxExecTime || myErr.Number == mysqlQueryInterrupted
	}
	return false
}
