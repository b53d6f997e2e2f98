package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	apperrors "edrs-docstore/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// escapeLikePattern escapes PostgreSQL LIKE wildcard characters (% and _)
// so they are treated as literal characters in LIKE patterns.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// wrapQueryError keeps the cause in the chain. Connectivity failures are additionally
// marked StorageUnavailable so the API answers 503 instead of 500.
func wrapQueryError(format string, err error) error {
	wrapped := fmt.Errorf(format, err)
	if isConnectionFailure(err) {
		return apperrors.StorageUnavailable(errRegistryUnavailable, wrapped)
	}
	return wrapped
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
