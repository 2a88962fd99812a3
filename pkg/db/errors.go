package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SQLSTATE class 23 codes we branch on.
const (
	sqlStateUniqueViolation = "23505"
)

// pgDiagnostics pulls the SQLSTATE and constraint out of either Postgres driver's error.
func pgDiagnostics(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}

// IsUniqueViolation reports whether err breaks a unique index. A non-empty constraint
// narrows the match on Postgres. SQLite never names the index so any UNIQUE failure counts.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if code, got, ok := pgDiagnostics(err); ok {
		return code == sqlStateUniqueViolation && (constraint == "" || got == constraint)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return true
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(msg, "duplicate key value"):
		return constraint == "" || strings.Contains(msg, constraint)
	}
	return false
}
