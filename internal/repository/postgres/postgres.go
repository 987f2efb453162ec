// Package postgres implements the repositories on PostgreSQL. Embedded
// lists (images, reviews, order items) are stored as JSONB columns.
package postgres

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/N1kunj1998/ECOMMERCE/pkg/database"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the schema migrations for both repositories.
func Migrate(ctx context.Context, db database.DBTX, logger *slog.Logger) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	return database.RunMigrations(ctx, db, sub, logger)
}

func trace(ctx context.Context, op, statement string) (context.Context, func(error)) {
	return database.TraceQuery(ctx, database.SystemPostgres, op, statement)
}

// translateUniqueViolation maps SQLSTATE 23505 to a DuplicateKey error. The
// field is taken from the constraint name (products_name_key -> name).
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return err
		}
		return apperrors.DuplicateKey(fieldFromConstraint(pgErr.TableName, pgErr.ConstraintName))
	}
	return err
}

func fieldFromConstraint(table, constraint string) string {
	field := strings.TrimPrefix(constraint, table+"_")
	field = strings.TrimSuffix(field, "_key")
	if field == "" || field == "pkey" || field == constraint {
		return "id"
	}
	return field
}
