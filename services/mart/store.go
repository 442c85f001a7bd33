// Package mart loads staged tables into a local sqlite database so the
// report data can be queried directly.
package mart

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"coursemetrics/services/staging"

	"go.opentelemetry.io/otel"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("services/mart")

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Load replaces the mart contents with the given staged tables. The whole
// load runs in one transaction; a failed load leaves the previous contents
// intact.
func (s Store) Load(ctx context.Context, tables *staging.Tables) error {
	ctx, span := tracer.Start(ctx, "mart:load")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, def := range staging.TableOrder {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+def.Name); err != nil {
			return fmt.Errorf("truncate %s: %w", def.Name, err)
		}

		query := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			def.Name,
			strings.Join(def.Columns, ", "),
			placeholders(len(def.Columns)),
		)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", def.Name, err)
		}

		rows := tables.Cells(def.Name)
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				stmt.Close()
				return fmt.Errorf("insert into %s: %w", def.Name, err)
			}
		}
		stmt.Close()

		slog.DebugContext(ctx, "mart table loaded", "table", def.Name, "rows", len(rows))
	}

	return tx.Commit()
}

// Count reports the number of rows in one mart table.
func (s Store) Count(ctx context.Context, tableName string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName).Scan(&n)
	return n, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
