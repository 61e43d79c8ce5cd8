package migrations

import (
	"context"
	"fmt"
	"strings"

	"curve-engine/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded Postgres schema files.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := readSQL(postgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, file := range files {
		if strings.TrimSpace(file.content) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, file.content); err != nil {
			return fmt.Errorf("apply migration %s: %w", file.name, err)
		}
	}

	return nil
}
