package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithTenantRLS executes fn inside a transaction scoped to one tenant.
//
// Usage in repositories:
//
//	tenantID, err := tenant.TenantID(ctx)
//	if err != nil { return err }
//	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
//	    return r.db.GetContext(ctx, &run, "SELECT ... FROM payroll_runs WHERE id = $1", id)
//	})
//
// The transaction sets the service search_path and app.current_tenant with
// set_config(..., true), so both are discarded on commit or rollback and a
// pooled connection never leaks tenant state. RLS policies on payroll tables
// compare tenant_id with current_setting('app.current_tenant')::uuid.
func (db *DB) WithTenantRLS(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	if tx := db.getTx(ctx); tx != nil {
		// Already inside a tenant transaction; reuse it.
		return fn(ctx)
	}

	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := db.setSearchPath(ctx, tx); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `SELECT set_config('app.current_tenant', $1, true)`, tenantID); err != nil {
			return fmt.Errorf("failed to set app.current_tenant to %s: %w", tenantID, err)
		}

		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// WithSchema executes fn in a transaction that only sets the search_path.
// Used for global tables (tenant registry, system pay elements) that carry
// no tenant policy.
func (db *DB) WithSchema(ctx context.Context, fn func(context.Context) error) error {
	if tx := db.getTx(ctx); tx != nil {
		return fn(ctx)
	}

	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := db.setSearchPath(ctx, tx); err != nil {
			return err
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (db *DB) setSearchPath(ctx context.Context, tx *sqlx.Tx) error {
	searchPath := db.searchPath
	if searchPath == "" {
		searchPath = "public"
	}
	if _, err := tx.ExecContext(ctx, `SELECT set_config('search_path', $1, true)`, searchPath); err != nil {
		return fmt.Errorf("failed to set search_path to %s: %w", searchPath, err)
	}
	return nil
}

// getTx extracts transaction from context if present
func (db *DB) getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
