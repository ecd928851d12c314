// Package schema holds the DDL for the ledger and catalog tables.
package schema

import (
	"context"
	_ "embed"
	"errors"

	"github.com/classroom-devices/loanledger/internal/adapters"
)

//go:embed schema.sql
var ddl string

// Tables lists every table in dependency order, children last.
var Tables = []string{"students", "classes", "subjects", "subject_classes", "enrollments", "units", "reservations", "loan_entries"}

var ErrMigrationFailed = errors.New("schema migration failed")

// DDL returns the statements Migrate runs.
func DDL() string {
	return ddl
}

// Migrate creates missing tables and indexes. It is safe to run repeatedly.
func Migrate(ctx context.Context, db adapters.Queryer) error {
	if _, err := db.Exec(ctx, ddl); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}
