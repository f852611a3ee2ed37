// Package sqlite implements storage.Storage on a single sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/mattn/go-sqlite3"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/storage"
	"go.uber.org/zap"
)

type SQLite struct {
	db *sql.DB
	tx *sql.Tx
}

// New opens the sqlite database at the given path and runs any pending
// migrations. Foreign keys are enforced so media and episode rows follow
// their parents on delete.
func New(filePath string) (storage.Storage, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", filePath))
	if err != nil {
		return nil, err
	}

	// a single connection avoids SQLITE_BUSY under concurrent writers and
	// keeps in-memory databases on one shared handle
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{
		db: db,
	}, nil
}

// handle returns the active query target, the surrounding transaction when
// one is open, the raw connection otherwise.
func (s *SQLite) handle() qrm.DB {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Tx runs fn against a transaction-scoped Storage. Nested calls join the
// already open transaction.
func (s *SQLite) Tx(ctx context.Context, fn func(storage.Storage) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&SQLite{db: s.db, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (s *SQLite) handleInsert(ctx context.Context, stmt sqlite.InsertStatement) (sql.Result, error) {
	return s.handleStatement(ctx, stmt)
}

func (s *SQLite) handleDelete(ctx context.Context, stmt sqlite.DeleteStatement) (sql.Result, error) {
	return s.handleStatement(ctx, stmt)
}

func (s *SQLite) handleUpdate(ctx context.Context, stmt sqlite.UpdateStatement) (sql.Result, error) {
	return s.handleStatement(ctx, stmt)
}

func (s *SQLite) handleStatement(ctx context.Context, stmt sqlite.Statement) (sql.Result, error) {
	log := logger.FromCtx(ctx)

	result, err := stmt.ExecContext(ctx, s.handle())
	if err != nil {
		log.Debug("failed to execute statement", zap.String("query", stmt.DebugSql()), zap.Error(err))
		return result, mapError(err)
	}

	return result, nil
}

// mapError translates driver and qrm errors into the storage sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, qrm.ErrNoRows) {
		return storage.ErrNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return storage.ErrDuplicate
		}
	}

	return err
}
