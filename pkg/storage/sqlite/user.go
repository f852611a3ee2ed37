package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// CreateUser stores a new user
func (s *SQLite) CreateUser(ctx context.Context, user model.User) (int64, error) {
	stmt := table.User.
		INSERT(table.User.Username, table.User.Token).
		MODEL(user)

	result, err := s.handleInsert(ctx, stmt)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetUser gets a user matching the given condition
func (s *SQLite) GetUser(ctx context.Context, where sqlite.BoolExpression) (*model.User, error) {
	stmt := table.User.
		SELECT(table.User.AllColumns).
		FROM(table.User).
		WHERE(where)

	var user model.User
	err := stmt.QueryContext(ctx, s.handle(), &user)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

var _ storage.UserStorage = (*SQLite)(nil)
