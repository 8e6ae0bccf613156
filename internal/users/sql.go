package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/angeloszaimis/coe/internal/database"
)

const selectUsers = `SELECT id, COALESCE(name, '') AS name, email, created_at FROM ` + database.UsersTable

// SQLStore keeps users in the users table of any supported dialect.
type SQLStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps db. Placeholders are rebound for the driver db was opened with.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Create(ctx context.Context, user User) (User, error) {
	query := s.db.Rebind(`INSERT INTO ` + database.UsersTable + ` (id, name, email, created_at) VALUES (?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.getOne(ctx, s.db, "id", id)
}

func (s *SQLStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.getOne(ctx, s.db, "email", email)
}

func (s *SQLStore) List(ctx context.Context) ([]User, error) {
	users := []User{}
	if err := s.db.SelectContext(ctx, &users, selectUsers+` ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, update Update) (User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.getOne(ctx, tx, "id", id); err != nil {
		return User{}, err
	}

	var (
		sets []string
		args []interface{}
	)
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}

	if len(sets) > 0 {
		query := tx.Rebind(`UPDATE ` + database.UsersTable + ` SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
		args = append(args, id)

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if database.IsUniqueViolation(err) {
				return User{}, ErrConflict
			}
			return User{}, fmt.Errorf("update user: %w", err)
		}
	}

	user, err := s.getOne(ctx, tx, "id", id)
	if err != nil {
		return User{}, err
	}

	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("commit update: %w", err)
	}

	return user, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM `+database.UsersTable+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+database.UsersTable); err != nil {
		return fmt.Errorf("reset users: %w", err)
	}
	return nil
}

func (s *SQLStore) getOne(ctx context.Context, q sqlx.QueryerContext, column, value string) (User, error) {
	var user User
	query := sqlx.Rebind(sqlx.BindType(s.db.DriverName()), selectUsers+` WHERE `+column+` = ?`)

	err := sqlx.GetContext(ctx, q, &user, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by %s: %w", column, err)
	}

	return user, nil
}
