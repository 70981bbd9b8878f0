// ABOUTME: Store methods for user accounts: creation, lookup, role membership.
// ABOUTME: These back the login flow and the per-request access clauses.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User is one user row with its resolved role flags.
type User struct {
	ID           int64
	UUID         string
	Name         string
	Email        string
	PasswordHash string
	Admin        bool
}

// CreateUser inserts a new user row, granting the Admin role when admin is
// set and the User role otherwise. Returns the created user.
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string, admin bool) (*User, error) {
	u := &User{UUID: uuid.NewString(), Name: name, Email: email, PasswordHash: passwordHash, Admin: admin}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (uuid, name, email, password_hash)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			u.UUID, name, email, passwordHash,
		).Scan(&u.ID)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		roles := []string{"User"}
		if admin {
			roles = append(roles, "Admin")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, id FROM roles WHERE name = ANY($2)`,
			u.ID, pq.Array(roles),
		)
		if err != nil {
			return fmt.Errorf("grant roles: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByName returns the user with the given login name, or (nil, nil) if
// not found. Only call from auth flows.
func (s *Store) GetUserByName(ctx context.Context, name string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, uuid, name, email, password_hash,
		       EXISTS (SELECT 1 FROM user_roles
		               JOIN roles ON roles.id = user_roles.role_id
		               WHERE user_roles.user_id = users.id AND roles.name = 'Admin')
		FROM users WHERE name = $1`, name,
	)
	var u User
	err := row.Scan(&u.ID, &u.UUID, &u.Name, &u.Email, &u.PasswordHash, &u.Admin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by name: %w", err)
	}
	return &u, nil
}
