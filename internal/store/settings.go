// ABOUTME: Per-user settings access, mainly the Rows Per Page default that
// ABOUTME: backs the rows=-2 filter sentinel.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// RowsPerPageUUID identifies the "Rows Per Page" setting. The owner IS NULL
// row is the system default; a per-user row overrides it.
const RowsPerPageUUID = "5f5a8712-8017-11e1-8556-406186ea4fc5"

// Setting is one settings row.
type Setting struct {
	UUID    string
	Name    string
	Comment string
	Value   string
}

// RowsPerPage returns the effective default page size for a user: their own
// setting row if present, else the system default row, else fallback.
func (s *Store) RowsPerPage(ctx context.Context, userID int64, fallback int64) int64 {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM settings
		WHERE uuid = $1 AND (owner = $2 OR owner IS NULL)
		ORDER BY owner NULLS LAST
		LIMIT 1`,
		RowsPerPageUUID, userID,
	).Scan(&value)
	if err != nil {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// GetSetting returns one setting visible to the user, preferring their own
// row over the system default. Returns (nil, nil) when the uuid is unknown.
func (s *Store) GetSetting(ctx context.Context, userID int64, uuid string) (*Setting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uuid, name, comment, value FROM settings
		WHERE uuid = $1 AND (owner = $2 OR owner IS NULL)
		ORDER BY owner NULLS LAST
		LIMIT 1`,
		uuid, userID,
	)
	var st Setting
	if err := row.Scan(&st.UUID, &st.Name, &st.Comment, &st.Value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get setting %s: %w", uuid, err)
	}
	return &st, nil
}

// ListSettings returns every setting visible to the user. Per-user rows
// shadow the system defaults with the same uuid.
func (s *Store) ListSettings(ctx context.Context, userID int64) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (uuid) uuid, name, comment, value
		FROM settings
		WHERE owner = $1 OR owner IS NULL
		ORDER BY uuid, owner NULLS LAST`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.UUID, &st.Name, &st.Comment, &st.Value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ModifySetting upserts the user's own row for a setting. Only settings with
// an existing system default may be modified.
func (s *Store) ModifySetting(ctx context.Context, userID int64, uuid, value string) error {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM settings WHERE uuid = $1 AND owner IS NULL`, uuid,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("unknown setting %s", uuid)
	}
	if err != nil {
		return fmt.Errorf("lookup setting %s: %w", uuid, err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE settings SET value = $1 WHERE uuid = $2 AND owner = $3`,
			value, uuid, userID,
		)
		if err != nil {
			return fmt.Errorf("update setting: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 { //nolint:errcheck
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO settings (uuid, owner, name, value) VALUES ($1, $2, $3, $4)`,
			uuid, userID, name, value,
		)
		if err != nil {
			return fmt.Errorf("insert setting: %w", err)
		}
		return nil
	})
}
