// ABOUTME: Named filter CRUD. Terms are canonicalized before persisting so
// ABOUTME: stored filters always carry concrete page sizes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/varden/scanmgr/internal/filter"
)

// NamedFilter is one stored filter row.
type NamedFilter struct {
	UUID         string
	Name         string
	Comment      string
	Term         string
	ResourceType string
	Owner        int64
}

// CreateFilterParams are the caller-supplied fields for a new named filter.
type CreateFilterParams struct {
	Name         string
	Comment      string
	Term         string
	ResourceType string
	Owner        int64
	// Canonical options: the rows sentinel resolves against these before the
	// term is stored.
	MaxRows     int64
	DefaultRows func() int64
}

// canonicalTerm normalizes a filter term for storage. filt_id tokens are
// excised so a stored filter can never chain to another one.
func canonicalTerm(term string, maxRows int64, defaultRows func() int64) string {
	return filter.Canonical(filter.Parse(term), "filt_id", filter.Options{
		MaxRows:     maxRows,
		DefaultRows: defaultRows,
	})
}

// CreateFilter stores a named filter and returns its uuid.
func (s *Store) CreateFilter(ctx context.Context, p CreateFilterParams) (string, error) {
	if p.ResourceType != "" {
		if _, ok := filter.ResourceByName(p.ResourceType); !ok {
			return "", fmt.Errorf("unknown filter resource type %q", p.ResourceType)
		}
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO filters (uuid, name, comment, owner, term, resource_type)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, p.Name, p.Comment, p.Owner,
		canonicalTerm(p.Term, p.MaxRows, p.DefaultRows), p.ResourceType,
	)
	if err != nil {
		return "", fmt.Errorf("insert filter: %w", err)
	}
	return id, nil
}

// GetFilter returns a stored filter by uuid, or (nil, nil) when absent.
func (s *Store) GetFilter(ctx context.Context, id string) (*NamedFilter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uuid, name, comment, coalesce(owner, 0), term, resource_type
		FROM filters WHERE uuid = $1`, id,
	)
	var f NamedFilter
	err := row.Scan(&f.UUID, &f.Name, &f.Comment, &f.Owner, &f.Term, &f.ResourceType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get filter %s: %w", id, err)
	}
	return &f, nil
}

// ModifyFilter updates a stored filter's fields. The term is re-canonicalized.
func (s *Store) ModifyFilter(ctx context.Context, id string, p CreateFilterParams) error {
	if p.ResourceType != "" {
		if _, ok := filter.ResourceByName(p.ResourceType); !ok {
			return fmt.Errorf("unknown filter resource type %q", p.ResourceType)
		}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE filters
		SET name = $1, comment = $2, term = $3, resource_type = $4,
		    modified = extract(epoch FROM now())::bigint
		WHERE uuid = $5`,
		p.Name, p.Comment,
		canonicalTerm(p.Term, p.MaxRows, p.DefaultRows), p.ResourceType, id,
	)
	if err != nil {
		return fmt.Errorf("update filter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck
		return fmt.Errorf("filter %s not found", id)
	}
	return nil
}

// TrashFilter moves a stored filter to the trashcan.
func (s *Store) TrashFilter(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO filters_trash
			SELECT * FROM filters WHERE uuid = $1`, id,
		)
		if err != nil {
			return fmt.Errorf("move filter to trash: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck
			return fmt.Errorf("filter %s not found", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM filters WHERE uuid = $1`, id); err != nil {
			return fmt.Errorf("delete trashed filter: %w", err)
		}
		return nil
	})
}

// RestoreFilter moves a trashed filter back to the live table.
func (s *Store) RestoreFilter(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// The live table's id is an identity column; keep the original id so
		// tag and permission references stay intact across the round trip.
		res, err := tx.ExecContext(ctx, `
			INSERT INTO filters OVERRIDING SYSTEM VALUE
			SELECT * FROM filters_trash WHERE uuid = $1`, id,
		)
		if err != nil {
			return fmt.Errorf("restore filter: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck
			return fmt.Errorf("trashed filter %s not found", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM filters_trash WHERE uuid = $1`, id); err != nil {
			return fmt.Errorf("delete restored filter: %w", err)
		}
		return nil
	})
}

// DeleteFilter permanently removes a trashed filter.
func (s *Store) DeleteFilter(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM filters_trash WHERE uuid = $1`, id)
	if err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck
		return fmt.Errorf("trashed filter %s not found", id)
	}
	return nil
}
