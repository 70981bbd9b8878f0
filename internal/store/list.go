// ABOUTME: Generic resource listing: compiles the user's filter term, wraps it
// ABOUTME: in access control, and assembles the SELECT with squirrel.
package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/varden/scanmgr/internal/acl"
	"github.com/varden/scanmgr/internal/filter"
)

// trashTables names the resources with a separate trashcan table.
var trashTables = map[filter.Resource]bool{
	filter.ResourceTask:   true,
	filter.ResourceTarget: true,
	filter.ResourceFilter: true,
}

// ListRequest describes one resource listing.
type ListRequest struct {
	Resource filter.Resource
	Trash    bool
	// Filter is the raw user filter term.
	Filter string
	User   acl.User
	// IgnoreMaxRows lifts the system row cap; only internal callers set it.
	IgnoreMaxRows bool
	// MaxRows and DefaultRows come from configuration and the user's
	// rows-per-page setting.
	MaxRows     int64
	DefaultRows func() int64
}

// Row is one listing row keyed by public column name.
type Row map[string]any

// ListResult is the outcome of one listing: the page of rows plus the counts
// and the compiled filter that produced them.
type ListResult struct {
	Columns  []string
	Rows     []Row
	Filtered int64
	Total    int64
	Applied  filter.Compiled
}

// List runs one resource listing. The filter term is compiled to trusted SQL,
// ANDed with the user's access clause, and executed with squirrel.
func (s *Store) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	reg := filter.RegistryFor(req.Resource, req.Trash)
	if reg == nil {
		return nil, fmt.Errorf("no registry for resource %s", req.Resource)
	}

	table := req.Resource.Table()
	if req.Trash && trashTables[req.Resource] {
		table += "_trash"
	}

	terms := filter.Parse(req.Filter)
	compiled := filter.Compile(req.Resource, terms, reg, filter.Options{
		Trash:         req.Trash,
		IgnoreMaxRows: req.IgnoreMaxRows,
		Table:         table,
		Escape:        QuoteString,
		DefaultRows:   req.DefaultRows,
		MaxRows:       req.MaxRows,
		TagACL:        acl.TagClause(req.User),
	})
	access := acl.ResourceClause(req.User, req.Resource, table, compiled, QuoteString)

	names := make([]string, 0, len(reg.Select))
	exprs := make([]string, 0, len(reg.Select))
	for _, col := range reg.Select {
		names = append(names, col.Name())
		if col.Expr == col.Name() {
			exprs = append(exprs, col.Expr)
		} else {
			exprs = append(exprs, col.Expr+" AS "+col.Name())
		}
	}

	where := sq.And{sq.Expr(access)}
	if compiled.Where != "" {
		where = append(where, sq.Expr("("+compiled.Where+")"))
	}

	q := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(exprs...).
		From(table).
		Where(where)
	if compiled.Order != "" {
		q = q.OrderBy(strings.TrimPrefix(compiled.Order, "ORDER BY "))
	} else {
		// Output alias, so it also works for resources where name is derived.
		q = q.OrderBy("name ASC")
	}
	if compiled.Limit >= 0 {
		q = q.Limit(uint64(compiled.Limit))
	}
	if compiled.Offset > 0 {
		q = q.Offset(uint64(compiled.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build listing query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute listing query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	result := &ListResult{Columns: names, Applied: compiled}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		row := make(Row, len(names))
		for i, name := range names {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listing rows: %w", err)
	}

	result.Filtered, err = s.countWhere(ctx, table, where)
	if err != nil {
		return nil, err
	}
	result.Total, err = s.countWhere(ctx, table, sq.And{sq.Expr(access)})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// countWhere counts rows of table matching the given predicate.
func (s *Store) countWhere(ctx context.Context, table string, where sq.Sqlizer) (int64, error) {
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("count(*)").
		From(table).
		Where(where).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("execute count query: %w", err)
	}
	return n, nil
}
