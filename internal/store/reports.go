// ABOUTME: Report detail reads: the summary header, the result page shaped by
// ABOUTME: the report controls, and the per-host rollup.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/varden/scanmgr/internal/acl"
	"github.com/varden/scanmgr/internal/filter"
)

// ReportSummary is the header of one report.
type ReportSummary struct {
	ID        int64
	UUID      string
	Task      string
	Date      int64
	RunStatus string
	Severity  sql.NullFloat64
}

// ReportResult is one result row of a report detail page.
type ReportResult struct {
	UUID        string
	Host        string
	Port        string
	NVT         string
	NVTName     string
	Severity    float64
	QoD         int64
	Description string
	// Notes and Overrides are the counts of active notes/overrides on the
	// result's NVT; zero when the respective toggle is off.
	Notes     int64
	Overrides int64
}

// ReportHost is one row of the per-host rollup.
type ReportHost struct {
	Host        string
	ResultCount int64
	MaxSeverity float64
}

// GetReport returns the summary of one report by uuid, or (nil, nil) when it
// does not exist or the user may not see it.
func (s *Store) GetReport(ctx context.Context, user acl.User, uuid string) (*ReportSummary, error) {
	access := acl.ResourceClause(user, filter.ResourceReport, "reports", filter.Compiled{}, QuoteString)
	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("reports.id", "reports.uuid",
			"coalesce((SELECT name FROM tasks WHERE tasks.id = reports.task), '')",
			"reports.date", "run_status_name(reports.scan_run_status)", "reports.severity").
		From("reports").
		Where(sq.And{sq.Expr(access), sq.Eq{"reports.uuid": uuid}}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build report query: %w", err)
	}
	var r ReportSummary
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&r.ID, &r.UUID, &r.Task, &r.Date, &r.RunStatus, &r.Severity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", uuid, err)
	}
	return &r, nil
}

// resultSortExprs maps the report control sort fields onto result expressions.
var resultSortExprs = map[string]string{
	"name":     "(SELECT name FROM nvts WHERE nvts.oid = results.nvt)",
	"host":     "inet_sort_key(host)",
	"port":     "port",
	"severity": "severity",
	"qod":      "qod",
	"created":  "created",
}

// severityClasses maps the levels letters onto severity_to_class names.
var severityClasses = map[rune]string{
	'h': "High",
	'm': "Medium",
	'l': "Low",
	'g': "Log",
	'f': "False Positive",
}

// levelsPred builds the severity-band predicate for a levels toggle string.
// Unknown letters are ignored; an empty result means no restriction.
func levelsPred(levels string) sq.Sqlizer {
	classes := make([]string, 0, len(levels))
	for _, ch := range strings.ToLower(levels) {
		if class, ok := severityClasses[ch]; ok {
			classes = append(classes, class)
		}
	}
	if len(classes) == 0 {
		return nil
	}
	return sq.Eq{"severity_to_class(severity)": classes}
}

// ReportResults returns one page of a report's results shaped by the report
// controls, plus the count of results matching the controls before paging.
func (s *Store) ReportResults(ctx context.Context, reportID int64, rc filter.ReportControls) ([]ReportResult, int64, error) {
	where := sq.And{sq.Eq{"report": reportID}}
	if rc.MinQoD > 0 {
		where = append(where, sq.GtOrEq{"qod": rc.MinQoD})
	}
	if lv := levelsPred(rc.Levels); lv != nil {
		where = append(where, lv)
	}
	if rc.SearchPhrase != "" {
		nvtName := resultSortExprs["name"]
		if rc.SearchPhraseExact {
			where = append(where, sq.Or{
				sq.Eq{"host": rc.SearchPhrase},
				sq.Eq{"port": rc.SearchPhrase},
				sq.Expr(nvtName+" = ?", rc.SearchPhrase),
				sq.Eq{"description": rc.SearchPhrase},
			})
		} else {
			pat := "%" + rc.SearchPhrase + "%"
			where = append(where, sq.Or{
				sq.ILike{"host": pat},
				sq.ILike{"port": pat},
				sq.Expr(nvtName+" ILIKE ?", pat),
				sq.ILike{"description": pat},
			})
		}
	}

	noteCount := "0"
	if rc.Notes {
		noteCount = "(SELECT count(*) FROM notes WHERE notes.nvt = results.nvt AND notes.active != 0)"
	}
	overrideCount := "0"
	if rc.Overrides {
		overrideCount = "(SELECT count(*) FROM overrides WHERE overrides.nvt = results.nvt AND overrides.active != 0)"
	}

	order, ok := resultSortExprs[rc.SortField]
	if !ok {
		order = resultSortExprs["name"]
	}
	dir := " ASC"
	if !rc.Ascending {
		dir = " DESC"
	}

	q := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("uuid", "host", "port", "nvt",
			"coalesce("+resultSortExprs["name"]+", '')",
			"coalesce(severity, 0)", "qod", "description",
			noteCount, overrideCount).
		From("results").
		Where(where).
		OrderBy(order + dir)
	if rc.Limit >= 0 {
		q = q.Limit(uint64(rc.Limit))
	}
	if rc.Offset > 0 {
		q = q.Offset(uint64(rc.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build report results query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("execute report results query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var results []ReportResult
	for rows.Next() {
		var r ReportResult
		if err := rows.Scan(&r.UUID, &r.Host, &r.Port, &r.NVT, &r.NVTName,
			&r.Severity, &r.QoD, &r.Description, &r.Notes, &r.Overrides); err != nil {
			return nil, 0, fmt.Errorf("scan report result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate report results: %w", err)
	}

	filtered, err := s.countWhere(ctx, "results", where)
	if err != nil {
		return nil, 0, err
	}
	return results, filtered, nil
}

// hostSortExprs maps the generic sort fields onto host rollup expressions.
var hostSortExprs = map[string]string{
	"name":     "inet_sort_key(host)",
	"severity": "max_severity",
	"results":  "result_count",
}

// ReportHosts returns the per-host rollup of a report, paged and sorted by
// the generic page controls.
func (s *Store) ReportHosts(ctx context.Context, reportID int64, pc filter.PageControls) ([]ReportHost, error) {
	order, ok := hostSortExprs[pc.SortField]
	if !ok {
		order = hostSortExprs["name"]
	}
	dir := " ASC"
	if !pc.Ascending {
		dir = " DESC"
	}

	q := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("host", "count(*) AS result_count", "coalesce(max(severity), 0) AS max_severity").
		From("results").
		Where(sq.Eq{"report": reportID}).
		GroupBy("host").
		OrderBy(order + dir)
	if pc.Limit >= 0 {
		q = q.Limit(uint64(pc.Limit))
	}
	// PageControls offsets are 1-based.
	if pc.Offset > 1 {
		q = q.Offset(uint64(pc.Offset - 1))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build report hosts query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute report hosts query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var hosts []ReportHost
	for rows.Next() {
		var h ReportHost
		if err := rows.Scan(&h.Host, &h.ResultCount, &h.MaxSeverity); err != nil {
			return nil, fmt.Errorf("scan report host: %w", err)
		}
		hosts = append(hosts, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report hosts: %w", err)
	}
	return hosts, nil
}
