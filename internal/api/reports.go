// ABOUTME: Report detail endpoint: summary header, a result page shaped by the
// ABOUTME: report toggles in the filter term, and the per-host rollup.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/varden/scanmgr/internal/filter"
)

type reportDetailInput struct {
	ID string `path:"id" maxLength:"64" doc:"Report UUID"`
	// Filter carries the report controls: min_qod, levels, notes, overrides,
	// first/rows/sort and a free-text search phrase.
	Filter string `query:"filter" maxLength:"4096" doc:"Report filter term"`
}

type reportResultBody struct {
	UUID        string  `json:"uuid"`
	Host        string  `json:"host"`
	Port        string  `json:"port,omitempty"`
	NVT         string  `json:"nvt"`
	NVTName     string  `json:"nvt_name,omitempty"`
	Severity    float64 `json:"severity"`
	QoD         int64   `json:"qod"`
	Description string  `json:"description,omitempty"`
	Notes       int64   `json:"notes,omitempty"`
	Overrides   int64   `json:"overrides,omitempty"`
}

type reportHostBody struct {
	Host        string  `json:"host"`
	ResultCount int64   `json:"result_count"`
	MaxSeverity float64 `json:"max_severity"`
}

type reportDetailOutput struct {
	Body struct {
		UUID            string             `json:"uuid"`
		Task            string             `json:"task,omitempty"`
		Date            int64              `json:"date"`
		RunStatus       string             `json:"run_status"`
		Severity        *float64           `json:"severity,omitempty"`
		Results         []reportResultBody `json:"results"`
		ResultsFiltered int64              `json:"results_filtered" doc:"Results matching the controls before paging"`
		Hosts           []reportHostBody   `json:"hosts,omitempty"`
	}
}

func (srv *Server) reportDetailHandler(ctx context.Context, input *reportDetailInput) (*reportDetailOutput, error) {
	user, ok := userFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}

	rep, err := srv.store.GetReport(ctx, user, input.ID)
	if err != nil {
		slog.ErrorContext(ctx, "get report", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if rep == nil {
		return nil, huma.Error404NotFound("report not found")
	}

	terms := filter.Parse(input.Filter)
	defaultRows := func() int64 {
		return srv.store.RowsPerPage(ctx, user.ID, srv.cfg.DefaultRowsPerPage)
	}
	rc := filter.ReportControlsFrom(terms, defaultRows)
	if maxRows := srv.cfg.MaxRowsPerPage; maxRows > 0 && (rc.Limit < 0 || rc.Limit > maxRows) {
		rc.Limit = maxRows
	}

	results, filtered, err := srv.store.ReportResults(ctx, rep.ID, rc)
	if err != nil {
		slog.ErrorContext(ctx, "report results", "report", rep.UUID, "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}

	out := &reportDetailOutput{}
	out.Body.UUID = rep.UUID
	out.Body.Task = rep.Task
	out.Body.Date = rep.Date
	out.Body.RunStatus = rep.RunStatus
	if rep.Severity.Valid {
		out.Body.Severity = &rep.Severity.Float64
	}
	out.Body.Results = make([]reportResultBody, 0, len(results))
	for _, r := range results {
		out.Body.Results = append(out.Body.Results, reportResultBody{
			UUID:        r.UUID,
			Host:        r.Host,
			Port:        r.Port,
			NVT:         r.NVT,
			NVTName:     r.NVTName,
			Severity:    r.Severity,
			QoD:         r.QoD,
			Description: r.Description,
			Notes:       r.Notes,
			Overrides:   r.Overrides,
		})
	}
	out.Body.ResultsFiltered = filtered

	if rc.ResultHostsOnly {
		hosts, err := srv.store.ReportHosts(ctx, rep.ID, filter.GenericControls(terms, defaultRows))
		if err != nil {
			slog.ErrorContext(ctx, "report hosts", "report", rep.UUID, "error", err)
			return nil, huma.Error500InternalServerError("internal error")
		}
		for _, h := range hosts {
			out.Body.Hosts = append(out.Body.Hosts, reportHostBody{
				Host:        h.Host,
				ResultCount: h.ResultCount,
				MaxSeverity: h.MaxSeverity,
			})
		}
	}
	return out, nil
}

// registerReportRoutes wires the report detail endpoint. The /reports listing
// itself is part of the generic listing routes.
func registerReportRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "get-report",
		Method:      http.MethodGet,
		Path:        "/reports/{id}",
		Summary:     "Get a report with its results and host rollup",
		Tags:        []string{"reports"},
	}, srv.reportDetailHandler)
}
