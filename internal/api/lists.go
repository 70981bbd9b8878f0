// ABOUTME: Generic resource listing endpoints: one GET route per resource type,
// ABOUTME: all sharing a handler factory around store.List.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/varden/scanmgr/internal/filter"
	"github.com/varden/scanmgr/internal/store"
)

// listedResources are the resource types exposed as listing endpoints.
var listedResources = []filter.Resource{
	filter.ResourceTask,
	filter.ResourceReport,
	filter.ResourceResult,
	filter.ResourceTarget,
	filter.ResourceScanner,
	filter.ResourceSchedule,
	filter.ResourceNote,
	filter.ResourceOverride,
	filter.ResourceHost,
	filter.ResourceOS,
	filter.ResourceTag,
	filter.ResourceFilter,
	filter.ResourcePermission,
	filter.ResourceUser,
}

type listInput struct {
	// Filter is the user's filter term, e.g. `severity>6.9 sort-reverse=severity rows=20`.
	Filter string `query:"filter" maxLength:"4096" doc:"Filter term"`
	// FiltID names a stored filter applied before the ad-hoc term.
	FiltID string `query:"filt_id" maxLength:"64" doc:"Stored filter UUID"`
	Trash  bool   `query:"trash" doc:"List the trashcan instead of live resources"`
}

type listOutput struct {
	Body struct {
		Columns  []string    `json:"columns" doc:"Public column names, in row order"`
		Rows     []store.Row `json:"rows"`
		Filtered int64       `json:"filtered" doc:"Rows matching the filter"`
		Total    int64       `json:"total" doc:"Rows visible to the user"`
		// Applied echoes the effective pagination so clients can page without
		// re-deriving the filter's first/rows values.
		Applied struct {
			First int64 `json:"first"`
			Rows  int64 `json:"rows"`
		} `json:"applied"`
	}
}

// listHandler builds the huma handler for one resource type.
func (srv *Server) listHandler(res filter.Resource) func(context.Context, *listInput) (*listOutput, error) {
	return func(ctx context.Context, input *listInput) (*listOutput, error) {
		user, ok := userFrom(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("unauthorized")
		}

		term := input.Filter
		if input.FiltID != "" {
			stored, err := srv.store.GetFilter(ctx, input.FiltID)
			if err != nil {
				slog.ErrorContext(ctx, "listing: load stored filter", "filt_id", input.FiltID, "error", err)
				return nil, huma.Error500InternalServerError("internal error")
			}
			if stored == nil {
				return nil, huma.Error404NotFound("filter not found")
			}
			if stored.ResourceType != "" && stored.ResourceType != res.String() {
				return nil, huma.Error400BadRequest("filter is for resource type " + stored.ResourceType)
			}
			// The stored term comes first so the ad-hoc term can override its
			// pagination and sorting.
			term = strings.TrimSpace(stored.Term + " " + term)
		}

		start := time.Now()
		result, err := srv.store.List(ctx, store.ListRequest{
			Resource: res,
			Trash:    input.Trash,
			Filter:   term,
			User:     user,
			MaxRows:  srv.cfg.MaxRowsPerPage,
			DefaultRows: func() int64 {
				return srv.store.RowsPerPage(ctx, user.ID, srv.cfg.DefaultRowsPerPage)
			},
		})
		listingDuration.WithLabelValues(res.String()).Observe(time.Since(start).Seconds())
		if err != nil {
			listingsTotal.WithLabelValues(res.String(), "error").Inc()
			slog.ErrorContext(ctx, "listing failed", "resource", res.String(), "error", err)
			return nil, huma.Error500InternalServerError("internal error")
		}
		listingsTotal.WithLabelValues(res.String(), "ok").Inc()

		out := &listOutput{}
		out.Body.Columns = result.Columns
		out.Body.Rows = result.Rows
		if out.Body.Rows == nil {
			out.Body.Rows = []store.Row{}
		}
		out.Body.Filtered = result.Filtered
		out.Body.Total = result.Total
		out.Body.Applied.First = result.Applied.Offset + 1
		out.Body.Applied.Rows = result.Applied.Limit
		return out, nil
	}
}

// registerListRoutes wires one listing endpoint per resource type.
func registerListRoutes(api huma.API, srv *Server) {
	for _, res := range listedResources {
		name := res.String()
		huma.Register(api, huma.Operation{
			OperationID: "list-" + name + "s",
			Method:      http.MethodGet,
			Path:        "/" + res.Table(),
			Summary:     "List " + name + "s",
			Description: "Paginated " + name + " listing with the full filter syntax.",
			Tags:        []string{"listings"},
		}, srv.listHandler(res))
	}
}
