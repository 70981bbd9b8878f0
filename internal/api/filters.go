// ABOUTME: Named filter endpoints: create, read, modify, trash, restore, delete.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/varden/scanmgr/internal/store"
)

type filterBody struct {
	Name         string `json:"name" minLength:"1" maxLength:"255" doc:"Filter name"`
	Comment      string `json:"comment,omitempty" maxLength:"1024"`
	Term         string `json:"term" maxLength:"4096" doc:"Filter term; stored canonicalized"`
	ResourceType string `json:"resource_type,omitempty" maxLength:"64" doc:"Resource type the filter applies to, empty for any"`
}

type createFilterInput struct {
	Body filterBody
}

type createFilterOutput struct {
	Body struct {
		UUID string `json:"uuid"`
	}
}

type filterIDInput struct {
	ID string `path:"id" maxLength:"64" doc:"Filter UUID"`
}

type getFilterOutput struct {
	Body struct {
		UUID         string `json:"uuid"`
		Name         string `json:"name"`
		Comment      string `json:"comment,omitempty"`
		Term         string `json:"term"`
		ResourceType string `json:"resource_type,omitempty"`
	}
}

type modifyFilterInput struct {
	ID   string `path:"id" maxLength:"64"`
	Body filterBody
}

func (srv *Server) filterParams(ctx context.Context, body filterBody, owner int64) store.CreateFilterParams {
	return store.CreateFilterParams{
		Name:         body.Name,
		Comment:      body.Comment,
		Term:         body.Term,
		ResourceType: body.ResourceType,
		Owner:        owner,
		MaxRows:      srv.cfg.MaxRowsPerPage,
		DefaultRows: func() int64 {
			user, _ := userFrom(ctx)
			return srv.store.RowsPerPage(ctx, user.ID, srv.cfg.DefaultRowsPerPage)
		},
	}
}

func (srv *Server) createFilterHandler(ctx context.Context, input *createFilterInput) (*createFilterOutput, error) {
	user, ok := userFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	id, err := srv.store.CreateFilter(ctx, srv.filterParams(ctx, input.Body, user.ID))
	if err != nil {
		if strings.Contains(err.Error(), "unknown filter resource type") {
			return nil, huma.Error400BadRequest(err.Error())
		}
		slog.ErrorContext(ctx, "create filter", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	out := &createFilterOutput{}
	out.Body.UUID = id
	return out, nil
}

func (srv *Server) getFilterHandler(ctx context.Context, input *filterIDInput) (*getFilterOutput, error) {
	f, err := srv.store.GetFilter(ctx, input.ID)
	if err != nil {
		slog.ErrorContext(ctx, "get filter", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	if f == nil {
		return nil, huma.Error404NotFound("filter not found")
	}
	out := &getFilterOutput{}
	out.Body.UUID = f.UUID
	out.Body.Name = f.Name
	out.Body.Comment = f.Comment
	out.Body.Term = f.Term
	out.Body.ResourceType = f.ResourceType
	return out, nil
}

func (srv *Server) modifyFilterHandler(ctx context.Context, input *modifyFilterInput) (*struct{}, error) {
	user, ok := userFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	err := srv.store.ModifyFilter(ctx, input.ID, srv.filterParams(ctx, input.Body, user.ID))
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			return nil, huma.Error404NotFound("filter not found")
		case strings.Contains(err.Error(), "unknown filter resource type"):
			return nil, huma.Error400BadRequest(err.Error())
		}
		slog.ErrorContext(ctx, "modify filter", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	return nil, nil
}

func (srv *Server) filterAction(action func(context.Context, string) error, verb string) func(context.Context, *filterIDInput) (*struct{}, error) {
	return func(ctx context.Context, input *filterIDInput) (*struct{}, error) {
		if err := action(ctx, input.ID); err != nil {
			if strings.Contains(err.Error(), "not found") {
				return nil, huma.Error404NotFound("filter not found")
			}
			slog.ErrorContext(ctx, verb+" filter", "error", err)
			return nil, huma.Error500InternalServerError("internal error")
		}
		return nil, nil
	}
}

// registerFilterRoutes wires the named filter endpoints.
func registerFilterRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-filter",
		Method:        http.MethodPost,
		Path:          "/filters",
		Summary:       "Create a named filter",
		Tags:          []string{"filters"},
		DefaultStatus: http.StatusCreated,
	}, srv.createFilterHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-filter",
		Method:      http.MethodGet,
		Path:        "/filters/{id}",
		Summary:     "Get a named filter",
		Tags:        []string{"filters"},
	}, srv.getFilterHandler)

	huma.Register(api, huma.Operation{
		OperationID: "modify-filter",
		Method:      http.MethodPut,
		Path:        "/filters/{id}",
		Summary:     "Modify a named filter",
		Tags:        []string{"filters"},
	}, srv.modifyFilterHandler)

	huma.Register(api, huma.Operation{
		OperationID: "trash-filter",
		Method:      http.MethodDelete,
		Path:        "/filters/{id}",
		Summary:     "Move a named filter to the trashcan",
		Tags:        []string{"filters"},
	}, srv.filterAction(srv.store.TrashFilter, "trash"))

	huma.Register(api, huma.Operation{
		OperationID: "restore-filter",
		Method:      http.MethodPost,
		Path:        "/filters/{id}/restore",
		Summary:     "Restore a trashed filter",
		Tags:        []string{"filters"},
	}, srv.filterAction(srv.store.RestoreFilter, "restore"))

	huma.Register(api, huma.Operation{
		OperationID: "delete-filter",
		Method:      http.MethodDelete,
		Path:        "/filters/{id}/trash",
		Summary:     "Permanently delete a trashed filter",
		Tags:        []string{"filters"},
	}, srv.filterAction(srv.store.DeleteFilter, "delete"))
}
