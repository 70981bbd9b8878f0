// ABOUTME: Per-user settings endpoints, including the Rows Per Page default
// ABOUTME: that backs the rows=-2 filter sentinel.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

type settingItem struct {
	UUID    string `json:"uuid"`
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`
	Value   string `json:"value"`
}

type listSettingsOutput struct {
	Body struct {
		Settings []settingItem `json:"settings"`
	}
}

func (srv *Server) listSettingsHandler(ctx context.Context, _ *struct{}) (*listSettingsOutput, error) {
	user, ok := userFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	settings, err := srv.store.ListSettings(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "list settings", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	out := &listSettingsOutput{}
	out.Body.Settings = make([]settingItem, 0, len(settings))
	for _, s := range settings {
		out.Body.Settings = append(out.Body.Settings, settingItem{
			UUID: s.UUID, Name: s.Name, Comment: s.Comment, Value: s.Value,
		})
	}
	return out, nil
}

type modifySettingInput struct {
	ID   string `path:"id" maxLength:"64" doc:"Setting UUID"`
	Body struct {
		Value string `json:"value" maxLength:"1024"`
	}
}

func (srv *Server) modifySettingHandler(ctx context.Context, input *modifySettingInput) (*struct{}, error) {
	user, ok := userFrom(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	if err := srv.store.ModifySetting(ctx, user.ID, input.ID, input.Body.Value); err != nil {
		if strings.Contains(err.Error(), "unknown setting") {
			return nil, huma.Error404NotFound("setting not found")
		}
		slog.ErrorContext(ctx, "modify setting", "error", err)
		return nil, huma.Error500InternalServerError("internal error")
	}
	return nil, nil
}

// registerSettingsRoutes wires the settings endpoints.
func registerSettingsRoutes(api huma.API, srv *Server) {
	huma.Register(api, huma.Operation{
		OperationID: "list-settings",
		Method:      http.MethodGet,
		Path:        "/settings",
		Summary:     "List the current user's settings",
		Tags:        []string{"settings"},
	}, srv.listSettingsHandler)

	huma.Register(api, huma.Operation{
		OperationID: "modify-setting",
		Method:      http.MethodPut,
		Path:        "/settings/{id}",
		Summary:     "Set the current user's value for a setting",
		Tags:        []string{"settings"},
	}, srv.modifySettingHandler)
}
