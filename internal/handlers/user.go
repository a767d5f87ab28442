package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskboard/apiserver/internal/apperr"
	"github.com/taskboard/apiserver/internal/pagination"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
)

// UserRouter mounts the admin user management resource. It carries the
// full extension set: count, restore, permanent delete, bulk operations,
// search and export.
func UserRouter(users *services.UserService) chi.Router {
	resource := &Resource[types.User]{
		Service:  users.CRUDService,
		Sortable: []string{"created_at", "name", "email"},
		FromCreate: func(_ *http.Request, body []byte) (store.Values, error) {
			var req struct {
				Email    string `json:"email"`
				Name     string `json:"name"`
				Password string `json:"password"`
				Role     string `json:"role"`
			}
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, apperr.Validation("invalid request body")
			}
			req.Email = strings.ToLower(strings.TrimSpace(req.Email))
			req.Name = strings.TrimSpace(req.Name)
			if req.Email == "" || req.Name == "" || req.Password == "" {
				return nil, apperr.Validation("invalid user",
					apperr.Detail{Reason: "email, name and password are required", Code: "required"})
			}
			if req.Role == "" {
				req.Role = types.RoleUser
			}
			if req.Role != types.RoleUser && req.Role != types.RoleAdmin {
				return nil, apperr.Validation("invalid user",
					apperr.Detail{Field: "role", Reason: "unknown role", Code: "invalid_role"})
			}
			hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			return store.Values{
				"email":         req.Email,
				"name":          req.Name,
				"role":          req.Role,
				"password_hash": string(hashed),
			}, nil
		},
		FromPatch: func(_ *http.Request, body []byte) (store.Values, error) {
			var req struct {
				Name      *string `json:"name"`
				AvatarURL *string `json:"avatar_url"`
				Role      *string `json:"role"`
			}
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, apperr.Validation("invalid request body")
			}
			patch := store.Values{}
			if req.Name != nil {
				patch["name"] = strings.TrimSpace(*req.Name)
			}
			if req.AvatarURL != nil {
				patch["avatar_url"] = *req.AvatarURL
			}
			if req.Role != nil {
				if *req.Role != types.RoleUser && *req.Role != types.RoleAdmin {
					return nil, apperr.Validation("invalid user",
						apperr.Detail{Field: "role", Reason: "unknown role", Code: "invalid_role"})
				}
				patch["role"] = *req.Role
			}
			return patch, nil
		},
		Search: func(ctx context.Context, q string, _ store.Values, page pagination.Request) ([]types.User, pagination.Meta, error) {
			return users.Search(ctx, q, page)
		},
		Extensions: Extensions{
			Count:           true,
			Restore:         true,
			PermanentDelete: true,
			BulkCreate:      true,
			BulkDelete:      true,
			Search:          true,
			Export:          true,
		},
	}
	return resource.Routes()
}
