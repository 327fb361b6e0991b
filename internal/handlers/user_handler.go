package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authMiddleware "github.com/userhub/backend/internal/auth/middleware"
	"github.com/userhub/backend/internal/auth/service"
	"github.com/userhub/backend/internal/models"
)

// UserService is the interface that wraps the user directory business logic.
type UserService interface {
	// Method List returns all users as public views, newest-created first.
	List(ctx context.Context) ([]models.PublicUser, error)
	// Method Get returns one user; only the record owner or an admin may see it.
	//
	// The access check runs before the existence check, so a non-owner receives
	// apperrors.ErrForbidden even for ids that do not exist.
	Get(ctx context.Context, targetID int, caller *service.Claims) (*models.PublicUser, error)
	// Method Update applies a partial update; role changes are admin-only.
	Update(ctx context.Context, targetID int, req *models.UpdateUserRequest, caller *service.Claims) (*models.PublicUser, error)
	// Method Delete removes a user. Returns apperrors.ErrNotFound if absent.
	Delete(ctx context.Context, targetID int) error
}

// UserHandler handles user directory HTTP requests
type UserHandler struct {
	BaseHandler
	userService UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: BaseHandler{logger: logger},
		userService: userService,
	}
}

// RegisterRoutes registers all user handler routes behind the auth middleware.
// List and delete additionally require the admin role.
// Note: This assumes the router is already scoped to /api/v1
func (h *UserHandler) RegisterRoutes(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAdmin)
			r.Get("/", h.List)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /users
// @Summary List all users
// @Description Return all user records, newest-created first, password hashes stripped. Admin only.
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.Response{data=[]models.PublicUser} "All users"
// @Failure 401 {object} models.Response "Missing, invalid or expired token"
// @Failure 403 {object} models.Response "Admin access required"
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, users)
}

// Get handles GET /users/{id}
// @Summary Get a user by ID
// @Description Return a single user record. Only the record owner or an admin may see it.
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.Response{data=models.PublicUser} "User found"
// @Failure 400 {object} models.Response "Invalid user ID"
// @Failure 401 {object} models.Response "Missing, invalid or expired token"
// @Failure 403 {object} models.Response "Access denied"
// @Failure 404 {object} models.Response "User not found"
// @Router /users/{id} [get]
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.parseID(w, r)
	if !ok {
		return
	}

	claims, ok := authMiddleware.GetClaims(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "missing or invalid authorization header")
		return
	}

	user, err := h.userService.Get(r.Context(), targetID, claims)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, user)
}

// Update handles PUT /users/{id}
// @Summary Update a user
// @Description Partially update a user record. Only supplied fields change; role changes require admin.
// @Tags users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "User ID"
// @Param request body models.UpdateUserRequest true "Fields to update"
// @Success 200 {object} models.Response{data=models.PublicUser} "Updated user"
// @Failure 400 {object} models.Response "Invalid ID, role value or password"
// @Failure 401 {object} models.Response "Missing, invalid or expired token"
// @Failure 403 {object} models.Response "Access denied or role change without admin"
// @Failure 404 {object} models.Response "User not found"
// @Failure 409 {object} models.Response "Email already in use"
// @Router /users/{id} [put]
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.parseID(w, r)
	if !ok {
		return
	}

	claims, ok := authMiddleware.GetClaims(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "missing or invalid authorization header")
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.Update(r.Context(), targetID, &req, claims)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, user)
}

// Delete handles DELETE /users/{id}
// @Summary Delete a user
// @Description Hard-delete a user record. Admin only.
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.Response "User deleted"
// @Failure 400 {object} models.Response "Invalid user ID"
// @Failure 401 {object} models.Response "Missing, invalid or expired token"
// @Failure 403 {object} models.Response "Admin access required"
// @Failure 404 {object} models.Response "User not found"
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), targetID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.Response{Success: true, Message: "user deleted successfully"})
}

// parseID extracts and validates the {id} route parameter
func (h *UserHandler) parseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idParam)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid user ID")
		return 0, false
	}
	return id, true
}
