package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/userhub/backend/internal/models"
)

// AuthService is the interface that wraps the authentication business logic.
type AuthService interface {
	// Method Register validates the request, creates the user and returns both
	// tokens plus the public user view.
	//
	// Returns a validation error for missing fields or a short password, and
	// apperrors.ErrEmailTaken for a duplicate email.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	// Method Login authenticates by email and password and returns both tokens
	// plus the public user view.
	//
	// An unknown email and a wrong password yield the same
	// apperrors.ErrInvalidCredentials failure.
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	// Method Refresh rotates the token pair for a valid refresh token.
	//
	// Expired and invalid tokens yield distinct failures; a token for a deleted
	// user yields apperrors.ErrUserGone.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPairResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{logger: logger},
		authService: authService,
	}
}

// RegisterRoutes registers all auth handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
	})
}

// Register handles POST /auth/register
// @Summary Register a new user
// @Description Register a new user with name, email and password. The first user ever registered becomes admin.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration request"
// @Success 201 {object} models.Response{data=models.AuthResponse} "User registered"
// @Failure 400 {object} models.Response "Missing fields or short password"
// @Failure 409 {object} models.Response "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondSuccess(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login
// @Summary Login user
// @Description Authenticate with email and password and receive an access/refresh token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 200 {object} models.Response{data=models.AuthResponse} "Login successful"
// @Failure 400 {object} models.Response "Missing fields"
// @Failure 401 {object} models.Response "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh
// @Summary Refresh the token pair
// @Description Exchange a valid refresh token for a new access/refresh token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Refresh request"
// @Success 200 {object} models.Response{data=models.TokenPairResponse} "Tokens refreshed"
// @Failure 400 {object} models.Response "Missing refresh token"
// @Failure 401 {object} models.Response "Expired or invalid refresh token, or user no longer exists"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondSuccess(w, http.StatusOK, resp)
}
