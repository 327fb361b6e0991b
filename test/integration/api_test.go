package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	authMiddleware "github.com/userhub/backend/internal/auth/middleware"
	authService "github.com/userhub/backend/internal/auth/service"
	"github.com/userhub/backend/internal/config"
	"github.com/userhub/backend/internal/handlers"
	"github.com/userhub/backend/internal/models"
	"github.com/userhub/backend/internal/repositories"
	"github.com/userhub/backend/internal/services"
)

var (
	testDB     *sql.DB
	testRouter chi.Router
	testLogger *zap.Logger
)

// envelope mirrors the response wrapper with the payload left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// cleanupUsers empties the users table so first-registration semantics start fresh
func cleanupUsers(t *testing.T, db *sql.DB) {
	t.Helper()

	_, err := db.Exec("DELETE FROM users")
	require.NoError(t, err, "Failed to clear test data")

	_, err = db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	require.NoError(t, err, "Failed to reset AUTO_INCREMENT")
}

// setupTestRouter creates a test router with all handlers
func setupTestRouter(db *sql.DB, logger *zap.Logger) chi.Router {
	tokenService := authService.NewTokenService(
		"test-access-secret", "test-refresh-secret",
		15*time.Minute, 168*time.Hour,
	)

	userRepo := repositories.NewUserRepository(db, logger)
	authSvc := services.NewAuthService(userRepo, tokenService, logger)
	userSvc := services.NewUserService(userRepo, logger)

	authHandler := handlers.NewAuthHandler(authSvc, logger)
	userHandler := handlers.NewUserHandler(userSvc, logger)
	healthHandler := handlers.NewHealthHandler(logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		healthHandler.RegisterRoutes(r)
		authHandler.RegisterRoutes(r)
		userHandler.RegisterRoutes(r, authMiddleware.AuthMiddleware(tokenService))
	})

	return r
}

// TestMain sets up and tears down the test environment
func TestMain(m *testing.M) {
	var err error
	testLogger, err = zap.NewDevelopment()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.LoadTestConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load test config: %v", err))
	}
	dsn := cfg.DSN()
	if cfg.Database.Host == "" {
		// Default test database connection
		dsn = "root:password@tcp(localhost:3306)/userhub_test?parseTime=true&charset=utf8mb4"
	}

	testDB, err = sql.Open("mysql", dsn)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}

	if err = testDB.Ping(); err != nil {
		panic(fmt.Sprintf("Failed to ping test database: %v", err))
	}

	setupTestSchemaForMain(testDB)

	testRouter = setupTestRouter(testDB, testLogger)

	code := m.Run()

	if testDB != nil {
		testDB.Close()
	}
	os.Exit(code)
}

// setupTestSchemaForMain creates the test database schema (for TestMain)
func setupTestSchemaForMain(db *sql.DB) {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id INT PRIMARY KEY AUTO_INCREMENT,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role ENUM('user', 'admin') NOT NULL DEFAULT 'user',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_users_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
	`

	db.Exec(query)
}

// doRequest performs a request against the test router, optionally with a JSON
// body and a bearer token
func doRequest(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	testRouter.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

// register creates an account through the API and returns the auth payload
func register(t *testing.T, name, email, password string) models.AuthResponse {
	t.Helper()

	w := doRequest(t, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Success)

	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func TestIntegration_Register(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	cleanupUsers(t, testDB)
	defer cleanupUsers(t, testDB)

	t.Run("first user becomes admin", func(t *testing.T) {
		resp := register(t, "Admin", "admin@example.com", "Admin123!")

		assert.Equal(t, models.RoleAdmin, resp.User.Role)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
	})

	t.Run("second user gets the user role", func(t *testing.T) {
		resp := register(t, "Alice", "alice@example.com", "Alice123!")

		assert.Equal(t, models.RoleUser, resp.User.Role)
	})

	t.Run("response never carries password material", func(t *testing.T) {
		w := doRequest(t, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
			Name:     "Bob",
			Email:    "bob@example.com",
			Password: "Bob123!!",
		}, "")

		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
		assert.NotContains(t, w.Body.String(), "Bob123!!")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		w := doRequest(t, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
			Name:     "Other Alice",
			Email:    "alice@example.com",
			Password: "Other123!",
		}, "")

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Success)
		assert.Equal(t, "email already registered", env.Message)
	})

	t.Run("short password", func(t *testing.T) {
		w := doRequest(t, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
			Name:     "Carol",
			Email:    "carol@example.com",
			Password: "abc",
		}, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, decodeEnvelope(t, w).Success)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := doRequest(t, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
			Email: "dave@example.com",
		}, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIntegration_Login(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	cleanupUsers(t, testDB)
	defer cleanupUsers(t, testDB)

	register(t, "Alice", "alice@example.com", "Alice123!")

	t.Run("success", func(t *testing.T) {
		w := doRequest(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
			Email:    "alice@example.com",
			Password: "Alice123!",
		}, "")

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		require.True(t, env.Success)

		var resp models.AuthResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, "alice@example.com", resp.User.Email)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		wrongPass := doRequest(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
			Email:    "alice@example.com",
			Password: "not-the-password",
		}, "")
		unknownEmail := doRequest(t, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
			Email:    "nobody@example.com",
			Password: "Alice123!",
		}, "")

		assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
		assert.Equal(t, wrongPass.Body.String(), unknownEmail.Body.String())
	})
}

func TestIntegration_Refresh(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	cleanupUsers(t, testDB)
	defer cleanupUsers(t, testDB)

	admin := register(t, "Admin", "admin@example.com", "Admin123!")
	alice := register(t, "Alice", "alice@example.com", "Alice123!")

	t.Run("valid refresh token rotates the pair", func(t *testing.T) {
		w := doRequest(t, http.MethodPost, "/api/v1/auth/refresh", models.RefreshRequest{
			RefreshToken: alice.RefreshToken,
		}, "")

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		require.True(t, env.Success)

		var resp models.TokenPairResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)

		// The new access token must work against a protected route
		protected := doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", alice.User.ID), nil, resp.AccessToken)
		assert.Equal(t, http.StatusOK, protected.Code)
	})

	t.Run("access token rejected as refresh", func(t *testing.T) {
		w := doRequest(t, http.MethodPost, "/api/v1/auth/refresh", models.RefreshRequest{
			RefreshToken: alice.AccessToken,
		}, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := doRequest(t, http.MethodPost, "/api/v1/auth/refresh", models.RefreshRequest{
			RefreshToken: "not.a.token",
		}, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refresh token of a deleted user", func(t *testing.T) {
		victim := register(t, "Victim", "victim@example.com", "Victim123!")

		deleted := doRequest(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", victim.User.ID), nil, admin.AccessToken)
		require.Equal(t, http.StatusOK, deleted.Code)

		w := doRequest(t, http.MethodPost, "/api/v1/auth/refresh", models.RefreshRequest{
			RefreshToken: victim.RefreshToken,
		}, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "user no longer exists", decodeEnvelope(t, w).Message)
	})
}

func TestIntegration_UserDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	cleanupUsers(t, testDB)
	defer cleanupUsers(t, testDB)

	admin := register(t, "Admin", "admin@example.com", "Admin123!")
	alice := register(t, "Alice", "alice@example.com", "Alice123!")
	bob := register(t, "Bob", "bob@example.com", "Bob123!!")

	t.Run("list requires admin", func(t *testing.T) {
		w := doRequest(t, http.MethodGet, "/api/v1/users", nil, alice.AccessToken)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("list as admin returns newest first", func(t *testing.T) {
		w := doRequest(t, http.MethodGet, "/api/v1/users", nil, admin.AccessToken)

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)

		var users []models.PublicUser
		require.NoError(t, json.Unmarshal(env.Data, &users))
		require.Len(t, users, 3)
		assert.Equal(t, bob.User.ID, users[0].ID)
		assert.Equal(t, admin.User.ID, users[2].ID)
	})

	t.Run("list without token", func(t *testing.T) {
		w := doRequest(t, http.MethodGet, "/api/v1/users", nil, "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("owner reads own record", func(t *testing.T) {
		w := doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", alice.User.ID), nil, alice.AccessToken)

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)

		var user models.PublicUser
		require.NoError(t, json.Unmarshal(env.Data, &user))
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("non-owner is forbidden, even for a missing id", func(t *testing.T) {
		other := doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", bob.User.ID), nil, alice.AccessToken)
		missing := doRequest(t, http.MethodGet, "/api/v1/users/99999", nil, alice.AccessToken)

		assert.Equal(t, http.StatusForbidden, other.Code)
		assert.Equal(t, http.StatusForbidden, missing.Code)
	})

	t.Run("admin reads any record and sees missing ids", func(t *testing.T) {
		other := doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", bob.User.ID), nil, admin.AccessToken)
		missing := doRequest(t, http.MethodGet, "/api/v1/users/99999", nil, admin.AccessToken)

		assert.Equal(t, http.StatusOK, other.Code)
		assert.Equal(t, http.StatusNotFound, missing.Code)
	})

	t.Run("invalid id parameter", func(t *testing.T) {
		w := doRequest(t, http.MethodGet, "/api/v1/users/abc", nil, admin.AccessToken)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("owner updates own name", func(t *testing.T) {
		name := "Alicia"
		w := doRequest(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", alice.User.ID),
			models.UpdateUserRequest{Name: &name}, alice.AccessToken)

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)

		var user models.PublicUser
		require.NoError(t, json.Unmarshal(env.Data, &user))
		assert.Equal(t, "Alicia", user.Name)
	})

	t.Run("non-admin cannot change roles", func(t *testing.T) {
		role := models.RoleAdmin
		w := doRequest(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", alice.User.ID),
			models.UpdateUserRequest{Role: &role}, alice.AccessToken)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin promotes a user", func(t *testing.T) {
		role := models.RoleAdmin
		w := doRequest(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", bob.User.ID),
			models.UpdateUserRequest{Role: &role}, admin.AccessToken)

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)

		var user models.PublicUser
		require.NoError(t, json.Unmarshal(env.Data, &user))
		assert.Equal(t, models.RoleAdmin, user.Role)
	})

	t.Run("update to a taken email conflicts", func(t *testing.T) {
		email := "bob@example.com"
		w := doRequest(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", alice.User.ID),
			models.UpdateUserRequest{Email: &email}, alice.AccessToken)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("delete requires admin", func(t *testing.T) {
		w := doRequest(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", bob.User.ID), nil, alice.AccessToken)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin deletes a user", func(t *testing.T) {
		victim := register(t, "Victim", "victim@example.com", "Victim123!")

		w := doRequest(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", victim.User.ID), nil, admin.AccessToken)

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)
		assert.Equal(t, "user deleted successfully", env.Message)

		gone := doRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", victim.User.ID), nil, admin.AccessToken)
		assert.Equal(t, http.StatusNotFound, gone.Code)
	})

	t.Run("deleting a missing user", func(t *testing.T) {
		w := doRequest(t, http.MethodDelete, "/api/v1/users/99999", nil, admin.AccessToken)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestIntegration_Health(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	w := doRequest(t, http.MethodGet, "/api/v1/health", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}
