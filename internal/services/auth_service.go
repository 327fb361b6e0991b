package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/userhub/backend/internal/apperrors"
	"github.com/userhub/backend/internal/auth/service"
	"github.com/userhub/backend/internal/models"
)

// minPasswordLength is the minimum accepted password length
const minPasswordLength = 6

// AuthUserRepository is the interface that wraps the User table data access
// needed by the auth flow.
type AuthUserRepository interface {
	// Method Create inserts a new user and fills in the generated ID and timestamps.
	//
	// Returns apperrors.ErrEmailTaken if the email violates the uniqueness constraint.
	Create(ctx context.Context, user *models.User) error
	// Method GetByID retrieves a user by ID.
	//
	// Returns apperrors.ErrNotFound if no such user exists.
	GetByID(ctx context.Context, userID int) (*models.User, error)
	// Method GetByEmail retrieves a user by email.
	//
	// Returns apperrors.ErrNotFound if no such user exists.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method Count returns the total number of user records.
	Count(ctx context.Context) (int, error)
}

// authService implements the registration, login and refresh flows
type authService struct {
	userRepo     AuthUserRepository
	tokenService *service.TokenService
	logger       *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo AuthUserRepository, tokenService *service.TokenService, logger *zap.Logger) *authService {
	return &authService{
		userRepo:     userRepo,
		tokenService: tokenService,
		logger:       logger,
	}
}

// Register creates a new user account and returns tokens plus the public view.
//
// The first record ever created is granted the admin role; this is the only
// path by which admin is auto-granted. The count check-then-act is not atomic:
// two truly concurrent first registrations could both observe an empty store
// and both become admin. Known gap, accepted for this system.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)

	if name == "" || email == "" || req.Password == "" {
		return nil, apperrors.Validation("name, email and password are required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperrors.Validation("password must be at least %d characters", minPasswordLength)
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrEmailTaken
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := models.RoleUser
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueAuthResponse(user)
}

// Login authenticates a user by email and password.
//
// An unknown email and a wrong password yield the same failure so that
// accounts cannot be enumerated from the response.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issueAuthResponse(user)
}

// Refresh validates a refresh token and rotates the token pair.
//
// The user is re-fetched so that stale claims never outlive the record, and
// the new pair is issued from the current record. The superseded refresh token
// is not blacklisted; it stays honorable until its natural expiry because no
// revocation list exists.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPairResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperrors.Validation("refreshToken is required")
	}

	claims, err := s.tokenService.Verify(refreshToken, service.KindRefresh)
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			return nil, apperrors.ErrRefreshExpired
		}
		return nil, apperrors.ErrRefreshInvalid
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUserGone
		}
		return nil, err
	}

	accessToken, newRefreshToken, err := s.tokenService.IssuePair(service.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		s.logger.Error("failed to issue token pair", zap.Error(err), zap.Int("userID", user.ID))
		return nil, err
	}

	return &models.TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// issueAuthResponse generates a token pair from the user's current state
func (s *authService) issueAuthResponse(user *models.User) (*models.AuthResponse, error) {
	accessToken, refreshToken, err := s.tokenService.IssuePair(service.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		s.logger.Error("failed to issue token pair", zap.Error(err), zap.Int("userID", user.ID))
		return nil, err
	}

	return &models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}
