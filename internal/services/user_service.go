package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/userhub/backend/internal/apperrors"
	"github.com/userhub/backend/internal/auth/service"
	"github.com/userhub/backend/internal/models"
)

// UserRepository is the interface that wraps the User table data access needed
// by the directory service.
type UserRepository interface {
	// Method GetByID retrieves a user by ID.
	//
	// Returns apperrors.ErrNotFound if no such user exists.
	GetByID(ctx context.Context, userID int) (*models.User, error)
	// Method GetAll retrieves all users, newest-created first.
	GetAll(ctx context.Context) ([]models.User, error)
	// Method ExistsByEmailExcluding checks if the email is used by a record
	// other than userID.
	ExistsByEmailExcluding(ctx context.Context, email string, userID int) (bool, error)
	// Method Update applies the non-nil patch fields to the user.
	//
	// Returns apperrors.ErrEmailTaken if the new email violates the uniqueness
	// constraint.
	Update(ctx context.Context, userID int, patch *models.UserPatch) error
	// Method Delete removes a user by ID.
	//
	// Returns apperrors.ErrNotFound if no such user exists.
	Delete(ctx context.Context, userID int) error
}

// userService implements the user directory operations
type userService struct {
	userRepo UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo UserRepository, logger *zap.Logger) *userService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// List returns all users as public views, newest-created first.
// Admin gating happens at the route level.
func (s *userService) List(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	publicUsers := make([]models.PublicUser, len(users))
	for i, user := range users {
		publicUsers[i] = user.Public()
	}

	return publicUsers, nil
}

// Get returns a single user, visible only to the record owner or an admin.
// The access check runs before the existence check so that a non-owner cannot
// probe which ids exist.
func (s *userService) Get(ctx context.Context, targetID int, caller *service.Claims) (*models.PublicUser, error) {
	if caller.Role != models.RoleAdmin && caller.UserID != targetID {
		return nil, apperrors.ErrForbidden
	}

	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	publicUser := user.Public()
	return &publicUser, nil
}

// Update applies a partial update to a user record.
//
// Only the record owner or an admin may call it; role changes are admin-only
// and rejected before any mutation. An empty patch returns the stored record
// untouched, update timestamp included.
func (s *userService) Update(ctx context.Context, targetID int, req *models.UpdateUserRequest, caller *service.Claims) (*models.PublicUser, error) {
	if caller.Role != models.RoleAdmin && caller.UserID != targetID {
		return nil, apperrors.ErrForbidden
	}

	existing, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if req.Role != nil && caller.Role != models.RoleAdmin {
		return nil, apperrors.ErrRoleChangeForbidden
	}
	if req.Role != nil && !req.Role.Valid() {
		return nil, apperrors.Validation("role must be %q or %q", models.RoleUser, models.RoleAdmin)
	}

	patch := &models.UserPatch{
		Role: req.Role,
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.Validation("name must not be empty")
		}
		patch.Name = &name
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			return nil, apperrors.Validation("email must not be empty")
		}
		if email != existing.Email {
			taken, err := s.userRepo.ExistsByEmailExcluding(ctx, email, targetID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperrors.ErrEmailTaken
			}
		}
		patch.Email = &email
	}

	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			return nil, apperrors.Validation("password must be at least %d characters", minPasswordLength)
		}
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash := string(passwordHash)
		patch.PasswordHash = &hash
	}

	// Nothing to change: return the record as stored, updated_at untouched
	if patch.Empty() {
		publicUser := existing.Public()
		return &publicUser, nil
	}

	if err := s.userRepo.Update(ctx, targetID, patch); err != nil {
		return nil, err
	}

	updated, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	publicUser := updated.Public()
	return &publicUser, nil
}

// Delete removes a user record. Admin gating happens at the route level.
func (s *userService) Delete(ctx context.Context, targetID int) error {
	return s.userRepo.Delete(ctx, targetID)
}
