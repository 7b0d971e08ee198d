package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jorgejloo/educativo-api/internal/models"
	appErrors "github.com/jorgejloo/educativo-api/pkg/errors"
)

type credentialRepository interface {
	UpsertCredential(ctx context.Context, user *models.User) error
}

// EnsureCredentialRequest creates or resets an application credential.
// Used by the create-admin command; safe to run repeatedly.
type EnsureCredentialRequest struct {
	Username string          `validate:"required"`
	Password string          `validate:"required,min=6"`
	FullName string          `validate:"required"`
	Role     models.UserRole `validate:"required,oneof=ADMIN STAFF"`
}

// UserService manages application credentials.
type UserService struct {
	repo      credentialRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo credentialRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// EnsureCredential creates the user if the username is new, otherwise
// resets its password and role. The plaintext password is hashed here
// and never stored or logged.
func (s *UserService) EnsureCredential(ctx context.Context, req EnsureCredentialRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username, password, name and role are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       true,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.repo.UpsertCredential(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save credential")
	}

	s.logger.Info("credential ensured",
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))
	return user, nil
}
