package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jorgejloo/educativo-api/internal/models"
	appErrors "github.com/jorgejloo/educativo-api/pkg/errors"
)

type configurationRepository interface {
	Get(ctx context.Context, key string) (*models.Configuration, error)
	List(ctx context.Context) ([]models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
}

// ConfigurationService exposes the key/value configuration store backing
// runtime settings such as the default semester price.
type ConfigurationService struct {
	repo   configurationRepository
	logger *zap.Logger
}

// NewConfigurationService constructs a ConfigurationService.
func NewConfigurationService(repo configurationRepository, logger *zap.Logger) *ConfigurationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigurationService{repo: repo, logger: logger}
}

// List returns every stored configuration entry.
func (s *ConfigurationService) List(ctx context.Context) ([]models.Configuration, error) {
	configs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configurations")
	}
	return configs, nil
}

// Get returns a single configuration entry.
func (s *ConfigurationService) Get(ctx context.Context, key string) (*models.Configuration, error) {
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration key not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration")
	}
	return cfg, nil
}

// Value reads a configuration value, falling back to the supplied default
// when the key is absent or the store is unreachable.
func (s *ConfigurationService) Value(ctx context.Context, key, fallback string) string {
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("configuration read degraded to default", zap.String("key", key), zap.Error(err))
		}
		return fallback
	}
	return cfg.Value
}

// Set creates or updates a configuration entry.
func (s *ConfigurationService) Set(ctx context.Context, key, value string, actor *models.JWTClaims) (*models.Configuration, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "configuration key is required")
	}
	cfg := &models.Configuration{Key: key, Value: value}
	if actor != nil {
		cfg.UpdatedBy = &actor.Username
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store configuration")
	}
	return cfg, nil
}
