package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
)

// SettingsService — чтение/запись глобальных настроек фестиваля.
// Запись сквозная: сначала бэкенд, затем рефреш коллекции settings —
// локально ничего не патчим.
type SettingsService interface {
	Get(ctx context.Context) (*models.GlobalSettings, error)
	Update(ctx context.Context, settings models.GlobalSettings) (*models.GlobalSettings, error)
}

type settingsService struct {
	api    *apiclient.Client
	cache  *cache.Store
	logger *slog.Logger
}

func NewSettingsService(api *apiclient.Client, cacheStore *cache.Store, logger *slog.Logger) SettingsService {
	return &settingsService{api: api, cache: cacheStore, logger: logger}
}

func (s *settingsService) Get(ctx context.Context) (*models.GlobalSettings, error) {
	if settings := s.cache.Settings(); settings != nil {
		return settings, nil
	}
	if err := s.cache.RefreshSettings(ctx); err != nil {
		return nil, err
	}
	settings := s.cache.Settings()
	if settings == nil {
		return nil, ErrNotFound
	}
	return settings, nil
}

func (s *settingsService) Update(ctx context.Context, settings models.GlobalSettings) (*models.GlobalSettings, error) {
	sess := apiclient.SessionFrom(ctx)
	if sess == nil || sess.Role != models.RoleMaster {
		return nil, ErrForbiddenOperation
	}
	if !settings.PassPolicy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPassPolicy, settings.PassPolicy)
	}

	if err := s.api.PutGlobalSettings(ctx, settings); err != nil {
		return nil, err
	}
	if err := s.cache.RefreshSettings(ctx); err != nil {
		s.logger.Warn("settings refresh after update failed", slog.Any("error", err))
	}

	s.logger.Info("global settings updated",
		slog.String("by", sess.InventoID),
		slog.Bool("registrations_open", settings.RegistrationsOpen),
		slog.String("pass_policy", string(settings.PassPolicy)))
	return s.cache.Settings(), nil
}
