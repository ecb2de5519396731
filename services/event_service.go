package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/storage"
)

// EventService — чтение списка событий и админские правки.
type EventService interface {
	List() []models.Event
	GetByID(eventID string) (*models.Event, error)
	Update(ctx context.Context, eventID string, patch apiclient.EventPatch) (*models.Event, error)
	UploadPoster(ctx context.Context, eventID, contentType string, poster io.Reader) (string, error)
}

type eventService struct {
	api      *apiclient.Client
	cache    *cache.Store
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewEventService(api *apiclient.Client, cacheStore *cache.Store, uploader storage.FileUploader, logger *slog.Logger) EventService {
	return &eventService{api: api, cache: cacheStore, uploader: uploader, logger: logger}
}

func (s *eventService) List() []models.Event {
	events := s.cache.Events()
	for i := range events {
		s.populatePosterURL(&events[i])
	}
	return events
}

func (s *eventService) GetByID(eventID string) (*models.Event, error) {
	for _, e := range s.cache.Events() {
		if e.ID == eventID {
			s.populatePosterURL(&e)
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (s *eventService) Update(ctx context.Context, eventID string, patch apiclient.EventPatch) (*models.Event, error) {
	sess := apiclient.SessionFrom(ctx)
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}
	if !sess.CanManage(eventID) {
		return nil, fmt.Errorf("%w: event %s", ErrEventAccessDenied, eventID)
	}

	updated, err := s.api.PatchEvent(ctx, eventID, patch)
	if err != nil {
		return nil, err
	}

	// Перечитываем коллекцию целиком вместо локального патча.
	if err := s.cache.RefreshEvents(ctx); err != nil {
		s.logger.Warn("events refresh after update failed", slog.Any("error", err))
	}
	return updated, nil
}

// UploadPoster кладёт постер события в объектное хранилище и
// возвращает публичный URL.
func (s *eventService) UploadPoster(ctx context.Context, eventID, contentType string, poster io.Reader) (string, error) {
	sess := apiclient.SessionFrom(ctx)
	if sess == nil {
		return "", ErrAuthenticationRequired
	}
	if !sess.CanManage(eventID) {
		return "", fmt.Errorf("%w: event %s", ErrEventAccessDenied, eventID)
	}
	if s.uploader == nil {
		return "", fmt.Errorf("poster storage is not configured")
	}

	ext, err := extensionFromContentType(contentType)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("posters/%s%s", eventID, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, poster)
	if err != nil {
		return "", err
	}
	s.logger.Info("event poster uploaded",
		slog.String("event_id", eventID), slog.String("key", result.Key))
	return result.Location, nil
}

func (s *eventService) populatePosterURL(e *models.Event) {
	if s.uploader == nil || e.PosterKey == nil || *e.PosterKey == "" {
		return
	}
	if url := s.uploader.GetPublicURL(*e.PosterKey); url != "" {
		e.PosterURL = &url
	}
}
