package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
)

// ParticipantService — мутации статусов и посещаемости из back-office.
// Каждая мутация завершается рефрешем коллекции participants: смена
// статуса может менять счётчики слотов на сервере, локальный патч
// разъехался бы с истиной.
type ParticipantService interface {
	List() []models.Participant
	ChangeStatus(ctx context.Context, eventID, inventoID string, status models.ParticipantStatus) error
	ChangeAttendance(ctx context.Context, eventID, inventoID string, attended bool) error
	ChangeTeamStatus(ctx context.Context, eventID, teamName string, status models.ParticipantStatus) error
	ChangeTeamMemberAttendance(ctx context.Context, eventID, teamName, inventoID string, attended bool) error
}

type participantService struct {
	api    *apiclient.Client
	cache  *cache.Store
	logger *slog.Logger
}

func NewParticipantService(api *apiclient.Client, cacheStore *cache.Store, logger *slog.Logger) ParticipantService {
	return &participantService{api: api, cache: cacheStore, logger: logger}
}

func (s *participantService) List() []models.Participant {
	return s.cache.Participants()
}

func (s *participantService) authorize(ctx context.Context, eventID string) error {
	sess := apiclient.SessionFrom(ctx)
	if sess == nil {
		return ErrAuthenticationRequired
	}
	if !sess.CanManage(eventID) {
		return fmt.Errorf("%w: event %s", ErrEventAccessDenied, eventID)
	}
	return nil
}

func (s *participantService) ChangeStatus(ctx context.Context, eventID, inventoID string, status models.ParticipantStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.authorize(ctx, eventID); err != nil {
		return err
	}
	if err := s.api.UpdateParticipantStatus(ctx, eventID, inventoID, status); err != nil {
		return err
	}
	return s.refreshAfterMutation(ctx)
}

func (s *participantService) ChangeAttendance(ctx context.Context, eventID, inventoID string, attended bool) error {
	if err := s.authorize(ctx, eventID); err != nil {
		return err
	}
	if err := s.api.UpdateParticipantAttendance(ctx, eventID, inventoID, attended); err != nil {
		return err
	}
	return s.refreshAfterMutation(ctx)
}

func (s *participantService) ChangeTeamStatus(ctx context.Context, eventID, teamName string, status models.ParticipantStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.authorize(ctx, eventID); err != nil {
		return err
	}
	if err := s.api.UpdateTeamStatus(ctx, eventID, teamName, status); err != nil {
		return err
	}
	return s.refreshAfterMutation(ctx)
}

func (s *participantService) ChangeTeamMemberAttendance(ctx context.Context, eventID, teamName, inventoID string, attended bool) error {
	if err := s.authorize(ctx, eventID); err != nil {
		return err
	}
	if err := s.api.UpdateTeamMemberAttendance(ctx, eventID, teamName, inventoID, attended); err != nil {
		return err
	}
	return s.refreshAfterMutation(ctx)
}

func (s *participantService) refreshAfterMutation(ctx context.Context) error {
	if err := s.cache.RefreshParticipants(ctx); err != nil {
		// Мутация на сервере прошла; несвежий кэш — не повод отдавать
		// пользователю ошибку.
		s.logger.Warn("participants refresh after mutation failed", slog.Any("error", err))
	}
	if err := s.cache.RefreshEvents(ctx); err != nil {
		s.logger.Warn("events refresh after mutation failed", slog.Any("error", err))
	}
	return nil
}
