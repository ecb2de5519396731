package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/store"
)

// Notifier получает уведомления об обновлении коллекций.
// Реализуется websocket-хабом; nil-хаб допустим.
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

// RefreshMessage — полезная нагрузка уведомления live-хаба.
type RefreshMessage struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	At         time.Time `json:"at"`
}

// DashboardRoom — комната хаба, куда уходят уведомления о рефрешах.
const DashboardRoom = "dashboard"

// Store — локальное зеркало коллекций бэкенда. Политика проста:
// каждая коллекция заменяется целиком, merge не делается. Перекрытие
// двух рефрешей одной коллекции даёт last-write-wins, это принято.
type Store struct {
	mu      sync.RWMutex
	snap    *models.Snapshot
	api     *apiclient.Client
	persist store.SnapshotStore
	hub     Notifier
	logger  *slog.Logger
}

func New(api *apiclient.Client, persist store.SnapshotStore, hub Notifier, logger *slog.Logger) *Store {
	return &Store{
		snap:    models.NewSnapshot(),
		api:     api,
		persist: persist,
		hub:     hub,
		logger:  logger,
	}
}

// Load восстанавливает снапшот с диска. Отсутствие или устаревшая
// схема — не ошибка: стартуем с пустым зеркалом.
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.persist.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshot) {
			s.logger.Info("no usable cache snapshot, starting empty", slog.Any("reason", err))
			return nil
		}
		return fmt.Errorf("failed to load cache snapshot: %w", err)
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	s.logger.Info("cache snapshot rehydrated",
		slog.Int("events", len(snap.Events)),
		slog.Int("participants", len(snap.Participants)),
		slog.Time("updated_at", snap.UpdatedAt))
	return nil
}

// Snapshot возвращает глубокую копию текущего зеркала.
func (s *Store) Snapshot() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

func (s *Store) Events() []models.Event {
	return s.Snapshot().Events
}

func (s *Store) Participants() []models.Participant {
	return s.Snapshot().Participants
}

func (s *Store) Settings() *models.GlobalSettings {
	return s.Snapshot().Settings
}

// replace атомарно подменяет срез коллекции, персистит снапшот и
// уведомляет хаб. Ошибка персиста не откатывает зеркало: диск — это
// тоже кэш.
func (s *Store) replace(ctx context.Context, collection string, mutate func(*models.Snapshot)) {
	s.mu.Lock()
	mutate(s.snap)
	s.snap.UpdatedAt = time.Now().UTC()
	clone := s.snap.Clone()
	s.mu.Unlock()

	if err := s.persist.Save(ctx, clone); err != nil {
		s.logger.Error("failed to persist cache snapshot",
			slog.String("collection", collection), slog.Any("error", err))
	}
	if s.hub != nil {
		s.hub.BroadcastToRoom(DashboardRoom, RefreshMessage{
			Type:       "CACHE_REFRESHED",
			Collection: collection,
			At:         clone.UpdatedAt,
		})
	}
}

func (s *Store) RefreshEvents(ctx context.Context) error {
	events, err := s.api.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("refresh events: %w", err)
	}
	s.replace(ctx, "events", func(snap *models.Snapshot) { snap.Events = events })
	return nil
}

func (s *Store) RefreshParticipants(ctx context.Context) error {
	participants, err := s.api.ListRegistrations(ctx)
	if err != nil {
		return fmt.Errorf("refresh participants: %w", err)
	}
	s.replace(ctx, "participants", func(snap *models.Snapshot) { snap.Participants = participants })
	return nil
}

func (s *Store) RefreshAdmins(ctx context.Context) error {
	admins, err := s.api.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("refresh admins: %w", err)
	}
	s.replace(ctx, "admins", func(snap *models.Snapshot) { snap.Admins = admins })
	return nil
}

func (s *Store) RefreshSettings(ctx context.Context) error {
	settings, err := s.api.GetGlobalSettings(ctx)
	if err != nil {
		return fmt.Errorf("refresh settings: %w", err)
	}
	s.replace(ctx, "settings", func(snap *models.Snapshot) { snap.Settings = settings })
	return nil
}

func (s *Store) RefreshActivity(ctx context.Context) error {
	activity, err := s.api.ListActivity(ctx)
	if err != nil {
		return fmt.Errorf("refresh activity: %w", err)
	}
	s.replace(ctx, "activity", func(snap *models.Snapshot) { snap.Activity = activity })
	return nil
}

func (s *Store) RefreshAnalytics(ctx context.Context) error {
	overview, err := s.api.AnalyticsOverview(ctx)
	if err != nil {
		return fmt.Errorf("refresh analytics overview: %w", err)
	}
	detailed, err := s.api.AnalyticsDetailed(ctx)
	if err != nil {
		return fmt.Errorf("refresh analytics detailed: %w", err)
	}
	s.replace(ctx, "analytics", func(snap *models.Snapshot) {
		snap.Overview = overview
		snap.Detailed = detailed
	})
	return nil
}

// RefreshAll запускает все рефреши параллельно. Падение одного не
// мешает остальным: ошибки логируются, собираются и отдаются joined.
func (s *Store) RefreshAll(ctx context.Context) error {
	type namedRefresh struct {
		name string
		fn   func(context.Context) error
	}
	refreshes := []namedRefresh{
		{"events", s.RefreshEvents},
		{"participants", s.RefreshParticipants},
		{"admins", s.RefreshAdmins},
		{"settings", s.RefreshSettings},
		{"activity", s.RefreshActivity},
		{"analytics", s.RefreshAnalytics},
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range refreshes {
		r := r
		g.Go(func() error {
			if err := r.fn(gctx); err != nil {
				s.logger.Error("collection refresh failed",
					slog.String("collection", r.name), slog.Any("error", err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			// Никогда не возвращаем ошибку в группу: bulk refresh
			// не должен отменять соседние подзапросы.
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
