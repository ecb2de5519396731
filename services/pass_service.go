package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/pass"
)

// PassService выпускает QR-пассы и проверяет их на входе.
type PassService interface {
	Issue(ctx context.Context) (string, error)
	Validate(ctx context.Context, payload string) (*PassValidation, error)
}

// PassValidation — результат проверки пасса волонтёром.
type PassValidation struct {
	User     models.UserSummary   `json:"user"`
	Entries  []models.Participant `json:"entries"`
	Admitted bool                 `json:"admitted"`
}

type passService struct {
	api    *apiclient.Client
	cache  *cache.Store
	logger *slog.Logger
}

func NewPassService(api *apiclient.Client, cacheStore *cache.Store, logger *slog.Logger) PassService {
	return &passService{api: api, cache: cacheStore, logger: logger}
}

// Issue выдаёт пасс текущей сессии с учётом политики раздачи.
func (s *passService) Issue(ctx context.Context) (string, error) {
	sess := apiclient.SessionFrom(ctx)
	if sess == nil {
		return "", ErrAuthenticationRequired
	}

	settings := s.cache.Settings()
	if settings != nil {
		switch settings.PassPolicy {
		case models.PassClosed:
			return "", ErrPassesClosed
		case models.PassTypewise:
			// Typewise: пасс только тем, у кого есть подтверждённая заявка.
			if !s.hasConfirmedEntry(sess.InventoID) {
				return "", ErrPassesClosed
			}
		}
	}

	payload := pass.Payload{InventoID: sess.InventoID, Email: sess.Email}
	return payload.Encode(), nil
}

// Validate разбирает пасс, резолвит пользователя на бэкенде и
// собирает его заявки из кэша.
func (s *passService) Validate(ctx context.Context, raw string) (*PassValidation, error) {
	payload, err := pass.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, err)
	}

	user, err := s.api.ValidateUser(ctx, payload.InventoID)
	if err != nil {
		return nil, err
	}

	validation := &PassValidation{User: *user}
	for _, p := range s.cache.Participants() {
		if p.InventoID == payload.InventoID || p.LeaderID == payload.InventoID {
			validation.Entries = append(validation.Entries, p)
			if p.Status == models.StatusConfirmed {
				validation.Admitted = true
			}
		}
	}

	s.logger.Info("pass validated",
		slog.String("invento_id", payload.InventoID),
		slog.Bool("admitted", validation.Admitted),
		slog.Int("entries", len(validation.Entries)))
	return validation, nil
}

func (s *passService) hasConfirmedEntry(inventoID string) bool {
	for _, p := range s.cache.Participants() {
		if (p.InventoID == inventoID || p.LeaderID == inventoID) && p.Status == models.StatusConfirmed {
			return true
		}
	}
	return false
}
