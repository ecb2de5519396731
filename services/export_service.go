package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/storage"
)

// ExportService рендерит CSV-реестр заявок и выгружает его в
// объектное хранилище; обратно отдаётся публичная ссылка.
type ExportService interface {
	ExportRegistrations(ctx context.Context, eventID string) (string, error)
}

type exportService struct {
	cache    *cache.Store
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewExportService(cacheStore *cache.Store, uploader storage.FileUploader, logger *slog.Logger) ExportService {
	return &exportService{cache: cacheStore, uploader: uploader, logger: logger}
}

// ExportRegistrations собирает реестр по событию (или по всем,
// если eventID пуст). Только master и Registration-команда.
func (s *exportService) ExportRegistrations(ctx context.Context, eventID string) (string, error) {
	sess := apiclient.SessionFrom(ctx)
	if sess == nil {
		return "", ErrAuthenticationRequired
	}
	if sess.Role != models.RoleMaster && sess.Team != models.RegistrationTeam {
		return "", ErrForbiddenOperation
	}
	if s.uploader == nil {
		return "", fmt.Errorf("export storage is not configured")
	}

	participants := s.cache.Participants()
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	header := []string{"invento_id", "event_id", "name", "college", "status", "attended", "payment_status", "amount_paid", "team_name", "members"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}

	rows := 0
	for _, p := range participants {
		if eventID != "" && p.EventID != eventID {
			continue
		}
		memberIDs := make([]string, 0, len(p.Members))
		for _, m := range p.Members {
			memberIDs = append(memberIDs, m.InventoID)
		}
		record := []string{
			p.InventoID,
			p.EventID,
			p.Name,
			p.College,
			string(p.Status),
			strconv.FormatBool(p.Attended),
			p.PaymentStatus,
			strconv.Itoa(p.AmountPaid),
			p.TeamName,
			strings.Join(memberIDs, ";"),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
		rows++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	scope := eventID
	if scope == "" {
		scope = "all"
	}
	key := fmt.Sprintf("exports/registrations-%s-%s.csv", scope, time.Now().UTC().Format("20060102-150405"))

	result, err := s.uploader.Upload(ctx, key, "text/csv", buf)
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	s.logger.Info("registrations exported",
		slog.String("scope", scope),
		slog.Int("rows", rows),
		slog.String("key", result.Key))
	return result.Location, nil
}
