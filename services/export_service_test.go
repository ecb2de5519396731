package services

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/storage"
)

type fakeUploader struct {
	key         string
	contentType string
	body        []byte
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.key = key
	f.contentType = contentType
	f.body = body
	return &storage.UploadResult{Key: key, Location: "https://cdn.example/" + key}, nil
}

func (f *fakeUploader) Delete(ctx context.Context, key string) error { return nil }

func (f *fakeUploader) GetPublicURL(key string) string { return "https://cdn.example/" + key }

func newExportFixture(t *testing.T) (ExportService, *fakeUploader) {
	t.Helper()
	srv := jsonBackend(t, map[string]string{
		"/api/events/registrations/all": `[
			{"invento_id":"p1","event_id":"ev1","name":"Solo","college":"NIT","status":"CONFIRMED","attended":true,"amount_paid":100},
			{"invento_id":"lead1","event_id":"ev2","name":"Lead","status":"PENDING","team_name":"Byte Club","leader_id":"lead1","members":[{"invento_id":"m1"},{"invento_id":"m2"}]}
		]`,
	})
	_, cacheStore := newAPIAndCache(t, srv.URL)
	if err := cacheStore.RefreshParticipants(leaderCtx()); err != nil {
		t.Fatalf("warm participants: %v", err)
	}

	uploader := &fakeUploader{}
	return NewExportService(cacheStore, uploader, quietLogger()), uploader
}

func TestExportRegistrationsCSV(t *testing.T) {
	svc, uploader := newExportFixture(t)

	location, err := svc.ExportRegistrations(roleCtx(models.RoleMaster), "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(location, "https://cdn.example/exports/registrations-all-") {
		t.Errorf("location = %q", location)
	}
	if uploader.contentType != "text/csv" {
		t.Errorf("content type = %q", uploader.contentType)
	}

	records, err := csv.NewReader(strings.NewReader(string(uploader.body))).ReadAll()
	if err != nil {
		t.Fatalf("parse exported csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}
	if records[0][0] != "invento_id" {
		t.Errorf("header = %v", records[0])
	}
	if records[2][8] != "Byte Club" || records[2][9] != "m1;m2" {
		t.Errorf("team row = %v", records[2])
	}
}

func TestExportRegistrationsScopedToEvent(t *testing.T) {
	svc, uploader := newExportFixture(t)

	if _, err := svc.ExportRegistrations(roleCtx(models.RoleMaster), "ev1"); err != nil {
		t.Fatalf("export: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(uploader.body))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 || records[1][1] != "ev1" {
		t.Errorf("scoped export rows = %v", records)
	}
	if !strings.Contains(uploader.key, "registrations-ev1-") {
		t.Errorf("key = %q", uploader.key)
	}
}

func TestExportRegistrationsAccess(t *testing.T) {
	svc, _ := newExportFixture(t)

	if _, err := svc.ExportRegistrations(roleCtx(models.RoleAdmin), ""); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("plain admin: got %v, want ErrForbiddenOperation", err)
	}

	ctx := roleCtx(models.RoleAdmin, func(s *models.Session) { s.Team = models.RegistrationTeam })
	if _, err := svc.ExportRegistrations(ctx, ""); err != nil {
		t.Errorf("registration team: %v", err)
	}

	if _, err := svc.ExportRegistrations(context.Background(), ""); !errors.Is(err, ErrAuthenticationRequired) {
		t.Errorf("anonymous: got %v, want ErrAuthenticationRequired", err)
	}
}
