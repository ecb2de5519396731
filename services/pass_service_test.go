package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
)

func warmPassFixture(t *testing.T, policy models.PassPolicy) (PassService, *cache.Store) {
	t.Helper()
	srv := jsonBackend(t, map[string]string{
		"/api/admins/settings/global": `{"registrations_open":true,"pass_policy":"` + string(policy) + `"}`,
		"/api/events/registrations/all": `[
			{"invento_id":"INV1","event_id":"ev1","status":"CONFIRMED"},
			{"invento_id":"INV2","event_id":"ev1","status":"PENDING"},
			{"invento_id":"lead1","event_id":"ev2","status":"CONFIRMED","team_name":"Squad","leader_id":"INV7"}
		]`,
		"/api/users/validate/INV1": `{"invento_id":"INV1","name":"Confirmed User"}`,
		"/api/users/validate/INV2": `{"invento_id":"INV2","name":"Pending User"}`,
	})

	api, cacheStore := newAPIAndCache(t, srv.URL)
	ctx := leaderCtx()
	if err := cacheStore.RefreshSettings(ctx); err != nil {
		t.Fatalf("warm settings: %v", err)
	}
	if err := cacheStore.RefreshParticipants(ctx); err != nil {
		t.Fatalf("warm participants: %v", err)
	}
	return NewPassService(api, cacheStore, quietLogger()), cacheStore
}

func TestIssuePassToAll(t *testing.T) {
	svc, _ := warmPassFixture(t, models.PassToAll)

	payload, err := svc.Issue(roleCtx(models.RoleParticipant))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(payload, "INVENTO:INV1:") {
		t.Errorf("payload = %q", payload)
	}
}

func TestIssuePassRequiresSession(t *testing.T) {
	svc, _ := warmPassFixture(t, models.PassToAll)

	if _, err := svc.Issue(context.Background()); !errors.Is(err, ErrAuthenticationRequired) {
		t.Errorf("got %v, want ErrAuthenticationRequired", err)
	}
}

func TestIssuePassClosedPolicy(t *testing.T) {
	svc, _ := warmPassFixture(t, models.PassClosed)

	if _, err := svc.Issue(roleCtx(models.RoleParticipant)); !errors.Is(err, ErrPassesClosed) {
		t.Errorf("got %v, want ErrPassesClosed", err)
	}
}

func TestIssuePassTypewise(t *testing.T) {
	svc, _ := warmPassFixture(t, models.PassTypewise)

	// INV1 имеет подтверждённую заявку.
	if _, err := svc.Issue(roleCtx(models.RoleParticipant)); err != nil {
		t.Errorf("confirmed user: %v", err)
	}

	// INV2 только pending: пасс не выдаётся.
	ctx := roleCtx(models.RoleParticipant, func(s *models.Session) { s.InventoID = "INV2" })
	if _, err := svc.Issue(ctx); !errors.Is(err, ErrPassesClosed) {
		t.Errorf("pending user: got %v, want ErrPassesClosed", err)
	}

	// INV7 — лидер подтверждённой командной заявки.
	ctx = roleCtx(models.RoleParticipant, func(s *models.Session) { s.InventoID = "INV7" })
	if _, err := svc.Issue(ctx); err != nil {
		t.Errorf("team leader: %v", err)
	}
}

func TestValidatePassCollectsEntries(t *testing.T) {
	svc, _ := warmPassFixture(t, models.PassToAll)

	validation, err := svc.Validate(roleCtx(models.RoleVolunteer), "INVENTO:INV1:user@college.edu")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validation.User.Name != "Confirmed User" {
		t.Errorf("user = %+v", validation.User)
	}
	if len(validation.Entries) != 1 || !validation.Admitted {
		t.Errorf("entries=%d admitted=%v, want 1/true", len(validation.Entries), validation.Admitted)
	}
}

func TestValidatePassPendingOnlyNotAdmitted(t *testing.T) {
	svc, _ := warmPassFixture(t, models.PassToAll)

	validation, err := svc.Validate(roleCtx(models.RoleVolunteer), "INVENTO:INV2:user@college.edu")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validation.Admitted {
		t.Error("pending-only user must not be admitted")
	}
}

func TestValidatePassMalformed(t *testing.T) {
	svc, _ := warmPassFixture(t, models.PassToAll)

	if _, err := svc.Validate(roleCtx(models.RoleVolunteer), "garbage"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestValidatePassUnknownUser(t *testing.T) {
	svc, _ := warmPassFixture(t, models.PassToAll)

	_, err := svc.Validate(roleCtx(models.RoleVolunteer), "INVENTO:INV404:x@y.z")
	if !errors.Is(err, apiclient.ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}
