package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
	"github.com/inventohq/festival-system/store"
)

// registrationBackend эмулирует бэкенд для регистрационного воркфлоу.
type registrationBackend struct {
	mu               sync.Mutex
	createOrderCalls int
	registerCalls    int
	lastRegistration apiclient.RegistrationPayload

	failRegister      bool
	registrationsOpen bool
}

func (b *registrationBackend) handler() http.Handler {
	eventsJSON := `[
		{"id":"ev-solo","name":"Quiz","club":"Lit","fee":0,"open":true,"team_size":"1","slots":{"total":100,"filled":10}},
		{"id":"ev-team","name":"Hackathon","club":"Tech","fee":100,"per_head":true,"open":true,"team_size":"3-5","slots":{"total":50,"filled":5}},
		{"id":"ev-closed","name":"Dance","club":"Culturals","fee":50,"open":false,"team_size":"1"},
		{"id":"ev-official","name":"Marathon","club":"Sports","fee":0,"open":true,"official_only":true,"team_size":"1"}
	]`

	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(eventsJSON))
	})
	mux.HandleFunc("/api/admins/settings/global", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		open := b.registrationsOpen
		b.mu.Unlock()
		json.NewEncoder(w).Encode(models.GlobalSettings{RegistrationsOpen: open, PassPolicy: models.PassToAll})
	})
	mux.HandleFunc("/api/users/validate/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/users/validate/")
		switch id {
		case "INV2", "INV3", "INV4", "INV5":
			json.NewEncoder(w).Encode(models.UserSummary{InventoID: id, Name: "Member " + id})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("/api/events/validate-key", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Key string `json:"key"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Key != "GOOD-KEY" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"unknown key"}`))
			return
		}
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/events/create-order", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.createOrderCalls++
		b.mu.Unlock()

		var req apiclient.OrderRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.EventID == "ev-solo" || req.EventID == "ev-official" {
			json.NewEncoder(w).Encode(apiclient.Order{Free: true})
			return
		}
		json.NewEncoder(w).Encode(apiclient.Order{
			Free: false, OrderID: "ord_1", Amount: 100 * req.Members, Currency: "INR", KeyID: "rzp_test",
		})
	})
	mux.HandleFunc("/api/events/register/", func(w http.ResponseWriter, r *http.Request) {
		var payload apiclient.RegistrationPayload
		json.NewDecoder(r.Body).Decode(&payload)

		b.mu.Lock()
		b.registerCalls++
		b.lastRegistration = payload
		fail := b.failRegister
		b.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"commit exploded"}`))
			return
		}
		json.NewEncoder(w).Encode(apiclient.RegistrationResult{Message: "registered", FollowUpLink: "https://chat.example/inv"})
	})
	return mux
}

func (b *registrationBackend) counts() (orders, registers int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createOrderCalls, b.registerCalls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func leaderCtx() context.Context {
	return apiclient.WithSession(context.Background(), &models.Session{
		InventoID: "INV1",
		Email:     "leader@college.edu",
		Name:      "Leader",
		Role:      models.RoleParticipant,
		Onboarded: true,
		Token:     "backend-token",
	})
}

// newRegistrationFixture поднимает сервис поверх стаб-бэкенда
// с прогретым кэшем.
func newRegistrationFixture(t *testing.T, backend *registrationBackend) (RegistrationService, *cache.Store) {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	api := apiclient.New(srv.URL, nil, quietLogger())
	persist := store.NewFileSnapshotStore(filepath.Join(t.TempDir(), "snapshot.json"))
	cacheStore := cache.New(api, persist, nil, quietLogger())

	ctx := leaderCtx()
	if err := cacheStore.RefreshEvents(ctx); err != nil {
		t.Fatalf("warm events: %v", err)
	}
	if err := cacheStore.RefreshSettings(ctx); err != nil {
		t.Fatalf("warm settings: %v", err)
	}

	return NewRegistrationService(api, cacheStore, quietLogger()), cacheStore
}

func TestBeginRequiresSession(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})

	_, err := svc.Begin(context.Background(), "ev-solo")
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Errorf("got %v, want ErrAuthenticationRequired", err)
	}
}

func TestBeginSoloOpensModal(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})

	flow, err := svc.Begin(leaderCtx(), "ev-solo")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if flow.State != StateModalOpen {
		t.Errorf("state = %s, want modal_open", flow.State)
	}
	if flow.Leader.InventoID != "INV1" {
		t.Errorf("leader = %+v", flow.Leader)
	}
}

func TestBeginTeamStartsAssembly(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})

	flow, err := svc.Begin(leaderCtx(), "ev-team")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if flow.State != StateTeamAssembly {
		t.Errorf("state = %s, want team_assembly", flow.State)
	}
}

func TestBeginRespectsGlobalSwitch(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: false})

	_, err := svc.Begin(leaderCtx(), "ev-solo")
	if !errors.Is(err, ErrRegistrationsClosed) {
		t.Errorf("got %v, want ErrRegistrationsClosed", err)
	}
}

func TestBeginRejectsClosedEvent(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})

	_, err := svc.Begin(leaderCtx(), "ev-closed")
	if !errors.Is(err, ErrEventClosed) {
		t.Errorf("got %v, want ErrEventClosed", err)
	}
}

func TestBeginUnknownEvent(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})

	_, err := svc.Begin(leaderCtx(), "ev-nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestTeamAssemblyGuards(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})
	ctx := leaderCtx()

	flow, err := svc.Begin(ctx, "ev-team")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	if _, err := svc.SetTeamName(flow.ID, ""); !errors.Is(err, ErrTeamNameRequired) {
		t.Errorf("empty name: got %v, want ErrTeamNameRequired", err)
	}

	if _, err := svc.AddMember(ctx, flow.ID, "INV1"); !errors.Is(err, ErrMemberIsLeader) {
		t.Errorf("leader as member: got %v, want ErrMemberIsLeader", err)
	}

	if _, err := svc.AddMember(ctx, flow.ID, "INV404"); !errors.Is(err, apiclient.ErrUserNotFound) {
		t.Errorf("unknown member: got %v, want ErrUserNotFound", err)
	}

	if _, err := svc.AddMember(ctx, flow.ID, "INV2"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := svc.AddMember(ctx, flow.ID, "INV2"); !errors.Is(err, ErrDuplicateMember) {
		t.Errorf("duplicate member: got %v, want ErrDuplicateMember", err)
	}

	got, err := svc.Get(flow.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Members) != 1 || got.Members[0].Name != "Member INV2" {
		t.Errorf("members = %+v, failed lookups must not change the squad", got.Members)
	}
}

func TestSetTeamNameRejectedOutsideAssembly(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})

	flow, err := svc.Begin(leaderCtx(), "ev-solo")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := svc.SetTeamName(flow.ID, "Solo Squad"); !errors.Is(err, ErrInvalidFlowState) {
		t.Errorf("got %v, want ErrInvalidFlowState", err)
	}
}

func TestSubmitBlocksIncompleteSquadBeforeOrder(t *testing.T) {
	backend := &registrationBackend{registrationsOpen: true}
	svc, _ := newRegistrationFixture(t, backend)
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-team")
	svc.SetTeamName(flow.ID, "Byte Club")
	svc.AddMember(ctx, flow.ID, "INV2") // лидер + 1 = 2, нужно 3-5

	_, err := svc.Submit(ctx, flow.ID)
	if !errors.Is(err, ErrSquadIncomplete) {
		t.Fatalf("got %v, want ErrSquadIncomplete", err)
	}
	if !strings.Contains(err.Error(), "have 2, want 3-5") {
		t.Errorf("error must name the band: %v", err)
	}

	orders, _ := backend.counts()
	if orders != 0 {
		t.Errorf("create-order called %d times before validation passed", orders)
	}

	got, _ := svc.Get(flow.ID)
	if got.State != StateTeamAssembly {
		t.Errorf("failed validation moved the machine to %s", got.State)
	}
}

func TestSubmitRequiresTeamName(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-team")
	svc.AddMember(ctx, flow.ID, "INV2")
	svc.AddMember(ctx, flow.ID, "INV3")

	if _, err := svc.Submit(ctx, flow.ID); !errors.Is(err, ErrTeamNameRequired) {
		t.Errorf("got %v, want ErrTeamNameRequired", err)
	}
}

func TestSubmitOfficialRequiresValidKey(t *testing.T) {
	backend := &registrationBackend{registrationsOpen: true}
	svc, _ := newRegistrationFixture(t, backend)
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-solo")

	if _, err := svc.SetOfficial(flow.ID, true, ""); err != nil {
		t.Fatalf("set official: %v", err)
	}
	if _, err := svc.Submit(ctx, flow.ID); !errors.Is(err, ErrContingentKeyRequired) {
		t.Errorf("missing key: got %v, want ErrContingentKeyRequired", err)
	}

	svc.SetOfficial(flow.ID, true, "BAD-KEY")
	if _, err := svc.Submit(ctx, flow.ID); !errors.Is(err, apiclient.ErrInvalidKey) {
		t.Errorf("bad key: got %v, want ErrInvalidKey", err)
	}

	// Ключ проверяется до создания ордера.
	orders, _ := backend.counts()
	if orders != 0 {
		t.Errorf("create-order called %d times with invalid key", orders)
	}
}

func TestSubmitOfficialOnlyEvent(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-official")
	if _, err := svc.Submit(ctx, flow.ID); !errors.Is(err, ErrOfficialOnlyEvent) {
		t.Errorf("got %v, want ErrOfficialOnlyEvent", err)
	}
}

func TestSubmitFreePathConfirmsImmediately(t *testing.T) {
	backend := &registrationBackend{registrationsOpen: true}
	svc, _ := newRegistrationFixture(t, backend)
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-solo")
	got, err := svc.Submit(ctx, flow.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.State != StateConfirmed {
		t.Errorf("state = %s, want confirmed", got.State)
	}
	if got.Result == nil || got.Result.Message != "registered" {
		t.Errorf("result = %+v", got.Result)
	}

	orders, registers := backend.counts()
	if orders != 1 || registers != 1 {
		t.Errorf("orders=%d registers=%d, want 1/1", orders, registers)
	}

	backend.mu.Lock()
	payload := backend.lastRegistration
	backend.mu.Unlock()
	if payload.PaymentID != "" || payload.PaymentSignature != "" {
		t.Errorf("free commit must not carry proof tokens: %+v", payload)
	}
}

func TestSubmitPaidPathAwaitsPayment(t *testing.T) {
	backend := &registrationBackend{registrationsOpen: true}
	svc, _ := newRegistrationFixture(t, backend)
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-team")
	svc.SetTeamName(flow.ID, "Byte Club")
	svc.AddMember(ctx, flow.ID, "INV2")
	svc.AddMember(ctx, flow.ID, "INV3")

	got, err := svc.Submit(ctx, flow.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.State != StatePaymentPending {
		t.Errorf("state = %s, want payment_pending", got.State)
	}
	if got.Order == nil || got.Order.OrderID != "ord_1" || got.Order.Amount != 300 {
		t.Errorf("order = %+v", got.Order)
	}

	_, registers := backend.counts()
	if registers != 0 {
		t.Errorf("register called before payment callback")
	}
}

func TestCompletePaymentValidatesProof(t *testing.T) {
	backend := &registrationBackend{registrationsOpen: true}
	svc, _ := newRegistrationFixture(t, backend)
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-team")
	svc.SetTeamName(flow.ID, "Byte Club")
	svc.AddMember(ctx, flow.ID, "INV2")
	svc.AddMember(ctx, flow.ID, "INV3")
	svc.Submit(ctx, flow.ID)

	_, err := svc.CompletePayment(ctx, flow.ID, PaymentProof{OrderID: "ord_1"})
	if !errors.Is(err, ErrPaymentProofMissing) {
		t.Errorf("got %v, want ErrPaymentProofMissing", err)
	}
}

func TestCompletePaymentConfirms(t *testing.T) {
	backend := &registrationBackend{registrationsOpen: true}
	svc, _ := newRegistrationFixture(t, backend)
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-team")
	svc.SetTeamName(flow.ID, "Byte Club")
	svc.AddMember(ctx, flow.ID, "INV2")
	svc.AddMember(ctx, flow.ID, "INV3")
	svc.Submit(ctx, flow.ID)

	got, err := svc.CompletePayment(ctx, flow.ID, PaymentProof{
		OrderID: "ord_1", PaymentID: "pay_9", Signature: "sig_x",
	})
	if err != nil {
		t.Fatalf("complete payment: %v", err)
	}
	if got.State != StateConfirmed {
		t.Errorf("state = %s, want confirmed", got.State)
	}

	backend.mu.Lock()
	payload := backend.lastRegistration
	backend.mu.Unlock()
	if payload.OrderID != "ord_1" || payload.PaymentID != "pay_9" || payload.PaymentSignature != "sig_x" {
		t.Errorf("proof tokens not forwarded: %+v", payload)
	}
	if payload.TeamName != "Byte Club" || len(payload.MemberIDs) != 2 {
		t.Errorf("squad not forwarded: %+v", payload)
	}
}

func TestCommitFailureAfterPaymentIsTerminal(t *testing.T) {
	backend := &registrationBackend{registrationsOpen: true, failRegister: true}
	svc, _ := newRegistrationFixture(t, backend)
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-team")
	svc.SetTeamName(flow.ID, "Byte Club")
	svc.AddMember(ctx, flow.ID, "INV2")
	svc.AddMember(ctx, flow.ID, "INV3")
	svc.Submit(ctx, flow.ID)

	got, err := svc.CompletePayment(ctx, flow.ID, PaymentProof{
		OrderID: "ord_1", PaymentID: "pay_9", Signature: "sig_x",
	})
	if err == nil {
		t.Fatal("expected commit failure")
	}
	if !strings.Contains(err.Error(), "payment captured") {
		t.Errorf("error must flag the captured payment: %v", err)
	}
	if got == nil || got.State != StateCommitFailed {
		t.Fatalf("flow = %+v, want commit_failed state returned alongside the error", got)
	}

	// Повторный callback не проходит: состояние терминальное.
	if _, err := svc.CompletePayment(ctx, flow.ID, PaymentProof{
		OrderID: "ord_1", PaymentID: "pay_9", Signature: "sig_x",
	}); !errors.Is(err, ErrInvalidFlowState) {
		t.Errorf("retry after commit_failed: got %v, want ErrInvalidFlowState", err)
	}
}

func TestFreeCommitFailureReturnsToModal(t *testing.T) {
	backend := &registrationBackend{registrationsOpen: true, failRegister: true}
	svc, _ := newRegistrationFixture(t, backend)
	ctx := leaderCtx()

	flow, _ := svc.Begin(ctx, "ev-solo")
	_, err := svc.Submit(ctx, flow.ID)
	if err == nil {
		t.Fatal("expected commit failure")
	}

	got, _ := svc.Get(flow.ID)
	if got.State != StateModalOpen {
		t.Errorf("state = %s, want modal_open for retryable free path", got.State)
	}

	// Деньги не захвачены, повторный Submit разрешён и проходит.
	backend.mu.Lock()
	backend.failRegister = false
	backend.mu.Unlock()

	retried, err := svc.Submit(ctx, flow.ID)
	if err != nil {
		t.Fatalf("retry after free commit failure: %v", err)
	}
	if retried.State != StateConfirmed {
		t.Errorf("retried state = %s, want confirmed", retried.State)
	}
}

func TestCloseDiscardsFlow(t *testing.T) {
	svc, _ := newRegistrationFixture(t, &registrationBackend{registrationsOpen: true})

	flow, _ := svc.Begin(leaderCtx(), "ev-solo")
	svc.Close(flow.ID)

	if _, err := svc.Get(flow.ID); !errors.Is(err, ErrFlowNotFound) {
		t.Errorf("got %v, want ErrFlowNotFound after close", err)
	}
}

func TestFlowTransitionTable(t *testing.T) {
	allowed := []struct{ from, to FlowState }{
		{StateIdle, StateModalOpen},
		{StateModalOpen, StateTeamAssembly},
		{StateModalOpen, StatePaymentPending},
		{StateTeamAssembly, StatePaymentPending},
		{StatePaymentPending, StateVerifying},
		{StateVerifying, StateConfirmed},
		{StateVerifying, StateCommitFailed},
		{StateVerifying, StateModalOpen},
		{StateConfirmed, StateIdle},
		{StateCommitFailed, StateIdle},
	}
	for _, tr := range allowed {
		if !validFlowTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s must be allowed", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to FlowState }{
		{StateIdle, StateConfirmed},
		{StateConfirmed, StatePaymentPending},
		{StateCommitFailed, StateVerifying},
		{StateTeamAssembly, StateConfirmed},
		{StateVerifying, StateIdle},
	}
	for _, tr := range forbidden {
		if validFlowTransition(tr.from, tr.to) {
			t.Errorf("%s -> %s must be forbidden", tr.from, tr.to)
		}
	}
}
