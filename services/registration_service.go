package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inventohq/festival-system/apiclient"
	"github.com/inventohq/festival-system/cache"
	"github.com/inventohq/festival-system/models"
)

// FlowState — состояние регистрационного воркфлоу.
type FlowState string

const (
	StateIdle           FlowState = "idle"
	StateModalOpen      FlowState = "modal_open"
	StateTeamAssembly   FlowState = "team_assembly"
	StatePaymentPending FlowState = "payment_pending"
	StateVerifying      FlowState = "verifying"
	StateConfirmed      FlowState = "confirmed"

	// StateCommitFailed — терминальное состояние платного пути:
	// оплата захвачена шлюзом, но registration-commit упал.
	// Автоматического ретрая нет, сверка — ручная.
	StateCommitFailed FlowState = "commit_failed"
)

// validFlowTransition описывает разрешённые переходы машины.
// Ошибки валидации состояние не меняют, поэтому их здесь нет.
// Verifying -> ModalOpen — откат бесплатного пути: commit упал,
// деньги не захвачены, пользователь может повторить.
func validFlowTransition(from, to FlowState) bool {
	allowed := map[FlowState][]FlowState{
		StateIdle:           {StateModalOpen},
		StateModalOpen:      {StateTeamAssembly, StatePaymentPending, StateIdle},
		StateTeamAssembly:   {StatePaymentPending, StateIdle},
		StatePaymentPending: {StateVerifying, StateModalOpen, StateIdle},
		StateVerifying:      {StateConfirmed, StateCommitFailed, StateModalOpen},
		StateConfirmed:      {StateIdle},
		StateCommitFailed:   {StateIdle},
	}
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentProof — токены, которые платёжный виджет присылает в
// completion callback. Для шлюза они непрозрачны.
type PaymentProof struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Flow — одна проводка пользователя через регистрацию.
type Flow struct {
	ID      string    `json:"id"`
	State   FlowState `json:"state"`
	EventID string    `json:"event_id"`

	Leader models.UserSummary `json:"leader"`

	TeamName      string              `json:"team_name,omitempty"`
	Members       []models.TeamMember `json:"members,omitempty"`
	Official      bool                `json:"official"`
	ContingentKey string              `json:"-"`

	Order  *apiclient.Order              `json:"order,omitempty"`
	Proof  *PaymentProof                 `json:"-"`
	Result *apiclient.RegistrationResult `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// memberCount — размер сквада с учётом лидера.
func (f *Flow) memberCount() int {
	return len(f.Members) + 1
}

// RegistrationService держит активные воркфлоу и проводит их через
// machine: Idle -> ModalOpen -> (TeamAssembly)? -> PaymentPending ->
// Verifying -> Confirmed | CommitFailed.
type RegistrationService interface {
	Begin(ctx context.Context, eventID string) (*Flow, error)
	Get(flowID string) (*Flow, error)
	SetTeamName(flowID, name string) (*Flow, error)
	AddMember(ctx context.Context, flowID, inventoID string) (*Flow, error)
	RemoveMember(flowID, inventoID string) (*Flow, error)
	SetOfficial(flowID string, official bool, contingentKey string) (*Flow, error)
	Submit(ctx context.Context, flowID string) (*Flow, error)
	CompletePayment(ctx context.Context, flowID string, proof PaymentProof) (*Flow, error)
	Close(flowID string)
}

type registrationService struct {
	api    *apiclient.Client
	cache  *cache.Store
	logger *slog.Logger

	mu    sync.Mutex
	flows map[string]*Flow
}

func NewRegistrationService(api *apiclient.Client, cacheStore *cache.Store, logger *slog.Logger) RegistrationService {
	return &registrationService{
		api:    api,
		cache:  cacheStore,
		logger: logger,
		flows:  make(map[string]*Flow),
	}
}

// Begin открывает модалку регистрации. Требует аутентифицированную
// сессию; без неё хендлер отправит на логин без смены состояния.
func (s *registrationService) Begin(ctx context.Context, eventID string) (*Flow, error) {
	sess := apiclient.SessionFrom(ctx)
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}

	settings := s.cache.Settings()
	if settings != nil && !settings.RegistrationsOpen {
		return nil, ErrRegistrationsClosed
	}

	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Open {
		return nil, ErrEventClosed
	}

	flow := &Flow{
		ID:      generateFlowID(),
		State:   StateModalOpen,
		EventID: event.ID,
		Leader: models.UserSummary{
			InventoID: sess.InventoID,
			Name:      sess.Name,
			Email:     sess.Email,
		},
		CreatedAt: time.Now().UTC(),
	}

	// Командное событие сразу уходит в сборку сквада.
	if !event.TeamSize.Solo() {
		flow.State = StateTeamAssembly
	}

	s.mu.Lock()
	s.flows[flow.ID] = flow
	s.mu.Unlock()

	s.logger.Info("registration flow started",
		slog.String("flow_id", flow.ID),
		slog.String("event_id", event.ID),
		slog.String("leader", sess.InventoID))
	return cloneFlow(flow), nil
}

func (s *registrationService) Get(flowID string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.flows[flowID]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return cloneFlow(flow), nil
}

func (s *registrationService) SetTeamName(flowID, name string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[flowID]
	if !ok {
		return nil, ErrFlowNotFound
	}
	if flow.State != StateTeamAssembly {
		return nil, ErrInvalidFlowState
	}
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	flow.TeamName = name
	return cloneFlow(flow), nil
}

// AddMember резолвит InventoID на бэкенде и добавляет участника.
// Отказ (не найден, дубль, лидер) не двигает машину и не меняет сквад.
func (s *registrationService) AddMember(ctx context.Context, flowID, inventoID string) (*Flow, error) {
	s.mu.Lock()
	flow, ok := s.flows[flowID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrFlowNotFound
	}
	if flow.State != StateTeamAssembly {
		s.mu.Unlock()
		return nil, ErrInvalidFlowState
	}
	if inventoID == flow.Leader.InventoID {
		s.mu.Unlock()
		return nil, ErrMemberIsLeader
	}
	for _, m := range flow.Members {
		if m.InventoID == inventoID {
			s.mu.Unlock()
			return nil, ErrDuplicateMember
		}
	}
	s.mu.Unlock()

	// Лукап без лока: это сетевой вызов.
	user, err := s.api.ValidateUser(ctx, inventoID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Состояние могло измениться, пока ходили в сеть.
	if flow.State != StateTeamAssembly {
		return nil, ErrInvalidFlowState
	}
	for _, m := range flow.Members {
		if m.InventoID == inventoID {
			return nil, ErrDuplicateMember
		}
	}
	flow.Members = append(flow.Members, models.TeamMember{
		InventoID: user.InventoID,
		Name:      user.Name,
	})
	return cloneFlow(flow), nil
}

func (s *registrationService) RemoveMember(flowID, inventoID string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[flowID]
	if !ok {
		return nil, ErrFlowNotFound
	}
	if flow.State != StateTeamAssembly {
		return nil, ErrInvalidFlowState
	}
	for i, m := range flow.Members {
		if m.InventoID == inventoID {
			flow.Members = append(flow.Members[:i], flow.Members[i+1:]...)
			return cloneFlow(flow), nil
		}
	}
	return nil, ErrNotFound
}

func (s *registrationService) SetOfficial(flowID string, official bool, contingentKey string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[flowID]
	if !ok {
		return nil, ErrFlowNotFound
	}
	if flow.State != StateModalOpen && flow.State != StateTeamAssembly {
		return nil, ErrInvalidFlowState
	}
	flow.Official = official
	flow.ContingentKey = contingentKey
	if !official {
		flow.ContingentKey = ""
	}
	return cloneFlow(flow), nil
}

// Submit валидирует сквад и contingent key, создаёт платёжный ордер
// и либо сразу коммитит бесплатную регистрацию, либо отдаёт ордер
// платёжному виджету. Все проверки идут до первого сетевого вызова
// платёжного пути.
func (s *registrationService) Submit(ctx context.Context, flowID string) (*Flow, error) {
	s.mu.Lock()
	flow, ok := s.flows[flowID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrFlowNotFound
	}
	if flow.State != StateModalOpen && flow.State != StateTeamAssembly {
		s.mu.Unlock()
		return nil, ErrInvalidFlowState
	}
	eventID := flow.EventID
	official := flow.Official
	key := flow.ContingentKey
	members := flow.memberCount()
	teamName := flow.TeamName
	fromTeamAssembly := flow.State == StateTeamAssembly
	s.mu.Unlock()

	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	// Валидации, блокирующие до любого create-order.
	if fromTeamAssembly {
		if teamName == "" {
			return nil, ErrTeamNameRequired
		}
		if !event.TeamSize.Contains(members) {
			return nil, fmt.Errorf("%w: have %d, want %s", ErrSquadIncomplete, members, event.TeamSize)
		}
	}
	if event.OfficialOnly && !official {
		return nil, ErrOfficialOnlyEvent
	}
	if official {
		if key == "" {
			return nil, ErrContingentKeyRequired
		}
		// Жёсткое предусловие, а не параллельный шаг.
		if err := s.api.ValidateKey(ctx, key); err != nil {
			return nil, err
		}
	}

	order, err := s.api.CreateOrder(ctx, apiclient.OrderRequest{
		EventID:       eventID,
		Members:       members,
		Official:      official,
		ContingentKey: key,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if flow.State != StateModalOpen && flow.State != StateTeamAssembly {
		s.mu.Unlock()
		return nil, ErrInvalidFlowState
	}
	flow.Order = order
	s.transitionLocked(flow, StatePaymentPending)
	s.mu.Unlock()

	if !order.Free {
		// Платный путь: дальше машину двигает payment callback.
		return s.Get(flowID)
	}

	// Бесплатный путь: коммитим тем же payload'ом, что и платный,
	// просто без proof-токенов.
	return s.commit(ctx, flowID, nil)
}

// CompletePayment — внешнее событие от платёжного виджета.
func (s *registrationService) CompletePayment(ctx context.Context, flowID string, proof PaymentProof) (*Flow, error) {
	if proof.PaymentID == "" || proof.Signature == "" {
		return nil, ErrPaymentProofMissing
	}

	s.mu.Lock()
	flow, ok := s.flows[flowID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrFlowNotFound
	}
	if flow.State != StatePaymentPending {
		s.mu.Unlock()
		return nil, ErrInvalidFlowState
	}
	flow.Proof = &proof
	s.mu.Unlock()

	return s.commit(ctx, flowID, &proof)
}

// commit вызывает registration-commit и завершает машину.
// Для платного пути неуспех — это StateCommitFailed: деньги уже
// захвачены, гасить их ретраем нельзя.
func (s *registrationService) commit(ctx context.Context, flowID string, proof *PaymentProof) (*Flow, error) {
	s.mu.Lock()
	flow, ok := s.flows[flowID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrFlowNotFound
	}
	if flow.State != StatePaymentPending {
		s.mu.Unlock()
		return nil, ErrInvalidFlowState
	}
	s.transitionLocked(flow, StateVerifying)

	payload := apiclient.RegistrationPayload{
		TeamName:      flow.TeamName,
		Official:      flow.Official,
		ContingentKey: flow.ContingentKey,
	}
	for _, m := range flow.Members {
		payload.MemberIDs = append(payload.MemberIDs, m.InventoID)
	}
	if flow.Order != nil {
		payload.OrderID = flow.Order.OrderID
	}
	if proof != nil {
		payload.OrderID = proof.OrderID
		payload.PaymentID = proof.PaymentID
		payload.PaymentSignature = proof.Signature
	}
	eventID := flow.EventID
	s.mu.Unlock()

	result, err := s.api.Register(ctx, eventID, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if proof != nil {
			s.transitionLocked(flow, StateCommitFailed)
			s.logger.Error("registration commit failed after captured payment",
				slog.String("flow_id", flow.ID),
				slog.String("event_id", eventID),
				slog.String("payment_id", proof.PaymentID),
				slog.Any("error", err))
			return cloneFlow(flow), fmt.Errorf("payment captured but registration failed: %w", err)
		}
		// Бесплатный путь: возвращаемся в модалку, можно повторить.
		s.transitionLocked(flow, StateModalOpen)
		return nil, err
	}

	flow.Result = result
	s.transitionLocked(flow, StateConfirmed)
	s.logger.Info("registration confirmed",
		slog.String("flow_id", flow.ID),
		slog.String("event_id", eventID),
		slog.Bool("paid", proof != nil))

	// Слоты на сервере уже изменились; перечитываем, не патчим.
	go func() {
		refreshCtx, cancel := context.WithTimeout(apiclient.WithSession(context.Background(), apiclient.SessionFrom(ctx)), 15*time.Second)
		defer cancel()
		if err := s.cache.RefreshEvents(refreshCtx); err != nil {
			s.logger.Warn("post-commit events refresh failed", slog.Any("error", err))
		}
	}()

	return cloneFlow(flow), nil
}

// Close полностью сбрасывает transient-состояние потока, чтобы
// следующая попытка начиналась с чистого листа.
func (s *registrationService) Close(flowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, flowID)
}

func (s *registrationService) transitionLocked(flow *Flow, to FlowState) {
	if !validFlowTransition(flow.State, to) {
		// Программная ошибка, а не пользовательская: фиксируем громко.
		s.logger.Error("illegal flow transition",
			slog.String("flow_id", flow.ID),
			slog.String("from", string(flow.State)),
			slog.String("to", string(to)))
		return
	}
	flow.State = to
}

// findEvent берёт событие из кэша, при промахе перечитывает список.
func (s *registrationService) findEvent(ctx context.Context, eventID string) (*models.Event, error) {
	lookup := func() *models.Event {
		for _, e := range s.cache.Events() {
			if e.ID == eventID {
				return &e
			}
		}
		return nil
	}
	if e := lookup(); e != nil {
		return e, nil
	}
	if err := s.cache.RefreshEvents(ctx); err != nil {
		return nil, err
	}
	if e := lookup(); e != nil {
		return e, nil
	}
	return nil, ErrNotFound
}

func cloneFlow(f *Flow) *Flow {
	clone := *f
	clone.Members = append([]models.TeamMember(nil), f.Members...)
	if f.Order != nil {
		order := *f.Order
		clone.Order = &order
	}
	if f.Result != nil {
		result := *f.Result
		clone.Result = &result
	}
	if f.Proof != nil {
		proof := *f.Proof
		clone.Proof = &proof
	}
	return &clone
}

func generateFlowID() string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 20)
	randomBytes := make([]byte, 20)
	if _, err := rand.Read(randomBytes); err != nil {
		for i := range b {
			b[i] = charset[int(time.Now().UnixNano())%len(charset)]
		}
		return string(b)
	}
	for i, rb := range randomBytes {
		b[i] = charset[int(rb)%len(charset)]
	}
	return string(b)
}
