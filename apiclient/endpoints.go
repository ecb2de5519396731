package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/inventohq/festival-system/models"
)

// LoginResult — ответ credential exchange: bearer-токен бэкенда
// плюс профиль, из которого собирается сессия.
type LoginResult struct {
	Token     string   `json:"token"`
	InventoID string   `json:"invento_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	Team      string   `json:"team,omitempty"`
	Access    []string `json:"access,omitempty"`
	Onboarded bool     `json:"onboarded"`
}

// Order — ответ POST /api/events/create-order. Free=true означает
// нулевую стоимость: шлюзовой виджет оплаты не понадобится.
type Order struct {
	Free     bool   `json:"free"`
	OrderID  string `json:"order_id,omitempty"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency,omitempty"`
	KeyID    string `json:"key_id,omitempty"`
}

// OrderRequest — параметры создания платёжного ордера.
type OrderRequest struct {
	EventID       string `json:"event_id"`
	Members       int    `json:"members"`
	Official      bool   `json:"official"`
	ContingentKey string `json:"contingent_key,omitempty"`
}

// RegistrationPayload — тело registration-commit. Для платного пути
// дополняется proof-токенами шлюза, для бесплатного они пустые.
type RegistrationPayload struct {
	TeamName      string   `json:"team_name,omitempty"`
	MemberIDs     []string `json:"member_ids,omitempty"`
	Official      bool     `json:"official"`
	ContingentKey string   `json:"contingent_key,omitempty"`

	OrderID          string `json:"order_id,omitempty"`
	PaymentID        string `json:"payment_id,omitempty"`
	PaymentSignature string `json:"payment_signature,omitempty"`
}

// RegistrationResult — подтверждение регистрации с серверным
// сообщением и необязательной ссылкой (например, инвайт в группу).
type RegistrationResult struct {
	Message      string `json:"message"`
	FollowUpLink string `json:"follow_up_link,omitempty"`
}

func (c *Client) LoginAdmin(ctx context.Context, creds models.Credentials) (*LoginResult, error) {
	raw, err := c.request(ctx, http.MethodPost, "/api/admins/login", creds)
	if err != nil {
		return nil, err
	}
	res, err := decode[LoginResult](raw)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) LoginVolunteer(ctx context.Context, creds models.Credentials) (*LoginResult, error) {
	raw, err := c.request(ctx, http.MethodPost, "/api/volunteers/login", creds)
	if err != nil {
		return nil, err
	}
	res, err := decode[LoginResult](raw)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	raw, err := c.getWithRetry(ctx, "/api/events")
	if err != nil {
		return nil, err
	}
	return decode[[]models.Event](raw)
}

// EventPatch — частичное обновление события; nil-поля не трогаются.
type EventPatch struct {
	Name         *string `json:"name,omitempty"`
	Fee          *int    `json:"fee,omitempty"`
	SlotsTotal   *int    `json:"slots_total,omitempty"`
	Open         *bool   `json:"open,omitempty"`
	OfficialOnly *bool   `json:"official_only,omitempty"`
	Rules        *string `json:"rules,omitempty"`
}

func (c *Client) PatchEvent(ctx context.Context, eventID string, patch EventPatch) (*models.Event, error) {
	raw, err := c.request(ctx, http.MethodPatch, "/api/events/"+url.PathEscape(eventID), patch)
	if err != nil {
		return nil, err
	}
	event, err := decode[models.Event](raw)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *Client) ListRegistrations(ctx context.Context) ([]models.Participant, error) {
	raw, err := c.getWithRetry(ctx, "/api/events/registrations/all")
	if err != nil {
		return nil, err
	}
	return decode[[]models.Participant](raw)
}

func (c *Client) UpdateParticipantStatus(ctx context.Context, eventID, inventoID string, status models.ParticipantStatus) error {
	path := fmt.Sprintf("/api/events/%s/participants/%s/status", url.PathEscape(eventID), url.PathEscape(inventoID))
	_, err := c.request(ctx, http.MethodPatch, path, map[string]models.ParticipantStatus{"status": status})
	return err
}

func (c *Client) UpdateParticipantAttendance(ctx context.Context, eventID, inventoID string, attended bool) error {
	path := fmt.Sprintf("/api/events/%s/participants/%s/attendance", url.PathEscape(eventID), url.PathEscape(inventoID))
	_, err := c.request(ctx, http.MethodPatch, path, map[string]bool{"attended": attended})
	return err
}

func (c *Client) UpdateTeamStatus(ctx context.Context, eventID, teamName string, status models.ParticipantStatus) error {
	path := fmt.Sprintf("/api/events/%s/teams/%s/status", url.PathEscape(eventID), url.PathEscape(teamName))
	_, err := c.request(ctx, http.MethodPatch, path, map[string]models.ParticipantStatus{"status": status})
	return err
}

func (c *Client) UpdateTeamMemberAttendance(ctx context.Context, eventID, teamName, inventoID string, attended bool) error {
	path := fmt.Sprintf("/api/events/%s/teams/%s/members/%s/attendance",
		url.PathEscape(eventID), url.PathEscape(teamName), url.PathEscape(inventoID))
	_, err := c.request(ctx, http.MethodPatch, path, map[string]bool{"attended": attended})
	return err
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	raw, err := c.request(ctx, http.MethodPost, "/api/events/create-order", req)
	if err != nil {
		return nil, err
	}
	order, err := decode[Order](raw)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) Register(ctx context.Context, eventID string, payload RegistrationPayload) (*RegistrationResult, error) {
	raw, err := c.request(ctx, http.MethodPost, "/api/events/register/"+url.PathEscape(eventID), payload)
	if err != nil {
		return nil, err
	}
	res, err := decode[RegistrationResult](raw)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ValidateKey проверяет contingent key на бэкенде. Отказ сервера
// превращается в ErrInvalidKey, чтобы воркфлоу не разбирал статусы.
func (c *Client) ValidateKey(ctx context.Context, key string) error {
	_, err := c.request(ctx, http.MethodPost, "/api/events/validate-key", map[string]string{"key": key})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity) {
			return fmt.Errorf("%w: %s", ErrInvalidKey, apiErr.Message)
		}
		return err
	}
	return nil
}

func (c *Client) AnalyticsOverview(ctx context.Context) (*models.AnalyticsOverview, error) {
	raw, err := c.getWithRetry(ctx, "/api/events/analytics/overview")
	if err != nil {
		return nil, err
	}
	overview, err := decode[models.AnalyticsOverview](raw)
	if err != nil {
		return nil, err
	}
	return &overview, nil
}

func (c *Client) AnalyticsDetailed(ctx context.Context) (*models.AnalyticsDetailed, error) {
	raw, err := c.getWithRetry(ctx, "/api/events/analytics/detailed")
	if err != nil {
		return nil, err
	}
	detailed, err := decode[models.AnalyticsDetailed](raw)
	if err != nil {
		return nil, err
	}
	return &detailed, nil
}

func (c *Client) GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error) {
	raw, err := c.getWithRetry(ctx, "/api/admins/settings/global")
	if err != nil {
		return nil, err
	}
	settings, err := decode[models.GlobalSettings](raw)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (c *Client) PutGlobalSettings(ctx context.Context, settings models.GlobalSettings) error {
	_, err := c.request(ctx, http.MethodPut, "/api/admins/settings/global", settings)
	return err
}

func (c *Client) ListAdmins(ctx context.Context) ([]models.AdminAccount, error) {
	raw, err := c.getWithRetry(ctx, "/api/admins")
	if err != nil {
		return nil, err
	}
	return decode[[]models.AdminAccount](raw)
}

func (c *Client) ListActivity(ctx context.Context) ([]models.ActivityEntry, error) {
	raw, err := c.getWithRetry(ctx, "/api/admins/activity")
	if err != nil {
		return nil, err
	}
	return decode[[]models.ActivityEntry](raw)
}

// ValidateUser резолвит InventoID в профиль. 404 превращается в
// ErrUserNotFound: team assembly различает "не найден" и прочие сбои.
func (c *Client) ValidateUser(ctx context.Context, inventoID string) (*models.UserSummary, error) {
	raw, err := c.request(ctx, http.MethodGet, "/api/users/validate/"+url.PathEscape(inventoID), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, inventoID)
		}
		return nil, err
	}
	user, err := decode[models.UserSummary](raw)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	raw, err := c.request(ctx, http.MethodGet, "/api/users/profile", nil)
	if err != nil {
		return nil, err
	}
	profile, err := decode[models.Profile](raw)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
