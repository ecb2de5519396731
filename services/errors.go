package services

import "errors"

// Общие ошибки сервисного слоя и маппинга HTTP.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Аутентификация и доступ
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrEventAccessDenied      = errors.New("event is outside the admin's access list")

	// Регистрационный воркфлоу
	ErrRegistrationsClosed   = errors.New("registrations are closed")
	ErrEventClosed           = errors.New("event registration is closed")
	ErrOfficialOnlyEvent     = errors.New("event accepts only official (contingent) registrations")
	ErrTeamNameRequired      = errors.New("squad name is required")
	ErrSquadIncomplete       = errors.New("squad size is outside the allowed band")
	ErrDuplicateMember       = errors.New("member is already in the squad")
	ErrMemberIsLeader        = errors.New("the registering leader cannot be added as a member")
	ErrContingentKeyRequired = errors.New("contingent key is required for official registration")
	ErrFlowNotFound          = errors.New("registration flow not found or already closed")
	ErrInvalidFlowState      = errors.New("operation not allowed in the current flow state")
	ErrPaymentProofMissing   = errors.New("payment proof tokens are missing")

	// Настройки и статусы
	ErrInvalidStatus     = errors.New("invalid participant status")
	ErrInvalidPassPolicy = errors.New("invalid pass distribution policy")
	ErrPassesClosed      = errors.New("pass distribution is closed")
)
