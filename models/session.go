package models

import "time"

// Role — закрытый набор ролей сессии. Никаких сравнений сырых строк
// по месту использования: роль парсится один раз при логине.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleMaster      Role = "master"
	RoleVolunteer   Role = "volunteer"
	RoleParticipant Role = "participant"
)

// ParseRole validates a role string coming from the upstream login payload.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleMaster, RoleVolunteer, RoleParticipant:
		return Role(s), true
	}
	return "", false
}

// RegistrationTeam — специальная команда, которой доступны все события
// независимо от access-списка.
const RegistrationTeam = "Registration"

// Session — авторизованная сессия, создаётся из ответа логина,
// хранится в session store и уничтожается при logout или 401.
type Session struct {
	InventoID string    `json:"invento_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      Role      `json:"role"`
	Team      string    `json:"team,omitempty"`
	Access    []string  `json:"access,omitempty"`
	Onboarded bool      `json:"onboarded"`
	CreatedAt time.Time `json:"created_at"`

	// Bearer-токен бэкенда. Наружу не сериализуется.
	Token string `json:"-"`
}

// CanManage reports whether the session may mutate the given event.
// Masters and the Registration team are unrestricted; scoped admins are
// limited to their access list.
func (s *Session) CanManage(eventID string) bool {
	if s == nil {
		return false
	}
	switch s.Role {
	case RoleMaster:
		return true
	case RoleAdmin:
		if s.Team == RegistrationTeam {
			return true
		}
		for _, id := range s.Access {
			if id == eventID {
				return true
			}
		}
	}
	return false
}

// Credentials — тело запроса логина, проксируется на бэкенд как есть.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
