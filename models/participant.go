package models

import "time"

// ParticipantStatus соответствует ENUM статусов заявки на бэкенде.
type ParticipantStatus string

const (
	StatusPending      ParticipantStatus = "PENDING"
	StatusConfirmed    ParticipantStatus = "CONFIRMED"
	StatusWaitlist     ParticipantStatus = "WAITLIST"
	StatusCancelled    ParticipantStatus = "CANCELLED"
	StatusDisqualified ParticipantStatus = "DISQUALIFIED"
)

// Valid reports whether s is one of the known statuses.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusWaitlist, StatusCancelled, StatusDisqualified:
		return true
	}
	return false
}

// TeamMember — вложенная запись участника командной заявки.
type TeamMember struct {
	InventoID string `json:"invento_id"`
	Name      string `json:"name,omitempty"`
	Attended  bool   `json:"attended"`
}

// Participant связывает пользователя (по InventoID) с событием.
// Записи никогда не удаляются, только переводятся между статусами.
type Participant struct {
	InventoID     string            `json:"invento_id"`
	EventID       string            `json:"event_id"`
	Name          string            `json:"name,omitempty"`
	Email         string            `json:"email,omitempty"`
	College       string            `json:"college,omitempty"`
	Status        ParticipantStatus `json:"status"`
	Attended      bool              `json:"attended"`
	PaymentStatus string            `json:"payment_status,omitempty"`
	AmountPaid    int               `json:"amount_paid"`
	Official      bool              `json:"official"`

	// Командные поля; пустой TeamName означает сольную заявку.
	TeamName string       `json:"team_name,omitempty"`
	LeaderID string       `json:"leader_id,omitempty"`
	Members  []TeamMember `json:"members,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsTeam reports whether this is a team registration.
func (p *Participant) IsTeam() bool {
	return p.TeamName != ""
}

// Size returns the squad size, leader included. Solo entries count as 1.
func (p *Participant) Size() int {
	if !p.IsTeam() {
		return 1
	}
	return len(p.Members)
}
