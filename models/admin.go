package models

// AdminAccount — учётка админа/мастера в back-office (коллекция admins).
type AdminAccount struct {
	InventoID string   `json:"invento_id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      Role     `json:"role"`
	Team      string   `json:"team,omitempty"`
	Access    []string `json:"access,omitempty"`
}

// UserSummary — результат GET /api/users/validate/:id.
type UserSummary struct {
	InventoID string `json:"invento_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	College   string `json:"college,omitempty"`
}

// Profile — собственный профиль пользователя (GET /api/users/profile).
type Profile struct {
	InventoID string `json:"invento_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	College   string `json:"college,omitempty"`
	Onboarded bool   `json:"onboarded"`
}
