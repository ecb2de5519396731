package models

// PassPolicy управляет раздачей QR-пассов на публичных страницах.
type PassPolicy string

const (
	PassToAll    PassPolicy = "to_all"
	PassTypewise PassPolicy = "typewise"
	PassClosed   PassPolicy = "close"
)

// Valid reports whether p is a known distribution policy.
func (p PassPolicy) Valid() bool {
	switch p {
	case PassToAll, PassTypewise, PassClosed:
		return true
	}
	return false
}

// GlobalSettings — singleton-настройки фестиваля.
// Читаются всеми, меняются только мастером.
type GlobalSettings struct {
	RegistrationsOpen bool       `json:"registrations_open"`
	PassPolicy        PassPolicy `json:"pass_policy"`
}
