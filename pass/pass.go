// Package pass кодирует и разбирает полезную нагрузку QR-пасса.
// Формат на проводе: INVENTO:<userId>:<email>. Его печатает веб-клиент
// и сканирует приложение-валидатор.
package pass

import (
	"errors"
	"fmt"
	"strings"
)

const prefix = "INVENTO"

var (
	ErrMalformedPayload = errors.New("malformed pass payload")
	ErrWrongPrefix      = errors.New("not an invento pass")
)

// Payload — содержимое QR-пасса.
type Payload struct {
	InventoID string
	Email     string
}

// Encode собирает строку пасса.
func (p Payload) Encode() string {
	return fmt.Sprintf("%s:%s:%s", prefix, p.InventoID, p.Email)
}

// Parse разбирает строку пасса. InventoID не содержит двоеточий,
// а email может — поэтому режем ровно на три части.
func Parse(raw string) (Payload, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return Payload{}, ErrMalformedPayload
	}
	if parts[0] != prefix {
		return Payload{}, ErrWrongPrefix
	}
	p := Payload{InventoID: parts[1], Email: parts[2]}
	if p.InventoID == "" || p.Email == "" {
		return Payload{}, ErrMalformedPayload
	}
	return p, nil
}
