package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Имена JWT claims шлюза.
const (
	jwtClaimSubject = "sub"
	jwtClaimRole    = "role"
)

// subjectClaim достаёт InventoID из claims.
func subjectClaim(claims jwt.MapClaims) (string, error) {
	raw, ok := claims[jwtClaimSubject]
	if !ok {
		return "", fmt.Errorf("missing %q claim in token", jwtClaimSubject)
	}
	sub, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for %q claim: expected string, got %T", jwtClaimSubject, raw)
	}
	if sub == "" {
		return "", errors.New("empty subject claim")
	}
	return sub, nil
}
