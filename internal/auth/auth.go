//go:generate go run go.uber.org/mock/mockgen -source=auth.go -destination=../mocks/mock_verifier.go -package=mocks
package auth

import (
	"errors"
	"strings"

	"github.com/dkeye/Chat/internal/domain"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier resolves a credential to the identity it was issued for.
type Verifier interface {
	Verify(token string) (domain.User, error)
}

// Issuer signs a credential for an identity.
type Issuer interface {
	Sign(user domain.User) (string, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
