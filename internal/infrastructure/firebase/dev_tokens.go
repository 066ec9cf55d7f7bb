package firebase

import (
	"context"
	"errors"
	"strings"

	"lugares/internal/domain/entity"
)

const devTokenPrefix = "dev:"

var ErrInvalidDevToken = errors.New("invalid development token")

// DevTokenVerifier accepts "dev:<uid>:<email>" tokens so the API can be driven
// locally without a Firebase project. Either part may be empty, not both.
type DevTokenVerifier struct{}

func NewDevTokenVerifier() *DevTokenVerifier {
	return &DevTokenVerifier{}
}

func (DevTokenVerifier) VerifyToken(_ context.Context, token string) (entity.AuthorIdentity, error) {
	if !strings.HasPrefix(token, devTokenPrefix) {
		return entity.AuthorIdentity{}, ErrInvalidDevToken
	}

	uid, email, ok := strings.Cut(strings.TrimPrefix(token, devTokenPrefix), ":")
	if !ok {
		return entity.AuthorIdentity{}, ErrInvalidDevToken
	}

	identity := entity.NewAuthorIdentity(uid, email)
	if !identity.IsAuthenticated() {
		return entity.AuthorIdentity{}, ErrInvalidDevToken
	}
	return identity, nil
}

// DevToken builds a token DevTokenVerifier accepts.
func DevToken(uid, email string) string {
	return devTokenPrefix + uid + ":" + email
}
