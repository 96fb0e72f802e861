// Package token signs reservation ids into opaque decline-link tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "raccoon/internal/errors"
)

const declinePurpose = "decline"

type declineClaims struct {
	ReservationID string `json:"rid"`
	Purpose       string `json:"purpose"`
	jwt.RegisteredClaims
}

// Codec encodes and verifies decline tokens with an HMAC secret.
// Tokens carry no expiry and iat is informational, so clock skew between
// instances never invalidates a link.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	return &Codec{secret: secret, now: time.Now}, nil
}

func (c *Codec) Encode(id uuid.UUID) (string, error) {
	claims := declineClaims{
		ReservationID: id.String(),
		Purpose:       declinePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies tok and returns the reservation id it carries. Every
// failure is reported as ErrInvalidToken.
func (c *Codec) Decode(tok string) (uuid.UUID, error) {
	var claims declineClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return uuid.Nil, apperrors.ErrInvalidToken
	}
	if claims.Purpose != declinePurpose {
		return uuid.Nil, apperrors.ErrInvalidToken
	}
	id, err := uuid.Parse(claims.ReservationID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperrors.ErrInvalidToken
	}
	return id, nil
}
