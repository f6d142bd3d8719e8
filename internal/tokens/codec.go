package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/auth_service/internal/models"
)

var (
	ErrMalformed        = errors.New("malformed token")
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
)

// Codec mints and validates the three token kinds with one symmetric key.
// It is pure and stateless; persisted session state is the service's concern.
type Codec struct {
	Key      []byte
	Issuer   string
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

func (c *Codec) ttl(kind Kind) time.Duration {
	switch kind {
	case KindAccess:
		return c.AccessTTL
	case KindReset:
		return c.ResetTTL
	default:
		return c.RefreshTTL
	}
}

// Issue builds the claim set for kind and signs it. The claim layout is fixed
// per kind: refresh carries base claims only, access adds email+uid, reset
// adds the purpose marker and email.
func (c *Codec) Issue(user *models.User, kind Kind) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(c.ttl(kind))

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ID:        uuid.NewString(),
			Issuer:    c.Issuer,
			Audience:  jwt.ClaimStrings{c.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	switch kind {
	case KindAccess:
		claims.Email = user.Email
		claims.UID = user.ID
	case KindReset:
		claims.Purpose = PurposePasswordReset
		claims.Email = user.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.Key)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, exp, nil
}

// Validate verifies signature, lifetime, issuer and audience, and returns the
// decoded claims. Routine invalid input comes back as a typed error.
func (c *Codec) Validate(tokenStr string) (*Claims, error) {
	var claims Claims
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if c.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.Issuer))
	}
	if c.Audience != "" {
		opts = append(opts, jwt.WithAudience(c.Audience))
	}

	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return c.Key, nil
	}, opts...)

	switch {
	case err == nil && tkn.Valid:
		return &claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, ErrMalformed
	}
}

// NearExpiry reports whether the remaining lifetime is within buffer. A
// missing expiration claim counts as near expiry, so an unreadable token is
// rotated rather than trusted.
func (c *Codec) NearExpiry(claims *Claims, buffer time.Duration) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.Time.After(time.Now().Add(buffer))
}
