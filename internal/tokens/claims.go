package tokens

import "github.com/golang-jwt/jwt/v5"

type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// PurposePasswordReset marks a reset token. It is the single discriminator for
// the reset kind; callers go through Claims.IsReset instead of inspecting raw
// claims.
const PurposePasswordReset = "password-reset"

type Claims struct {
	Email   string `json:"email,omitempty"`
	UID     uint   `json:"uid,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsReset() bool {
	return c.Purpose == PurposePasswordReset
}
