package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/models"
)

func newTestCodec() *Codec {
	return &Codec{
		Key:        []byte("test-jwt-secret"),
		Issuer:     "auth_service_test",
		Audience:   "auth_service_test",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
		ResetTTL:   10 * time.Minute,
	}
}

func testUser() *models.User {
	return &models.User{ID: 42, Email: "a@x.com", Username: "alice"}
}

func TestCodec_Issue_ClaimsPerKind(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	user := testUser()

	tests := []struct {
		name  string
		kind  Kind
		check func(t *testing.T, c *Claims)
	}{
		{
			name: "access carries email and uid",
			kind: KindAccess,
			check: func(t *testing.T, c *Claims) {
				assert.Equal(t, user.Email, c.Email)
				assert.Equal(t, user.ID, c.UID)
				assert.Empty(t, c.Purpose)
			},
		},
		{
			name: "refresh carries base claims only",
			kind: KindRefresh,
			check: func(t *testing.T, c *Claims) {
				assert.Empty(t, c.Email)
				assert.Zero(t, c.UID)
				assert.Empty(t, c.Purpose)
				assert.False(t, c.IsReset())
			},
		},
		{
			name: "reset carries purpose marker and email",
			kind: KindReset,
			check: func(t *testing.T, c *Claims) {
				assert.Equal(t, user.Email, c.Email)
				assert.True(t, c.IsReset())
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			signed, exp, err := codec.Issue(user, tt.kind)
			require.NoError(t, err)
			require.NotEmpty(t, signed)
			assert.WithinDuration(t, time.Now().Add(codec.ttl(tt.kind)), exp, 2*time.Second)

			claims, err := codec.Validate(signed)
			require.NoError(t, err)

			assert.Equal(t, "42", claims.Subject)
			assert.NotEmpty(t, claims.ID)
			require.NotNil(t, claims.ExpiresAt)
			assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
			tt.check(t, claims)
		})
	}
}

func TestCodec_Validate_Expired(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	codec.AccessTTL = -time.Minute

	signed, _, err := codec.Issue(testUser(), KindAccess)
	require.NoError(t, err)

	claims, err := codec.Validate(signed)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCodec_Validate_WrongKey(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	signed, _, err := codec.Issue(testUser(), KindAccess)
	require.NoError(t, err)

	other := newTestCodec()
	other.Key = []byte("some-other-secret")

	claims, err := other.Validate(signed)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_Validate_Malformed(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()

	claims, err := codec.Validate("not-a-jwt")
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_Validate_WrongIssuer(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	signed, _, err := codec.Issue(testUser(), KindRefresh)
	require.NoError(t, err)

	other := newTestCodec()
	other.Issuer = "someone-else"

	claims, err := other.Validate(signed)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCodec_NearExpiry(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	buffer := 10 * time.Minute

	tests := []struct {
		name   string
		claims *Claims
		want   bool
	}{
		{
			name:   "remaining well above buffer",
			claims: claimsExpiringIn(time.Hour),
			want:   false,
		},
		{
			name:   "remaining below buffer",
			claims: claimsExpiringIn(time.Minute),
			want:   true,
		},
		{
			name:   "remaining exactly at buffer counts as near",
			claims: claimsExpiringIn(buffer),
			want:   true,
		},
		{
			name:   "missing expiration fails closed",
			claims: &Claims{},
			want:   true,
		},
		{
			name:   "nil claims fail closed",
			claims: nil,
			want:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, codec.NearExpiry(tt.claims, buffer))
		})
	}
}

func claimsExpiringIn(d time.Duration) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(d)),
		},
	}
}
