package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	return &GormRepo{DB: db}
}

func createTestUser(t *testing.T, r *GormRepo, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		Username:     "u_" + email,
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
	}
	require.NoError(t, r.CreateUser(context.Background(), user))
	return user
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	createTestUser(t, r, "dup@x.com")

	err := r.CreateUser(ctx, &models.User{
		Email:        "dup@x.com",
		Username:     "other",
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	var count int64
	require.NoError(t, r.DB.Model(&models.User{}).Where("email = ?", "dup@x.com").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFindUserByEmail_CaseSensitive(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	createTestUser(t, r, "Case@x.com")

	found, err := r.FindUserByEmail(ctx, "Case@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Case@x.com", found.Email)

	_, err = r.FindUserByEmail(ctx, "case@x.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSessionToken_CreateAndFind(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "s@x.com")

	exp := time.Now().UTC().Add(time.Hour)
	row, err := r.CreateSessionToken(ctx, user.ID, "token-abc", exp)
	require.NoError(t, err)
	assert.False(t, row.Revoked)

	found, err := r.FindSessionToken(ctx, "token-abc")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)
	assert.True(t, found.Active(time.Now().UTC()))

	_, err = r.FindSessionToken(ctx, "nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRevokeSessionToken_Idempotent(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "rv@x.com")

	row, err := r.CreateSessionToken(ctx, user.ID, "token-rv", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, r.RevokeSessionToken(ctx, row))
	require.NoError(t, r.RevokeSessionToken(ctx, row))

	found, err := r.FindSessionToken(ctx, "token-rv")
	require.NoError(t, err)
	assert.True(t, found.Revoked)
	assert.False(t, found.Active(time.Now().UTC()))
}

func TestRevokeAllActiveForUser(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, r, "all@x.com")
	other := createTestUser(t, r, "other@x.com")

	active, err := r.CreateSessionToken(ctx, user.ID, "t-active", now.Add(time.Hour))
	require.NoError(t, err)
	expired, err := r.CreateSessionToken(ctx, user.ID, "t-expired", now.Add(-time.Hour))
	require.NoError(t, err)
	otherActive, err := r.CreateSessionToken(ctx, other.ID, "t-other", now.Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, r.RevokeAllActiveForUser(ctx, user.ID))

	found, err := r.FindSessionToken(ctx, active.Token)
	require.NoError(t, err)
	assert.True(t, found.Revoked)

	// already-expired rows are left alone, the sweeper removes them
	found, err = r.FindSessionToken(ctx, expired.Token)
	require.NoError(t, err)
	assert.False(t, found.Revoked)

	found, err = r.FindSessionToken(ctx, otherActive.Token)
	require.NoError(t, err)
	assert.False(t, found.Revoked)
}

func TestPruneSessionTokens(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := createTestUser(t, r, "prune@x.com")

	live, err := r.CreateSessionToken(ctx, user.ID, "t-live", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = r.CreateSessionToken(ctx, user.ID, "t-old", now.Add(-time.Minute))
	require.NoError(t, err)
	dead, err := r.CreateSessionToken(ctx, user.ID, "t-dead", now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, r.RevokeSessionToken(ctx, dead))

	n, err := r.PruneSessionTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = r.FindSessionToken(ctx, live.Token)
	require.NoError(t, err)
	_, err = r.FindSessionToken(ctx, "t-old")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = r.FindSessionToken(ctx, "t-dead")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "tx@x.com")

	err := r.WithTx(ctx, func(tx *GormRepo) error {
		if _, err := tx.CreateSessionToken(ctx, user.ID, "t-tx", time.Now().UTC().Add(time.Hour)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	_, err = r.FindSessionToken(ctx, "t-tx")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
