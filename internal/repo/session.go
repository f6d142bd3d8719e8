package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/auth_service/internal/models"
)

func (r *GormRepo) CreateSessionToken(ctx context.Context, userID uint, token string, expiresAt time.Time) (*models.SessionToken, error) {
	row := models.SessionToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindSessionToken looks up by the exact signed token string. Returns
// gorm.ErrRecordNotFound when no row matches.
func (r *GormRepo) FindSessionToken(ctx context.Context, token string) (*models.SessionToken, error) {
	var row models.SessionToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// RevokeSessionToken sets the revoked flag. Revoking an already revoked row
// is a no-op.
func (r *GormRepo) RevokeSessionToken(ctx context.Context, row *models.SessionToken) error {
	row.Revoked = true
	return r.DB.WithContext(ctx).Model(&models.SessionToken{}).
		Where("id = ?", row.ID).
		Update("revoked", true).Error
}

// RevokeAllActiveForUser revokes every live session of one user, forcing
// re-login everywhere. Used by password reset.
func (r *GormRepo) RevokeAllActiveForUser(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.SessionToken{}).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, time.Now().UTC()).
		Update("revoked", true).Error
}

// PruneSessionTokens deletes revoked or expired rows. Runs as a single bulk
// delete, safe alongside concurrent reads and writes.
func (r *GormRepo) PruneSessionTokens(ctx context.Context) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("revoked = ? OR expires_at <= ?", true, time.Now().UTC()).
		Delete(&models.SessionToken{})
	return res.RowsAffected, res.Error
}
