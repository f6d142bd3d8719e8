package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"uniqueIndex;not null"     json:"email"`
	Username     string `gorm:"not null"                 json:"username"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionToken is a persisted refresh or reset token. The unique index on
// Token arbitrates concurrent issuance; rows are removed only by the sweeper.
type SessionToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null"     json:"-"`
	Revoked   bool      `gorm:"default:false"            json:"revoked"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the token can still be exchanged. Expiry is derived
// at read time, not stored.
func (t *SessionToken) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &SessionToken{})
}
