package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/mail"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

// AuthService orchestrates registration, login, token rotation, logout and
// the password reset flow. All session-state mutations run inside repo
// transactions; the persisted revoked/expiry fields, not claim lifetimes,
// decide whether a refresh or reset token is still usable.
type AuthService struct {
	Repo   *repo.GormRepo
	Codec  *tokens.Codec
	Mail   *mail.Queue
	Events events.Publisher

	RotationBuffer time.Duration
	ResetURL       string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email, username and password are required", ErrValidation)
	}

	// advisory; the unique index on email is what actually decides races
	if _, err := s.Repo.FindUserByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		l.Error("register_error", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	user := &models.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: pwHash,
	}

	var pair *TokenPair
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		p, err := s.issuePair(ctx, tx, user)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if errors.Is(err, repo.ErrDuplicateEmail) {
		l.Warn("register_conflict", "status", 409)
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	if err != nil {
		l.Error("register_error", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.publish(ctx, user, events.TypeUserRegistered)
	l.Info("user_registered", "user_id", user.ID)
	return pair, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401)
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401)
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	// prior sessions stay valid, concurrent sessions are allowed
	pair, err := s.issuePair(ctx, s.Repo, user)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	l.Info("login_successful", "user_id", user.ID)
	return pair, nil
}

// RefreshTokens exchanges a refresh token for a new access token, rotating
// the refresh token only when it is near expiry. The persisted row is
// authoritative: a cryptographically valid but revoked token is rejected.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Codec.Validate(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "invalid token")
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}

	row, err := s.Repo.FindSessionToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "unknown token")
			return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !row.Active(time.Now().UTC()) {
		l.Warn("refresh_failed", "status", 401, "reason", "revoked or expired")
		return nil, fmt.Errorf("%w: refresh token revoked or expired", ErrUnauthorized)
	}

	user, err := s.Repo.FindUserByID(ctx, row.UserID)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	if !s.Codec.NearExpiry(claims, s.RotationBuffer) {
		// sliding session: fresh access token, same refresh token
		access, accessExp, err := s.Codec.Issue(user, tokens.KindAccess)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		return &TokenPair{
			AccessToken:  access,
			RefreshToken: refreshToken,
			AccessExp:    accessExp,
			RefreshExp:   row.ExpiresAt,
		}, nil
	}

	var pair *TokenPair
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.FindSessionToken(ctx, refreshToken)
		if err != nil {
			return err
		}
		if !current.Active(time.Now().UTC()) {
			return fmt.Errorf("%w: refresh token revoked or expired", ErrUnauthorized)
		}
		if err := tx.RevokeSessionToken(ctx, current); err != nil {
			return err
		}
		p, err := s.issuePair(ctx, tx, user)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if errors.Is(err, ErrUnauthorized) {
		l.Warn("refresh_failed", "status", 401, "reason", "lost rotation race")
		return nil, err
	}
	if err != nil {
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	l.Info("refresh_rotated", "user_id", user.ID)
	return pair, nil
}

// Logout revokes the presented refresh token. Possession of the exact stored
// string is sufficient; no signature check is needed since revoking a dead
// token changes nothing.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (bool, error) {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	row, err := s.Repo.FindSessionToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		l.Error("logout_failed", "status", 500, "error", err)
		return false, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !row.Active(time.Now().UTC()) {
		return false, nil
	}

	if err := s.Repo.RevokeSessionToken(ctx, row); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return false, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	l.Info("logout_successful", "user_id", row.UserID)
	return true, nil
}

// ForgotPassword issues a reset token and queues the reset email. The reply
// is identical whether or not the email is registered, and queue delivery is
// best-effort, so nothing here leaks account existence.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	user, err := s.Repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Info("forgot_password_unknown_email")
			return nil
		}
		l.Error("forgot_password_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	reset, exp, err := s.Codec.Issue(user, tokens.KindReset)
	if err != nil {
		l.Error("forgot_password_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if _, err := s.Repo.CreateSessionToken(ctx, user.ID, reset, exp); err != nil {
		l.Error("forgot_password_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	body, err := mail.RenderResetEmail(mail.ResetEmailData{
		Username:   user.Username,
		Link:       s.ResetURL + "?token=" + reset,
		TTLMinutes: int(s.Codec.ResetTTL / time.Minute),
	})
	if err != nil {
		l.Error("forgot_password_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.Mail.Enqueue(mail.Job{
		Recipients: []string{user.Email},
		Subject:    "Password Reset Request",
		Body:       body,
	})
	l.Info("reset_email_queued", "user_id", user.ID)
	return nil
}

// ResetPassword validates a reset token, revokes every outstanding session of
// the user and overwrites the password hash, all in one transaction. The
// persisted Active row for the exact token string is required; a signature
// alone is not enough.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.reset_password")

	if newPassword == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}

	claims, err := s.Codec.Validate(token)
	if err != nil || !claims.IsReset() {
		l.Warn("reset_failed", "status", 401, "reason", "invalid token payload")
		return fmt.Errorf("%w: invalid reset token", ErrUnauthorized)
	}

	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		l.Warn("reset_failed", "status", 401, "reason", "invalid subject")
		return fmt.Errorf("%w: invalid reset token", ErrUnauthorized)
	}

	user, err := s.Repo.FindUserByID(ctx, uint(uid))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("reset_failed", "status", 401, "reason", "unknown user")
			return fmt.Errorf("%w: invalid reset token", ErrUnauthorized)
		}
		l.Error("reset_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	row, err := s.Repo.FindSessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("reset_failed", "status", 401, "reason", "no persisted token")
			return fmt.Errorf("%w: invalid reset token", ErrUnauthorized)
		}
		l.Error("reset_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if row.UserID != user.ID || !row.Active(time.Now().UTC()) {
		l.Warn("reset_failed", "status", 401, "reason", "token not active")
		return fmt.Errorf("%w: invalid reset token", ErrUnauthorized)
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		l.Error("reset_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	// revoking all active rows also kills the reset token itself, making it
	// single-use
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.RevokeAllActiveForUser(ctx, user.ID); err != nil {
			return err
		}
		return tx.UpdatePassword(ctx, user.ID, pwHash)
	})
	if err != nil {
		l.Error("reset_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.publish(ctx, user, events.TypePasswordReset)
	l.Info("password_reset_successful", "user_id", user.ID)
	return nil
}

func (s *AuthService) PruneExpiredTokens(ctx context.Context) (int64, error) {
	return s.Repo.PruneSessionTokens(ctx)
}

func (s *AuthService) issuePair(ctx context.Context, r *repo.GormRepo, user *models.User) (*TokenPair, error) {
	access, accessExp, err := s.Codec.Issue(user, tokens.KindAccess)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.Codec.Issue(user, tokens.KindRefresh)
	if err != nil {
		return nil, err
	}
	if _, err := r.CreateSessionToken(ctx, user.ID, refresh, refreshExp); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, user *models.User, eventType string) {
	if s.Events == nil {
		return
	}
	event := map[string]any{
		"type":     eventType,
		"user_id":  user.ID,
		"username": user.Username,
	}
	if err := s.Events.Publish(ctx, strconv.FormatUint(uint64(user.ID), 10), event); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", eventType, "error", err)
	}
}
