package services

import (
	"context"
	"errors"
	"fmt"

	"coffee-telegram/db"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash stored in admin_credentials.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("password is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IssueManagerCredential creates or resets the admin-bot password of a manager and returns
// the generated plain password. Do not log it.
func IssueManagerCredential(ctx context.Context, tgUserID, createdBy int64) (string, error) {
	plain, err := GenerateSecurePassword()
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	hash, err := HashPassword(plain)
	if err != nil {
		return "", err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO admin_credentials (tg_user_id, password_hash, is_active, created_by)
		VALUES ($1, $2, true, $3)
		ON CONFLICT (tg_user_id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			is_active = true,
			updated_at = now()`,
		tgUserID, hash, createdBy,
	)
	if err != nil {
		return "", err
	}
	return plain, nil
}

// VerifyManagerCredential checks the password of an active manager.
func VerifyManagerCredential(ctx context.Context, tgUserID int64, plainPassword string) (bool, error) {
	var hash string
	var isActive bool
	err := db.Pool.QueryRow(ctx, `
		SELECT password_hash, is_active FROM admin_credentials WHERE tg_user_id = $1`,
		tgUserID,
	).Scan(&hash, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if !isActive {
		return false, nil
	}
	return CheckPassword(hash, plainPassword), nil
}

// DeactivateManager revokes a manager's access. It reports whether an active credential existed.
func DeactivateManager(ctx context.Context, tgUserID int64) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE admin_credentials SET is_active = false, updated_at = now()
		WHERE tg_user_id = $1 AND is_active`,
		tgUserID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
