package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"listing-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	userMaxRetries = 5
	userRetryDelay = 100 * time.Millisecond
)

// GetOrCreateUser idempotently provisions a user row keyed on the identity
// issued by the external auth provider. Transient persistence failures are
// retried in a bounded loop with a fixed delay.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, identityKey string) (*model.User, error) {
	if identityKey == "" {
		return nil, errors.New("missing identity key")
	}

	var lastErr error
	for attempt := 0; attempt < userMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(userRetryDelay):
			}
		}

		var user model.User
		err := db.WithContext(ctx).Where("identity_key = ?", identityKey).First(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			lastErr = err
			continue
		}

		user = model.User{IdentityKey: identityKey}
		err = db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "identity_key"}},
				DoNothing: true,
			}).
			Create(&user).Error
		if err != nil {
			lastErr = err
			continue
		}

		// A concurrent request may have won the insert; read back the
		// canonical row either way.
		err = db.WithContext(ctx).Where("identity_key = ?", identityKey).First(&user).Error
		if err == nil {
			return &user, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("user provisioning failed after %d attempts: %w", userMaxRetries, lastErr)
}
