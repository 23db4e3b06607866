package repository

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/videotube-service/pkg/database"
)

// subscriptionRepository implements SubscriptionRepository interface
type subscriptionRepository struct {
	db *database.Postgres
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *database.Postgres) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Toggle removes the subscription if it exists and creates it otherwise.
// It reports whether the subscriber is subscribed afterwards.
func (r *subscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	tx, err := r.db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2`,
		subscriberID, channelID,
	)
	if err != nil {
		return false, r.mapError(err, channelID)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO subscriptions (subscriber_id, channel_id)
			VALUES ($1, $2)
			ON CONFLICT (subscriber_id, channel_id) DO NOTHING`,
			subscriberID, channelID,
		)
		if err != nil {
			return false, r.mapError(err, channelID)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit subscription toggle: %w", err)
	}

	return deleted == 0, nil
}

func (r *subscriptionRepository) mapError(err error, channelID string) error {
	switch pqCode(err) {
	case pqForeignKeyViolation, pqInvalidTextRepr:
		return fmt.Errorf("channel with id %s not found: %w", channelID, ErrNotFound)
	}
	return fmt.Errorf("failed to toggle subscription: %w", err)
}
