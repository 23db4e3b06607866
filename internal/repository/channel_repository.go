package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/pkg/database"
)

// channelRepository implements ChannelRepository interface
type channelRepository struct {
	db *database.Postgres
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *database.Postgres) ChannelRepository {
	return &channelRepository{db: db}
}

// GetChannelProfile returns the channel with its subscription counts.
// viewerID may be empty, in which case is_subscribed is false.
func (r *channelRepository) GetChannelProfile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	query := `
		SELECT u.id, u.full_name, u.username, u.email, u.avatar, u.cover_image,
		       (SELECT COUNT(*) FROM subscriptions WHERE channel_id = u.id) AS subscribers_count,
		       (SELECT COUNT(*) FROM subscriptions WHERE subscriber_id = u.id) AS channels_subscribed_to_count,
		       EXISTS (
		           SELECT 1 FROM subscriptions
		           WHERE channel_id = u.id AND subscriber_id::text = $2
		       ) AS is_subscribed
		FROM users u
		WHERE u.username = $1`

	var profile domain.ChannelProfile
	if err := r.db.DB.GetContext(ctx, &profile, query, username, viewerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %s not found: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get channel profile: %w", err)
	}

	return &profile, nil
}

type watchedVideoRow struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	VideoFile     string    `db:"video_file"`
	Thumbnail     string    `db:"thumbnail"`
	Duration      float64   `db:"duration"`
	Views         int64     `db:"views"`
	IsPublished   bool      `db:"is_published"`
	CreatedAt     time.Time `db:"created_at"`
	OwnerFullName string    `db:"owner_full_name"`
	OwnerUsername string    `db:"owner_username"`
	OwnerAvatar   string    `db:"owner_avatar"`
}

// GetWatchHistory returns the user's watched videos in history order, each with its owner embedded
func (r *channelRepository) GetWatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error) {
	query := `
		SELECT v.id, v.title, v.description, v.video_file, v.thumbnail, v.duration, v.views,
		       v.is_published, v.created_at,
		       COALESCE(o.full_name, '') AS owner_full_name,
		       COALESCE(o.username, '') AS owner_username,
		       COALESCE(o.avatar, '') AS owner_avatar
		FROM users u
		CROSS JOIN LATERAL unnest(u.watch_history) WITH ORDINALITY AS h(video_id, position)
		JOIN videos v ON v.id = h.video_id
		LEFT JOIN users o ON o.id = v.owner_id
		WHERE u.id = $1
		ORDER BY h.position`

	var rows []watchedVideoRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get watch history: %w", err)
	}

	videos := make([]domain.WatchedVideo, 0, len(rows))
	for _, row := range rows {
		videos = append(videos, domain.WatchedVideo{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			VideoFile:   row.VideoFile,
			Thumbnail:   row.Thumbnail,
			Duration:    row.Duration,
			Views:       row.Views,
			IsPublished: row.IsPublished,
			CreatedAt:   row.CreatedAt,
			Owner: domain.VideoOwner{
				FullName: row.OwnerFullName,
				Username: row.OwnerUsername,
				Avatar:   row.OwnerAvatar,
			},
		})
	}

	return videos, nil
}
