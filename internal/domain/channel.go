package domain

import "time"

// Subscription links a subscriber to the channel (user) they follow
type Subscription struct {
	ID           string    `json:"_id" db:"id"`
	SubscriberID string    `json:"subscriber" db:"subscriber_id"`
	ChannelID    string    `json:"channel" db:"channel_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// ChannelProfile is the aggregated public view of a user as a channel
type ChannelProfile struct {
	ID                        string `json:"_id" db:"id"`
	FullName                  string `json:"fullName" db:"full_name"`
	Username                  string `json:"username" db:"username"`
	Email                     string `json:"email" db:"email"`
	Avatar                    string `json:"avatar" db:"avatar"`
	CoverImage                string `json:"coverImage" db:"cover_image"`
	SubscribersCount          int64  `json:"subscribersCount" db:"subscribers_count"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount" db:"channels_subscribed_to_count"`
	IsSubscribed              bool   `json:"isSubscribed" db:"is_subscribed"`
}

// VideoOwner is the projection of a user embedded in watch history entries
type VideoOwner struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// WatchedVideo is a video from a user's watch history with its owner embedded
type WatchedVideo struct {
	ID          string     `json:"_id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	VideoFile   string     `json:"videoFile" db:"video_file"`
	Thumbnail   string     `json:"thumbnail" db:"thumbnail"`
	Duration    float64    `json:"duration" db:"duration"`
	Views       int64      `json:"views" db:"views"`
	IsPublished bool       `json:"isPublished" db:"is_published"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	Owner       VideoOwner `json:"owner"`
}
