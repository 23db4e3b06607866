package repository

import (
	"github.com/prperemyshlev/videotube-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User         UserRepository
	Subscription SubscriptionRepository
	Channel      ChannelRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Channel:      NewChannelRepository(db),
	}
}
