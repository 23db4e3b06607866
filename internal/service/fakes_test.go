package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/internal/events"
	"github.com/prperemyshlev/videotube-service/internal/repository"
)

// memoryUserRepository enforces the same uniqueness and compare-and-swap rules as the SQL store
type memoryUserRepository struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	videos map[string]bool
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{
		users:  make(map[string]*domain.User),
		videos: make(map[string]bool),
	}
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.WatchHistory = append([]string(nil), u.WatchHistory...)
	if u.RefreshTokenHash != nil {
		h := *u.RefreshTokenHash
		c.RefreshTokenHash = &h
	}
	return &c
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return nil, fmt.Errorf("user %s: %w", user.Username, repository.ErrDuplicateUser)
		}
	}

	stored := clone(user)
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.users[stored.ID] = stored

	return clone(stored), nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(user), nil
}

func (r *memoryUserRepository) GetByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return clone(user), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepository) SetRefreshToken(_ context.Context, userID string, tokenHash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.RefreshTokenHash = tokenHash
	return nil
}

func (r *memoryUserRepository) SwapRefreshToken(_ context.Context, userID, oldHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok || user.RefreshTokenHash == nil || *user.RefreshTokenHash != oldHash {
		return repository.ErrRefreshTokenMismatch
	}
	user.RefreshTokenHash = &newHash
	return nil
}

func (r *memoryUserRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *memoryUserRepository) UpdateProfile(_ context.Context, userID string, update domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if update.Email != nil {
		for id, other := range r.users {
			if id != userID && other.Email == *update.Email {
				return nil, repository.ErrDuplicateUser
			}
		}
		user.Email = *update.Email
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}
	if update.CoverImage != nil {
		user.CoverImage = *update.CoverImage
	}
	user.UpdatedAt = time.Now()

	return clone(user), nil
}

func (r *memoryUserRepository) AddToWatchHistory(_ context.Context, userID, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok || !r.videos[videoID] {
		return repository.ErrNotFound
	}

	history := make([]string, 0, len(user.WatchHistory)+1)
	for _, id := range user.WatchHistory {
		if id != videoID {
			history = append(history, id)
		}
	}
	user.WatchHistory = append(history, videoID)
	return nil
}

type fakeUploader struct {
	mu       sync.Mutex
	uploads  []string
	deleted  []string
	fail     bool
	emptyURL bool
}

func (u *fakeUploader) Upload(_ context.Context, localPath string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.fail {
		return "", errors.New("media host unavailable")
	}
	u.uploads = append(u.uploads, localPath)
	if u.emptyURL {
		return "", nil
	}
	return "https://cdn.example.com/media/" + uuid.NewString() + "-" + localPath, nil
}

func (u *fakeUploader) Delete(_ context.Context, url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.deleted = append(u.deleted, url)
	return nil
}

type memoryBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Duration
}

func newMemoryBlacklist() *memoryBlacklist {
	return &memoryBlacklist{tokens: make(map[string]time.Duration)}
}

func (b *memoryBlacklist) Add(_ context.Context, token string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens[token] = ttl
	return nil
}

func (b *memoryBlacklist) Contains(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.tokens[token]
	return ok, nil
}

type recordingPublisher struct {
	mu               sync.Mutex
	registered       []events.UserRegisteredEvent
	passwordsChanged []events.PasswordChangedEvent
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, event events.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registered = append(p.registered, event)
	return nil
}

func (p *recordingPublisher) PublishPasswordChanged(_ context.Context, event events.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.passwordsChanged = append(p.passwordsChanged, event)
	return nil
}

func (p *recordingPublisher) Close() {}

type memoryChannelRepository struct {
	profiles map[string]domain.ChannelProfile
	// subscribers[channelID] holds the ids subscribed to that channel
	subscribers map[string]map[string]bool
	history     map[string][]domain.WatchedVideo
}

func (r *memoryChannelRepository) GetChannelProfile(_ context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	profile, ok := r.profiles[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	profile.IsSubscribed = viewerID != "" && r.subscribers[profile.ID][viewerID]
	profile.SubscribersCount = int64(len(r.subscribers[profile.ID]))
	return &profile, nil
}

func (r *memoryChannelRepository) GetWatchHistory(_ context.Context, userID string) ([]domain.WatchedVideo, error) {
	return r.history[userID], nil
}

func (r *memoryChannelRepository) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	subs, ok := r.subscribers[channelID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if subs[subscriberID] {
		delete(subs, subscriberID)
		return false, nil
	}
	subs[subscriberID] = true
	return true, nil
}
