package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// usersStore is a minimal in-memory repository.UserRepository
type usersStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

var _ repository.UserRepository = (*usersStore)(nil)

func newUsersStore() *usersStore {
	return &usersStore{users: make(map[string]*domain.User)}
}

func (s *usersStore) copyOf(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (s *usersStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, repository.ErrDuplicateUser
		}
	}
	stored := s.copyOf(user)
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.users[stored.ID] = stored
	return s.copyOf(stored), nil
}

func (s *usersStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		return s.copyOf(u), nil
	}
	return nil, repository.ErrNotFound
}

func (s *usersStore) GetByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return s.copyOf(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *usersStore) SetRefreshToken(_ context.Context, userID string, tokenHash *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshTokenHash = tokenHash
	return nil
}

func (s *usersStore) SwapRefreshToken(_ context.Context, userID, oldHash, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != oldHash {
		return repository.ErrRefreshTokenMismatch
	}
	u.RefreshTokenHash = &newHash
	return nil
}

func (s *usersStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *usersStore) UpdateProfile(_ context.Context, userID string, update domain.UserUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	if update.CoverImage != nil {
		u.CoverImage = *update.CoverImage
	}
	return s.copyOf(u), nil
}

func (s *usersStore) AddToWatchHistory(context.Context, string, string) error {
	return repository.ErrNotFound
}

// stagedFileUploader asserts that the handler staged the file before the upload
type stagedFileUploader struct {
	mu      sync.Mutex
	paths   []string
	deleted []string
}

func (u *stagedFileUploader) Upload(_ context.Context, localPath string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	u.paths = append(u.paths, localPath)
	return "https://cdn.example.com/media/" + uuid.NewString(), nil
}

func (u *stagedFileUploader) Delete(_ context.Context, url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.deleted = append(u.deleted, url)
	return nil
}

type blacklistSet struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func (b *blacklistSet) Add(_ context.Context, token string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tokens == nil {
		b.tokens = make(map[string]bool)
	}
	b.tokens[token] = true
	return nil
}

func (b *blacklistSet) Contains(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tokens[token], nil
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for field, filename := range files {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, "fake image bytes")
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()

	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
