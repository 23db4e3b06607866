package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/prperemyshlev/videotube-service/internal/domain"
	"github.com/prperemyshlev/videotube-service/pkg/database"
)

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash,
	refresh_token_hash, watch_history, created_at, updated_at`

// userRow mirrors the users table; watch_history is a uuid[] column
type userRow struct {
	ID               string         `db:"id"`
	Username         string         `db:"username"`
	Email            string         `db:"email"`
	FullName         string         `db:"full_name"`
	Avatar           string         `db:"avatar"`
	CoverImage       string         `db:"cover_image"`
	PasswordHash     string         `db:"password_hash"`
	RefreshTokenHash sql.NullString `db:"refresh_token_hash"`
	WatchHistory     pq.StringArray `db:"watch_history"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	user := &domain.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		FullName:     r.FullName,
		Avatar:       r.Avatar,
		CoverImage:   r.CoverImage,
		PasswordHash: r.PasswordHash,
		WatchHistory: []string(r.WatchHistory),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.RefreshTokenHash.Valid {
		hash := r.RefreshTokenHash.String
		user.RefreshTokenHash = &hash
	}
	return user
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a user and returns the stored row in the same statement,
// so a created user can always be read back.
func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (username, email, full_name, avatar, cover_image, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	var row userRow
	err := r.db.DB.QueryRowxContext(ctx, query,
		user.Username,
		user.Email,
		user.FullName,
		user.Avatar,
		user.CoverImage,
		user.PasswordHash,
	).StructScan(&row)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return nil, fmt.Errorf("user %s: %w", user.Username, ErrDuplicateUser)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return row.toDomain(), nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var row userRow
	if err := r.db.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || pqCode(err) == pqInvalidTextRepr {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return row.toDomain(), nil
}

// GetByUsernameOrEmail retrieves the user matching either identifier.
// An empty identifier is ignored. When the identifiers match different users the username match wins.
func (r *userRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1::text <> '' AND username = $1) OR ($2::text <> '' AND email = $2)
		ORDER BY (username = $1) DESC
		LIMIT 1`

	var row userRow
	if err := r.db.DB.GetContext(ctx, &row, query, username, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q/%q not found: %w", username, email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by username or email: %w", err)
	}

	return row.toDomain(), nil
}

// SetRefreshToken stores (or clears, when tokenHash is nil) the refresh token hash
func (r *userRepository) SetRefreshToken(ctx context.Context, userID string, tokenHash *string) error {
	query := `UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, userID, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}

	return expectAffected(result, userID)
}

// SwapRefreshToken replaces the stored refresh token hash only if it still equals oldHash
func (r *userRepository) SwapRefreshToken(ctx context.Context, userID, oldHash, newHash string) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = now()
		WHERE id = $1 AND refresh_token_hash = $2`

	result, err := r.db.DB.ExecContext(ctx, query, userID, oldHash, newHash)
	if err != nil {
		return fmt.Errorf("failed to swap refresh token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrRefreshTokenMismatch
	}

	return nil
}

// UpdatePassword replaces the stored password hash
func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return expectAffected(result, userID)
}

// UpdateProfile sets only the provided fields and returns the updated user
func (r *userRepository) UpdateProfile(ctx context.Context, userID string, update domain.UserUpdate) (*domain.User, error) {
	if update.IsEmpty() {
		return r.GetByID(ctx, userID)
	}

	var (
		sets []string
		args = []interface{}{userID}
	)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("full_name", update.FullName)
	add("email", update.Email)
	add("avatar", update.Avatar)
	add("cover_image", update.CoverImage)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + `, updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	var row userRow
	if err := r.db.DB.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
		}
		if pqCode(err) == pqUniqueViolation {
			return nil, fmt.Errorf("update user %s: %w", userID, ErrDuplicateUser)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return row.toDomain(), nil
}

// AddToWatchHistory appends a video to the user's history, moving it to the end if already present
func (r *userRepository) AddToWatchHistory(ctx context.Context, userID, videoID string) error {
	query := `
		UPDATE users
		SET watch_history = array_append(array_remove(watch_history, $2::uuid), $2::uuid),
		    updated_at = now()
		WHERE id = $1 AND EXISTS (SELECT 1 FROM videos WHERE id = $2::uuid)`

	result, err := r.db.DB.ExecContext(ctx, query, userID, videoID)
	if err != nil {
		if pqCode(err) == pqInvalidTextRepr {
			return fmt.Errorf("video with id %s not found: %w", videoID, ErrNotFound)
		}
		return fmt.Errorf("failed to add video to watch history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("video with id %s not found: %w", videoID, ErrNotFound)
	}

	return nil
}

func expectAffected(result sql.Result, userID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}
