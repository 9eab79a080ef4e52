package identity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserStore handles user persistence
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new user store
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, username, email, name, surname, photo_url, password_hash, security_stamp, refresh_token, refresh_token_expiration, created_at, updated_at`

// Create inserts a new user. Username and email collisions are reported
// through ErrDuplicateUsername / ErrDuplicateEmail; callers aggregate them.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`,
		user.Username,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return ErrDuplicateUsername
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`,
		user.Email,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return ErrDuplicateEmail
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, name, surname, photo_url, password_hash, security_stamp, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.Name,
		user.Surname,
		user.PhotoURL,
		user.PasswordHash,
		user.SecurityStamp,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *UserStore) getBy(ctx context.Context, where string, arg interface{}) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	var user User
	var id string
	var photoURL, refreshToken sql.NullString
	var refreshExpiration sql.NullTime

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&id,
		&user.Username,
		&user.Email,
		&user.Name,
		&user.Surname,
		&photoURL,
		&user.PasswordHash,
		&user.SecurityStamp,
		&refreshToken,
		&refreshExpiration,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}
	if photoURL.Valid {
		v := photoURL.String
		user.PhotoURL = &v
	}
	if refreshToken.Valid {
		v := refreshToken.String
		user.RefreshToken = &v
	}
	if refreshExpiration.Valid {
		v := refreshExpiration.Time
		user.RefreshTokenExpiration = &v
	}

	return &user, nil
}

// GetByID retrieves a user by id
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.getBy(ctx, "id = $1", id.String())
}

// GetByUsername retrieves a user by username, case-insensitively
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.getBy(ctx, "LOWER(username) = LOWER($1)", username)
}

// GetByEmail retrieves a user by email, case-insensitively
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getBy(ctx, "LOWER(email) = LOWER($1)", email)
}

// GetByRefreshToken retrieves the user currently holding the refresh token
func (s *UserStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*User, error) {
	return s.getBy(ctx, "refresh_token = $1", refreshToken)
}

// UpdateRefreshToken stores a new refresh token and its expiration,
// overwriting whatever token the user held before.
func (s *UserStore) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, refreshToken string, expiration time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET refresh_token = $1, refresh_token_expiration = $2, updated_at = $3 WHERE id = $4
	`, refreshToken, expiration, time.Now(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	return requireRowAffected(result)
}

// UpdatePassword replaces the password hash and rotates the security stamp,
// invalidating outstanding reset tokens.
func (s *UserStore) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash, securityStamp string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, security_stamp = $2, updated_at = $3 WHERE id = $4
	`, passwordHash, securityStamp, time.Now(), userID.String())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRowAffected(result)
}

// PurgeExpiredRefreshTokens clears refresh tokens whose expiration has
// passed and reports how many were cleared.
func (s *UserStore) PurgeExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET refresh_token = NULL, refresh_token_expiration = NULL, updated_at = $1
		WHERE refresh_token IS NOT NULL AND refresh_token_expiration < $2
	`, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged tokens: %w", err)
	}
	return purged, nil
}

// AddLogin links a federated identity to the user. Re-linking the same
// provider subject is a no-op.
func (s *UserStore) AddLogin(ctx context.Context, login *Login) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_logins (provider, provider_key, user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_key) DO NOTHING
	`, login.Provider, login.ProviderKey, login.UserID.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to add login: %w", err)
	}
	return nil
}

// GetByLogin retrieves the user linked to a federated identity
func (s *UserStore) GetByLogin(ctx context.Context, provider, providerKey string) (*User, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM user_logins WHERE provider = $1 AND provider_key = $2
	`, provider, providerKey).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get login: %w", err)
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}
	return s.GetByID(ctx, userID)
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
