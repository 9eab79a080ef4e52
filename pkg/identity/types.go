// Package identity persists users, roles and their assignments. Stores
// return package sentinels (ErrNotFound and friends); services map them
// onto the domain error taxonomy.
package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("identity: not found")
	// ErrDuplicateUsername indicates the username is already taken.
	ErrDuplicateUsername = errors.New("identity: username already taken")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("identity: email already registered")
	// ErrDuplicateRole indicates a role with the same name exists.
	ErrDuplicateRole = errors.New("identity: role already exists")
)

// User is a directory account. PasswordHash is empty for accounts created
// through federated login that never set a local password.
type User struct {
	ID                     uuid.UUID
	Username               string
	Email                  string
	Name                   string
	Surname                string
	PhotoURL               *string
	PasswordHash           string
	SecurityStamp          string
	RefreshToken           *string
	RefreshTokenExpiration *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Role is a named grant. Names are unique case-insensitively.
type Role struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Login links a user to an external identity provider subject.
type Login struct {
	Provider    string
	ProviderKey string
	UserID      uuid.UUID
}

// GoogleProvider is the provider name recorded for Google federated logins.
const GoogleProvider = "google"
