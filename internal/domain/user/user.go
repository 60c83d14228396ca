// Package user holds operator accounts and the identity attached to writes.
package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	vo "kreltrack/internal/domain/user/valueobjects"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username already taken")
	ErrUserVersionChanged = errors.New("user was modified concurrently")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionInvalid     = errors.New("session invalid")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{2,32}$`)

type User struct {
	id             uint
	username       string
	passwordHash   string
	role           vo.Role
	active         bool
	failedAttempts int
	lastFailedAt   *time.Time
	lockedUntil    *time.Time
	lastLoginAt    *time.Time
	version        int
	createdAt      time.Time
	updatedAt      time.Time
}

func NewUser(username, passwordHash string, role vo.Role, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("username must be 2-32 letters, digits, dot, dash or underscore")
	}
	if passwordHash == "" {
		return nil, fmt.Errorf("password hash is required")
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role")
	}
	now = now.UTC()
	return &User{
		username:     username,
		passwordHash: passwordHash,
		role:         role,
		active:       true,
		version:      1,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

type Snapshot struct {
	ID             uint
	Username       string
	PasswordHash   string
	Role           string
	Active         bool
	FailedAttempts int
	LastFailedAt   *time.Time
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func ReconstructUser(s Snapshot) (*User, error) {
	if s.ID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}
	role, err := vo.NewRole(s.Role)
	if err != nil {
		return nil, err
	}
	return &User{
		id:             s.ID,
		username:       s.Username,
		passwordHash:   s.PasswordHash,
		role:           role,
		active:         s.Active,
		failedAttempts: s.FailedAttempts,
		lastFailedAt:   s.LastFailedAt,
		lockedUntil:    s.LockedUntil,
		lastLoginAt:    s.LastLoginAt,
		version:        s.Version,
		createdAt:      s.CreatedAt,
		updatedAt:      s.UpdatedAt,
	}, nil
}

func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:             u.id,
		Username:       u.username,
		PasswordHash:   u.passwordHash,
		Role:           u.role.String(),
		Active:         u.active,
		FailedAttempts: u.failedAttempts,
		LastFailedAt:   u.lastFailedAt,
		LockedUntil:    u.lockedUntil,
		LastLoginAt:    u.lastLoginAt,
		Version:        u.version,
		CreatedAt:      u.createdAt,
		UpdatedAt:      u.updatedAt,
	}
}

// LockedFor returns the remaining lockout, or zero when the account is usable.
func (u *User) LockedFor(now time.Time) time.Duration {
	if u.lockedUntil == nil || !now.Before(*u.lockedUntil) {
		return 0
	}
	return u.lockedUntil.Sub(now)
}

// RecordFailedLogin counts a failure inside the policy window and locks the
// account once the limit is reached. It returns the attempts left.
func (u *User) RecordFailedLogin(policy SecurityPolicy, now time.Time) int {
	now = now.UTC()
	if u.lastFailedAt != nil && now.Sub(*u.lastFailedAt) > policy.AttemptWindow() {
		u.failedAttempts = 0
	}
	u.failedAttempts++
	u.lastFailedAt = &now
	u.touch(now)

	if u.failedAttempts >= policy.MaxLoginAttempts {
		until := now.Add(policy.LockoutDuration())
		u.lockedUntil = &until
		u.failedAttempts = 0
		return 0
	}
	return policy.MaxLoginAttempts - u.failedAttempts
}

func (u *User) RecordSuccessfulLogin(now time.Time) {
	now = now.UTC()
	u.failedAttempts = 0
	u.lastFailedAt = nil
	u.lockedUntil = nil
	u.lastLoginAt = &now
	u.touch(now)
}

func (u *User) ChangeRole(role vo.Role, now time.Time) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid role")
	}
	u.role = role
	u.touch(now)
	return nil
}

// ChangePassword swaps in a new hash and clears any failed-login state.
func (u *User) ChangePassword(passwordHash string, now time.Time) error {
	if passwordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	u.passwordHash = passwordHash
	u.failedAttempts = 0
	u.lastFailedAt = nil
	u.lockedUntil = nil
	u.touch(now)
	return nil
}

func (u *User) Deactivate(now time.Time) {
	u.active = false
	u.touch(now)
}

func (u *User) touch(now time.Time) {
	u.updatedAt = now.UTC()
	u.version++
}

func (u *User) SetID(id uint) error {
	if u.id != 0 {
		return fmt.Errorf("user ID is already set")
	}
	u.id = id
	return nil
}

func (u *User) ID() uint                { return u.id }
func (u *User) Username() string        { return u.username }
func (u *User) PasswordHash() string    { return u.passwordHash }
func (u *User) Role() vo.Role           { return u.role }
func (u *User) IsActive() bool          { return u.active }
func (u *User) FailedAttempts() int     { return u.failedAttempts }
func (u *User) Version() int            { return u.version }
func (u *User) CreatedAt() time.Time    { return u.createdAt }
func (u *User) LastLoginAt() *time.Time { return u.lastLoginAt }

// Actor returns the identity this user acts under.
func (u *User) Actor() Actor {
	return Actor{UserID: u.id, Username: u.username, Role: u.role}
}

// Actor is the acting identity attached to every write.
type Actor struct {
	UserID   uint
	Username string
	Role     vo.Role
}

// Valid reports whether the identity is complete enough to authorise a write.
func (a Actor) Valid() bool {
	return a.Username != "" && a.Role.IsValid()
}

func (a Actor) String() string {
	return a.Username
}

// PasswordHasher hashes and checks login passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	// Update persists u if the stored version is u.Version()-1.
	Update(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id uint) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
