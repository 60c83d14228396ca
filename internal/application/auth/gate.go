// Package auth supplies the acting identity for writes: accounts,
// password login with lockout, session tokens and role checks.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kreltrack/internal/application/permission"
	"kreltrack/internal/domain/audit"
	pvo "kreltrack/internal/domain/permission/value_objects"
	"kreltrack/internal/domain/user"
	uvo "kreltrack/internal/domain/user/valueobjects"
	"kreltrack/internal/shared/db"
	apperrors "kreltrack/internal/shared/errors"
	"kreltrack/internal/shared/logger"
)

type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TokenService interface {
	Issue(actor user.Actor) (string, time.Time, error)
	Verify(token string) (user.Actor, error)
}

type RehashChecker interface {
	NeedsRehash(hash string) bool
}

type RegisterCommand struct {
	Username string
	Password string
	Role     string
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	Actor     user.Actor
}

type Deps struct {
	Users  user.Repository
	Hasher user.PasswordHasher
	Tokens TokenService
	Tx     TxRunner
	Audit  audit.Recorder
	Authz  permission.Authorizer
}

// Gate authenticates people and authorises what they do.
type Gate struct {
	users          user.Repository
	hasher         user.PasswordHasher
	tokens         TokenService
	tx             TxRunner
	audit          audit.Recorder
	authz          permission.Authorizer
	passwordPolicy *uvo.PasswordPolicy
	securityPolicy user.SecurityPolicy
	storeTimeout   time.Duration
	now            func() time.Time
	logger         logger.Interface

	dummyOnce sync.Once
	dummyHash string
}

func NewGate(deps Deps, securityPolicy user.SecurityPolicy, storeTimeout time.Duration, log logger.Interface) *Gate {
	return &Gate{
		users:          deps.Users,
		hasher:         deps.Hasher,
		tokens:         deps.Tokens,
		tx:             deps.Tx,
		audit:          deps.Audit,
		authz:          deps.Authz,
		passwordPolicy: uvo.DefaultPasswordPolicy(),
		securityPolicy: securityPolicy,
		storeTimeout:   storeTimeout,
		now:            time.Now,
		logger:         log.Named("auth"),
	}
}

// Register creates an account. The first account may be created without an
// acting user and must be a super user; afterwards actor needs user write rights.
func (g *Gate) Register(ctx context.Context, cmd RegisterCommand, actor *user.Actor) (*user.User, error) {
	role, err := uvo.NewRole(cmd.Role)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	storeCtx, cancel := db.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	existing, err := g.users.List(storeCtx)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list users", err)
	}
	createdBy := "bootstrap"
	if len(existing) == 0 && actor == nil {
		if role != uvo.RoleSuper {
			return nil, apperrors.NewValidationError("the first account must have the super role")
		}
	} else {
		if actor == nil {
			return nil, apperrors.NewMissingIdentityError()
		}
		if err := g.authz.Authorize(ctx, *actor, pvo.ResourceUser, pvo.ActionWrite); err != nil {
			return nil, err
		}
		createdBy = actor.Username
	}

	if err := g.passwordPolicy.ValidatePassword(cmd.Password); err != nil {
		return nil, apperrors.NewFieldValidationError([]apperrors.FieldError{{Field: "password", Message: err.Error()}})
	}
	hash, err := g.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password")
	}
	u, err := user.NewUser(cmd.Username, hash, role, g.now())
	if err != nil {
		return nil, apperrors.NewFieldValidationError([]apperrors.FieldError{{Field: "username", Message: err.Error()}})
	}

	err = g.tx.RunInTransaction(storeCtx, func(txCtx context.Context) error {
		if err := g.users.Create(txCtx, u); err != nil {
			return err
		}
		return g.audit.Record(txCtx, audit.Entry{
			Entity:    audit.EntityUser,
			EntityKey: u.Username(),
			Action:    audit.ActionCreate,
			Actor:     createdBy,
			Details:   map[string]interface{}{"role": role.String()},
			At:        g.now().UTC(),
		})
	})
	if err != nil {
		if errors.Is(err, user.ErrUserExists) {
			return nil, apperrors.NewConflictError(fmt.Sprintf("username %s is already taken", u.Username()))
		}
		return nil, apperrors.FromStoreError("failed to save user", err)
	}

	g.logger.Infow("user registered", "username", u.Username(), "role", role, "by", createdBy)
	return u, nil
}

// Login checks the password and returns a signed session. Repeated failures
// lock the account as configured by the security policy.
func (g *Gate) Login(ctx context.Context, username, password string) (*Session, error) {
	storeCtx, cancel := db.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	u, err := g.users.GetByUsername(storeCtx, username)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			g.burnVerify(password)
			return nil, apperrors.NewInvalidCredentialsError(0)
		}
		return nil, apperrors.FromStoreError("failed to load user", err)
	}
	if !u.IsActive() {
		g.burnVerify(password)
		return nil, apperrors.NewInvalidCredentialsError(0)
	}

	now := g.now().UTC()
	if remaining := u.LockedFor(now); remaining > 0 {
		return nil, apperrors.NewAccountLockedError(remaining)
	}

	if err := g.hasher.Verify(password, u.PasswordHash()); err != nil {
		left := u.RecordFailedLogin(g.securityPolicy, now)
		if err := g.users.Update(storeCtx, u); err != nil {
			g.logger.Warnw("failed to record failed login", "username", username, "error", err)
		}
		g.logger.Warnw("login failed", "username", username, "attempts_left", left)
		if left == 0 {
			return nil, apperrors.NewAccountLockedError(u.LockedFor(now))
		}
		return nil, apperrors.NewInvalidCredentialsError(left)
	}

	if rc, ok := g.hasher.(RehashChecker); ok && rc.NeedsRehash(u.PasswordHash()) {
		g.logger.Infow("password hash uses an outdated cost", "username", username)
	}

	u.RecordSuccessfulLogin(now)
	err = g.tx.RunInTransaction(storeCtx, func(txCtx context.Context) error {
		if err := g.users.Update(txCtx, u); err != nil {
			return err
		}
		return g.audit.Record(txCtx, audit.Entry{
			Entity:    audit.EntityUser,
			EntityKey: u.Username(),
			Action:    audit.ActionLogin,
			Actor:     u.Username(),
			At:        now,
		})
	})
	if err != nil {
		if errors.Is(err, user.ErrUserVersionChanged) {
			return nil, apperrors.NewConflictError("account changed during login, retry")
		}
		return nil, apperrors.FromStoreError("failed to record login", err)
	}

	actor := u.Actor()
	token, exp, err := g.tokens.Issue(actor)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue session")
	}

	g.logger.Infow("user logged in", "username", u.Username(), "role", u.Role())
	return &Session{Token: token, ExpiresAt: exp, Actor: actor}, nil
}

// ChangePassword replaces the actor's own password after checking the
// current one. A wrong current password is reported on old_password and does
// not count towards the login lockout.
func (g *Gate) ChangePassword(ctx context.Context, actor user.Actor, oldPassword, newPassword string) error {
	if !actor.Valid() {
		return apperrors.NewMissingIdentityError()
	}
	if oldPassword == newPassword {
		return apperrors.NewFieldValidationError([]apperrors.FieldError{{Field: "new_password", Message: "must differ from the current password"}})
	}
	if err := g.passwordPolicy.ValidatePassword(newPassword); err != nil {
		return apperrors.NewFieldValidationError([]apperrors.FieldError{{Field: "new_password", Message: err.Error()}})
	}

	storeCtx, cancel := db.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	u, err := g.users.GetByID(storeCtx, actor.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return apperrors.NewNotFoundError(fmt.Sprintf("user %s not found", actor.Username))
		}
		return apperrors.FromStoreError("failed to load user", err)
	}
	if !u.IsActive() {
		return apperrors.NewTokenInvalidError()
	}
	if err := g.hasher.Verify(oldPassword, u.PasswordHash()); err != nil {
		g.logger.Warnw("password change rejected", "username", u.Username())
		return apperrors.NewFieldValidationError([]apperrors.FieldError{{Field: "old_password", Message: "is incorrect"}})
	}

	hash, err := g.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password")
	}
	now := g.now().UTC()
	if err := u.ChangePassword(hash, now); err != nil {
		return apperrors.NewInternalError("failed to change password", err.Error())
	}

	err = g.tx.RunInTransaction(storeCtx, func(txCtx context.Context) error {
		if err := g.users.Update(txCtx, u); err != nil {
			return err
		}
		return g.audit.Record(txCtx, audit.Entry{
			Entity:    audit.EntityUser,
			EntityKey: u.Username(),
			Action:    audit.ActionPassword,
			Actor:     actor.Username,
			At:        now,
		})
	})
	if err != nil {
		if errors.Is(err, user.ErrUserVersionChanged) {
			return apperrors.NewConflictError("account changed during password change, retry")
		}
		return apperrors.FromStoreError("failed to save password", err)
	}

	g.logger.Infow("password changed", "username", u.Username())
	return nil
}

// Authenticate turns a session token back into the acting user. The role is
// re-read from the store so a demotion takes effect before the token expires.
func (g *Gate) Authenticate(ctx context.Context, token string) (user.Actor, error) {
	if token == "" {
		return user.Actor{}, apperrors.NewMissingIdentityError()
	}
	claimed, err := g.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, user.ErrSessionExpired) {
			return user.Actor{}, apperrors.NewTokenExpiredError()
		}
		return user.Actor{}, apperrors.NewTokenInvalidError()
	}

	storeCtx, cancel := db.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	u, err := g.users.GetByID(storeCtx, claimed.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return user.Actor{}, apperrors.NewTokenInvalidError()
		}
		return user.Actor{}, apperrors.FromStoreError("failed to load user", err)
	}
	if !u.IsActive() || u.Username() != claimed.Username {
		return user.Actor{}, apperrors.NewTokenInvalidError()
	}
	return u.Actor(), nil
}

// Authorize checks actor against the role policies.
func (g *Gate) Authorize(ctx context.Context, actor user.Actor, resource pvo.Resource, action pvo.Action) error {
	return g.authz.Authorize(ctx, actor, resource, action)
}

func (g *Gate) ListUsers(ctx context.Context, actor user.Actor) ([]*user.User, error) {
	if err := g.authz.Authorize(ctx, actor, pvo.ResourceUser, pvo.ActionRead); err != nil {
		return nil, err
	}
	storeCtx, cancel := db.WithTimeout(ctx, g.storeTimeout)
	defer cancel()

	users, err := g.users.List(storeCtx)
	if err != nil {
		return nil, apperrors.FromStoreError("failed to list users", err)
	}
	return users, nil
}

// burnVerify spends one hash comparison so an unknown username costs as
// much as a wrong password.
func (g *Gate) burnVerify(password string) {
	g.dummyOnce.Do(func() {
		g.dummyHash, _ = g.hasher.Hash("kreltrack-unknown-user")
	})
	_ = g.hasher.Verify(password, g.dummyHash)
}
