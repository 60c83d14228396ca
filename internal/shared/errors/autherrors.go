package errors

import (
	"fmt"
	"time"
)

// Authentication failures all surface as unauthorized errors; the Details field
// carries the specific reason so callers can render a precise message.
const (
	AuthReasonInvalidCredentials = "invalid_credentials"
	AuthReasonAccountLocked      = "account_locked"
	AuthReasonTokenExpired       = "token_expired"
	AuthReasonTokenInvalid       = "token_invalid"
	AuthReasonMissingIdentity    = "missing_identity"
)

// NewInvalidCredentialsError hides whether the username or the password was wrong.
func NewInvalidCredentialsError(attemptsLeft int) *AppError {
	msg := "invalid username or password"
	if attemptsLeft > 0 {
		msg = fmt.Sprintf("invalid username or password, %d attempts left", attemptsLeft)
	}
	return NewUnauthorizedError(msg, AuthReasonInvalidCredentials)
}

// NewAccountLockedError reports a temporary lockout.
func NewAccountLockedError(remaining time.Duration) *AppError {
	remaining = remaining.Round(time.Second)
	return NewUnauthorizedError(
		fmt.Sprintf("account temporarily locked, retry in %s", remaining),
		AuthReasonAccountLocked,
	)
}

// NewTokenExpiredError reports an expired session token.
func NewTokenExpiredError() *AppError {
	return NewUnauthorizedError("session expired", AuthReasonTokenExpired)
}

// NewTokenInvalidError reports a malformed or badly signed session token.
func NewTokenInvalidError() *AppError {
	return NewUnauthorizedError("invalid session token", AuthReasonTokenInvalid)
}

// NewMissingIdentityError is returned when a write arrives without an acting user.
func NewMissingIdentityError() *AppError {
	return NewUnauthorizedError("acting user is required", AuthReasonMissingIdentity)
}

// IsAccountLockedError checks whether the error is an account lockout.
func IsAccountLockedError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeUnauthorized && appErr.Details == AuthReasonAccountLocked
}
