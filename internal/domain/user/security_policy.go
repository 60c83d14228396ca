package user

import "time"

// SecurityPolicy controls login lockout.
type SecurityPolicy struct {
	MaxLoginAttempts       int
	AttemptWindowMinutes   int
	LockoutDurationMinutes int
}

// DefaultSecurityPolicy locks an account for 15 minutes after 5 failures within 15 minutes.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		MaxLoginAttempts:       5,
		AttemptWindowMinutes:   15,
		LockoutDurationMinutes: 15,
	}
}

func (p SecurityPolicy) LockoutDuration() time.Duration {
	return time.Duration(p.LockoutDurationMinutes) * time.Minute
}

func (p SecurityPolicy) AttemptWindow() time.Duration {
	return time.Duration(p.AttemptWindowMinutes) * time.Minute
}
