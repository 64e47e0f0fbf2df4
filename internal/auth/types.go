package auth

import "time"

// Role classifies an account. Provider and admin accounts are never
// self-assignable through public signup.
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RolePatient, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Account represents one registered person. PasswordHash is one-way and is
// never serialized into any response payload.
type Account struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Role             Role
	ConsentGiven     bool
	ConsentAt        time.Time
	FailedLoginCount int
	AccountWarning   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Credentials is the result of a successful signup or login: a signed session
// token plus the account it belongs to. Callers project Account down to its
// public fields before responding.
type Credentials struct {
	Token     string
	ExpiresAt time.Time
	Account   Account
}

// SignupInput carries the public signup request fields. Role is accepted only
// on the privileged provisioning path; public signup always produces a
// patient account.
type SignupInput struct {
	Name         string
	Email        string
	Password     string
	Role         Role
	ConsentGiven bool
}
