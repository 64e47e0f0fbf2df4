package auth

import "errors"

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("auth: not found")
	// ErrConflict indicates the email is already registered. Surfacing this
	// distinctly at signup is an accepted existence leak; login never does.
	ErrConflict = errors.New("auth: email already registered")
	// ErrValidation covers missing or malformed signup input, including a
	// missing consent flag.
	ErrValidation = errors.New("auth: invalid input")
	// ErrInvalidCredentials is returned for every login failure cause so the
	// login endpoint cannot be used to enumerate registered emails.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
