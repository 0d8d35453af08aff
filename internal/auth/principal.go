package auth

import "time"

// Principal is an authenticated identity: the user record with its role
// resolved against current storage state, never against stale token claims
// alone.
type Principal struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
