package auth

import "errors"

var (
	// ErrUnauthenticated covers missing and failed credentials alike: unknown
	// email, wrong password, or a token whose subject no longer exists.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrInvalidToken indicates the token failed validation. Expired, forged
	// and malformed tokens all collapse into this single outcome; callers are
	// not told which.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrForbidden indicates an authenticated principal whose role does not
	// permit the attempted action.
	ErrForbidden = errors.New("auth: forbidden")
)
