package ports

import (
	"context"
	"time"

	"github.com/contractflow/contractflow/internal/domain"
)

// BlobStorage defines the interface for attachment content storage. Keys are
// opaque to callers.
type BlobStorage interface {
	// Save stores data under key and returns the key actually used
	Save(ctx context.Context, key string, data []byte) (string, error)

	// Read returns the stored bytes or a NotFound domain error
	Read(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// DocumentRenderer turns a fully populated contract into an exportable document
type DocumentRenderer interface {
	Render(contract *domain.Contract) ([]byte, error)
	ContentType() string
}

// TokenClaims is the identity carried by an access token
type TokenClaims struct {
	Subject  string `json:"sub"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TokenService issues and validates access tokens
type TokenService interface {
	GenerateAccessToken(claims TokenClaims) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// PasswordService hashes and verifies credentials
type PasswordService interface {
	HashPassword(password string) (string, error)
	ComparePassword(hashedPassword, password string) error
}

// TransitionObserver receives the outcome of every engine action
type TransitionObserver interface {
	ObserveTransition(action domain.Action, outcome string, duration time.Duration)
}

// LoginThrottle limits credential guessing per key
type LoginThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
