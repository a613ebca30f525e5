package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the authorization class of an actor
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleFinance       Role = "finance"
	RoleNormal        Role = "normal"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdministrator, RoleFinance, RoleNormal:
		return true
	}
	return false
}

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.TrimSpace(raw))
	if !r.IsValid() {
		return "", Validation("invalid role: " + raw)
	}
	return r, nil
}

// Actor is an authenticated principal
type Actor struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	MinUsernameLength = 2
	MaxUsernameLength = 64
	MinPasswordLength = 6
)

// NewActor creates an actor with an already hashed credential.
func NewActor(username, passwordHash string, role Role) (*Actor, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, Validation("invalid role: " + string(role))
	}
	return &Actor{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return Validation("username must be between 2 and 64 characters")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return Validation("password must be at least 6 characters")
	}
	return nil
}

func (a *Actor) IsAdministrator() bool {
	return a != nil && a.Role == RoleAdministrator
}

// Owns reports whether the actor created the contract.
func (a *Actor) Owns(c *Contract) bool {
	return a != nil && c != nil && c.CreatedBy == a.ID
}
