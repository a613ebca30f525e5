package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/ports"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrTooManyAttempts    = errors.New("too many failed login attempts, try again later")
)

// LoginResult is returned on a successful login
type LoginResult struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        *domain.Actor `json:"user"`
}

// AuthUseCase verifies credentials and resolves token holders to actors
type AuthUseCase struct {
	repo      ports.ActorRepository
	passwords ports.PasswordService
	tokens    ports.TokenService
	throttle  ports.LoginThrottle
	log       logger.Logger
}

func NewAuthUseCase(
	repo ports.ActorRepository,
	passwords ports.PasswordService,
	tokens ports.TokenService,
	throttle ports.LoginThrottle,
	log logger.Logger,
) *AuthUseCase {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AuthUseCase{
		repo:      repo,
		passwords: passwords,
		tokens:    tokens,
		throttle:  throttle,
		log:       log,
	}
}

// VerifyCredential returns the actor owning username when secret matches.
func (uc *AuthUseCase) VerifyCredential(ctx context.Context, username, secret string) (*domain.Actor, error) {
	actor, err := uc.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if err := uc.passwords.ComparePassword(actor.PasswordHash, secret); err != nil {
		return nil, ErrInvalidCredentials
	}
	return actor, nil
}

// Login verifies the credential and issues an access token.
func (uc *AuthUseCase) Login(ctx context.Context, username, secret, clientIP string) (*LoginResult, error) {
	key := strings.ToLower(strings.TrimSpace(username))
	if uc.throttle != nil {
		allowed, err := uc.throttle.Allow(ctx, key)
		if err != nil {
			uc.log.Error(ctx, "Failed to check login throttle", err, map[string]interface{}{"username": key})
		} else if !allowed {
			logger.LogSecurityEvent(ctx, uc.log, "login_throttled", "MEDIUM", map[string]interface{}{
				"username": key,
				"ip":       clientIP,
			})
			return nil, ErrTooManyAttempts
		}
	}

	actor, err := uc.VerifyCredential(ctx, username, secret)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) && uc.throttle != nil {
			if recErr := uc.throttle.RecordFailure(ctx, key); recErr != nil {
				uc.log.Error(ctx, "Failed to record login failure", recErr, nil)
			}
		}
		logger.LogAuthEvent(ctx, uc.log, "login", "", clientIP, false, map[string]interface{}{"username": key})
		return nil, err
	}

	token, err := uc.tokens.GenerateAccessToken(ports.TokenClaims{
		Subject:  actor.ID,
		Username: actor.Username,
		Role:     string(actor.Role),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	if uc.throttle != nil {
		if err := uc.throttle.Reset(ctx, key); err != nil {
			uc.log.Error(ctx, "Failed to reset login throttle", err, nil)
		}
	}
	logger.LogAuthEvent(ctx, uc.log, "login", actor.ID, clientIP, true, nil)

	return &LoginResult{AccessToken: token, TokenType: "bearer", User: actor}, nil
}

// Authenticate resolves a bearer token to the current state of its actor, so
// role changes and deletions take effect on the next request.
func (uc *AuthUseCase) Authenticate(ctx context.Context, token string) (*domain.Actor, error) {
	claims, err := uc.tokens.ValidateAccessToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	actor, err := uc.repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return actor, nil
}

// ChangePassword replaces the actor's credential after checking the current one.
func (uc *AuthUseCase) ChangePassword(ctx context.Context, actor *domain.Actor, current, next string) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	stored, err := uc.repo.FindByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := uc.passwords.ComparePassword(stored.PasswordHash, current); err != nil {
		return domain.Validation("current password is incorrect")
	}
	if err := domain.ValidatePassword(next); err != nil {
		return err
	}

	hash, err := uc.passwords.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	stored.PasswordHash = hash
	if err := uc.repo.Update(ctx, stored); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	logger.LogAuthEvent(ctx, uc.log, "change_password", actor.ID, "", true, nil)
	return nil
}
