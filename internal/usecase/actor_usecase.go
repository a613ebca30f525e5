package usecase

import (
	"context"
	"fmt"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/infra/logger"
	"github.com/contractflow/contractflow/internal/policy"
	"github.com/contractflow/contractflow/internal/ports"
)

// CreateActorRequest represents the request to create a user
type CreateActorRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UpdateActorRequest carries optional changes; nil fields stay untouched
type UpdateActorRequest struct {
	Password *string      `json:"password,omitempty"`
	Role     *domain.Role `json:"role,omitempty"`
}

// ActorUseCase handles user administration
type ActorUseCase struct {
	repo      ports.ActorRepository
	passwords ports.PasswordService
	log       logger.Logger
}

func NewActorUseCase(repo ports.ActorRepository, passwords ports.PasswordService, log logger.Logger) *ActorUseCase {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ActorUseCase{repo: repo, passwords: passwords, log: log}
}

func (uc *ActorUseCase) List(ctx context.Context, actor *domain.Actor) ([]*domain.Actor, error) {
	if !policy.CanManageActors(actor) {
		return nil, domain.Forbidden("administrator access required")
	}
	actors, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return actors, nil
}

func (uc *ActorUseCase) Create(ctx context.Context, actor *domain.Actor, req CreateActorRequest) (*domain.Actor, error) {
	if !policy.CanManageActors(actor) {
		return nil, domain.Forbidden("administrator access required")
	}
	if req.Role == "" {
		req.Role = domain.RoleNormal
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := uc.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	created, err := domain.NewActor(req.Username, hash, req.Role)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, created); err != nil {
		return nil, err
	}

	uc.log.Info(ctx, "User created", map[string]interface{}{
		"user_id":    created.ID,
		"username":   created.Username,
		"role":       created.Role,
		"created_by": actor.ID,
	})
	return created, nil
}

func (uc *ActorUseCase) Update(ctx context.Context, actor *domain.Actor, id string, req UpdateActorRequest) (*domain.Actor, error) {
	if !policy.CanManageActors(actor) {
		return nil, domain.Forbidden("administrator access required")
	}
	target, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Password != nil {
		if err := domain.ValidatePassword(*req.Password); err != nil {
			return nil, err
		}
		hash, err := uc.passwords.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		target.PasswordHash = hash
	}
	if req.Role != nil {
		if !req.Role.IsValid() {
			return nil, domain.Validation("invalid role: " + string(*req.Role))
		}
		target.Role = *req.Role
	}

	if err := uc.repo.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Delete removes a user. Contracts and log rows keep the dangling id.
func (uc *ActorUseCase) Delete(ctx context.Context, actor *domain.Actor, id string) error {
	if !policy.CanManageActors(actor) {
		return domain.Forbidden("administrator access required")
	}
	if actor.ID == id {
		return domain.Validation("you cannot delete yourself")
	}
	if _, err := uc.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}

	uc.log.Info(ctx, "User deleted", map[string]interface{}{
		"user_id":    id,
		"deleted_by": actor.ID,
	})
	return nil
}
