package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/ports"
)

// seedActor is one entry of the seed file
type seedActor struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type seedFile struct {
	Actors []seedActor `yaml:"actors"`
}

// loadSeedFile reads actors from a YAML document such as
//
//	actors:
//	  - username: fin
//	    password: secret123
//	    role: finance
func loadSeedFile(path string) ([]seedActor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return doc.Actors, nil
}

type seeder struct {
	repo      ports.ActorRepository
	passwords ports.PasswordService
}

// ensureActor creates the actor unless the username is already taken.
// It reports whether a row was written.
func (s *seeder) ensureActor(ctx context.Context, entry seedActor) (bool, error) {
	role, err := domain.ParseRole(entry.Role)
	if err != nil {
		return false, err
	}
	if err := domain.ValidatePassword(entry.Password); err != nil {
		return false, err
	}

	_, err = s.repo.FindByUsername(ctx, entry.Username)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, err
	}

	hash, err := s.passwords.HashPassword(entry.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	actor, err := domain.NewActor(entry.Username, hash, role)
	if err != nil {
		return false, err
	}
	if err := s.repo.Create(ctx, actor); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
