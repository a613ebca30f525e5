package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/contractflow/contractflow/internal/domain"
	"github.com/contractflow/contractflow/internal/ports"
)

// PostgresActorRepository implements ActorRepository using PostgreSQL
type PostgresActorRepository struct {
	db *sql.DB
}

// NewPostgresActorRepository creates a new PostgreSQL actor repository
func NewPostgresActorRepository(db *sql.DB) *PostgresActorRepository {
	return &PostgresActorRepository{db: db}
}

var _ ports.ActorRepository = (*PostgresActorRepository)(nil)

func (r *PostgresActorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	if actor == nil {
		return fmt.Errorf("actor cannot be nil")
	}

	query := `
		INSERT INTO actors (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		actor.ID,
		actor.Username,
		actor.PasswordHash,
		string(actor.Role),
		actor.CreatedAt,
	)
	err = translate(err, "create user", "user not found")
	if domain.KindOf(err) == domain.KindConflict {
		return domain.Conflict("username already exists")
	}
	return err
}

func (r *PostgresActorRepository) FindByID(ctx context.Context, id string) (*domain.Actor, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM actors
		WHERE id = $1
	`

	actor, err := scanActor(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err, "find user by ID", "user not found")
	}
	return actor, nil
}

func (r *PostgresActorRepository) FindByUsername(ctx context.Context, username string) (*domain.Actor, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM actors
		WHERE username = $1
		LIMIT 1
	`

	actor, err := scanActor(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, translate(err, "find user by username", "user not found")
	}
	return actor, nil
}

func (r *PostgresActorRepository) List(ctx context.Context) ([]*domain.Actor, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM actors
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	actors := []*domain.Actor{}
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		actors = append(actors, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return actors, nil
}

func (r *PostgresActorRepository) Update(ctx context.Context, actor *domain.Actor) error {
	query := `
		UPDATE actors
		SET password_hash = $2, role = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, actor.ID, actor.PasswordHash, string(actor.Role))
	if err != nil {
		return translate(err, "update user", "user not found")
	}
	return expectOneRow(result, "user not found")
}

// Delete removes the actor row. Contracts and log rows keep the id.
func (r *PostgresActorRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM actors WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete user", "user not found")
	}
	return expectOneRow(result, "user not found")
}

func scanActor(row rowScanner) (*domain.Actor, error) {
	var a domain.Actor
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
