package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
)

// CreateProject inserts a new project and fills in generated fields.
func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO projects (name, description, target_amount, currency, status, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, current_amount, created_at, updated_at`,
		p.Name, p.Description, p.TargetAmount, p.Currency, p.Status, p.OwnerID,
	).Scan(&p.ID, &p.CurrentAmount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Internal(err, "project.create", "failed to create project")
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, description, target_amount, current_amount, currency, status, owner_id, created_at, updated_at
		FROM projects
		WHERE id = $1`, id)

	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, domain.Internal(err, "project.get", "failed to get project")
	}
	return p, nil
}

// ListProjects returns projects, optionally filtered by status.
func (s *Store) ListProjects(ctx context.Context, status domain.ProjectStatus, limit, offset int32) ([]domain.Project, error) {
	query := `
		SELECT id, name, description, target_amount, current_amount, currency, status, owner_id, created_at, updated_at
		FROM projects`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, status, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal(err, "project.list", "failed to list projects")
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, domain.Internal(err, "project.list", "failed to scan project")
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// IncrementProjectAmount adds a confirmed payment amount to the project's
// running total. The addition happens in SQL so concurrent payments never
// lose an update, and the amount only moves in one direction.
func (s *Store) IncrementProjectAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE projects
		SET current_amount = current_amount + $2, updated_at = now()
		WHERE id = $1`, id, amount)
	if err != nil {
		return domain.Internal(err, "project.increment", "failed to increment project amount")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.TargetAmount, &p.CurrentAmount,
		&p.Currency, &p.Status, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
