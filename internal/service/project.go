package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
)

// ProjectService manages the campaigns donors subscribe to.
type ProjectService interface {
	CreateProject(ctx context.Context, params CreateProjectParams) (*domain.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	ListProjects(ctx context.Context, status domain.ProjectStatus, limit, offset int32) ([]domain.Project, error)
}

// CreateProjectParams contains parameters for creating a project.
type CreateProjectParams struct {
	Name         string
	Description  string
	TargetAmount decimal.Decimal
	Currency     string
	OwnerID      uuid.UUID
}

type projectService struct {
	store  Store
	logger *slog.Logger
}

// NewProjectService creates a new ProjectService instance.
func NewProjectService(store Store, logger *slog.Logger) ProjectService {
	return &projectService{store: store, logger: logger}
}

func (s *projectService) CreateProject(ctx context.Context, params CreateProjectParams) (*domain.Project, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domain.Errorf(domain.EINVALID, "project.create", "Project name is required")
	}
	if params.TargetAmount.IsNegative() {
		return nil, domain.Errorf(domain.EINVALID, "project.create", "Target amount cannot be negative")
	}
	if params.OwnerID == uuid.Nil {
		return nil, domain.Errorf(domain.EINVALID, "project.create", "Project owner is required")
	}

	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "NGN"
	}
	if len(currency) != 3 {
		return nil, domain.Errorf(domain.EINVALID, "project.create", "Currency must be a 3-letter ISO code")
	}

	project := &domain.Project{
		Name:          name,
		Description:   params.Description,
		TargetAmount:  params.TargetAmount,
		CurrentAmount: decimal.Zero,
		Currency:      currency,
		Status:        domain.ProjectStatusActive,
		OwnerID:       params.OwnerID,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		slog.String("project_id", project.ID.String()),
		slog.String("name", project.Name))
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	return s.store.GetProject(ctx, id)
}

func (s *projectService) ListProjects(ctx context.Context, status domain.ProjectStatus, limit, offset int32) ([]domain.Project, error) {
	if status != "" && !status.Valid() {
		return nil, domain.Errorf(domain.EINVALID, "project.list", "Invalid project status %q", status)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListProjects(ctx, status, limit, offset)
}
