package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/handler"
	"github.com/sowerhq/sower/internal/middleware"
	"github.com/sowerhq/sower/internal/service"
)

// ProjectHandler exposes the campaigns donors can browse and fund.
type ProjectHandler struct {
	projects service.ProjectService
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(projects service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type createProjectRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	TargetAmount string `json:"targetAmount"`
	Currency     string `json:"currency,omitempty"`
}

type projectResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	TargetAmount  string    `json:"targetAmount"`
	CurrentAmount string    `json:"currentAmount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toProjectResponse(p *domain.Project) projectResponse {
	return projectResponse{
		ID:            p.ID.String(),
		Name:          p.Name,
		Description:   p.Description,
		TargetAmount:  p.TargetAmount.StringFixed(2),
		CurrentAmount: p.CurrentAmount.StringFixed(2),
		Currency:      p.Currency,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
	}
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createProjectRequest
	if err := handler.DecodeJSON(w, r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	target, err := decimal.NewFromString(req.TargetAmount)
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("project.create", "Invalid target amount"))
		return
	}

	project, err := h.projects.CreateProject(r.Context(), service.CreateProjectParams{
		Name:         req.Name,
		Description:  req.Description,
		TargetAmount: target,
		Currency:     req.Currency,
		OwnerID:      userID,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, toProjectResponse(project))
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	status := domain.ProjectStatus(r.URL.Query().Get("status"))

	projects, err := h.projects.ListProjects(r.Context(), status, limit, offset)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i]))
	}
	handler.JSON(w, http.StatusOK, map[string]any{"projects": out})
}

// Get handles GET /api/projects/{id}.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	project, err := h.projects.GetProject(r.Context(), projectID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, toProjectResponse(project))
}
