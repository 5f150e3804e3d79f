package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/sowerhq/sower/internal/domain"
	"github.com/sowerhq/sower/internal/service"
)

func TestProjectHandler_Create(t *testing.T) {
	ownerID := uuid.New()

	svc := &mockProjectService{
		createFunc: func(_ context.Context, params service.CreateProjectParams) (*domain.Project, error) {
			if params.Name != "Clean Water" {
				t.Errorf("Name = %q, want Clean Water", params.Name)
			}
			if params.TargetAmount.String() != "100000" {
				t.Errorf("TargetAmount = %s, want 100000", params.TargetAmount)
			}
			if params.OwnerID != ownerID {
				t.Errorf("OwnerID = %s, want %s", params.OwnerID, ownerID)
			}
			p := testProject(params.Name)
			p.OwnerID = params.OwnerID
			return p, nil
		},
	}
	h := NewProjectHandler(svc)

	req := newRequest(http.MethodPost, "/api/projects", `{"name":"Clean Water","targetAmount":"100000","currency":"NGN"}`, ownerID)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var got projectResponse
	decodeBody(t, rec, &got)
	if got.Name != "Clean Water" {
		t.Errorf("Name = %q, want Clean Water", got.Name)
	}
	if got.TargetAmount != "100000.00" {
		t.Errorf("TargetAmount = %q, want 100000.00", got.TargetAmount)
	}
}

func TestProjectHandler_Create_InvalidAmount(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{})

	req := newRequest(http.MethodPost, "/api/projects", `{"name":"X","targetAmount":"not-a-number"}`, uuid.New())
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProjectHandler_List(t *testing.T) {
	svc := &mockProjectService{
		listFunc: func(_ context.Context, status domain.ProjectStatus, limit, offset int32) ([]domain.Project, error) {
			if status != domain.ProjectStatusActive {
				t.Errorf("status = %q, want ACTIVE", status)
			}
			if limit != 5 || offset != 10 {
				t.Errorf("limit/offset = %d/%d, want 5/10", limit, offset)
			}
			return []domain.Project{*testProject("One"), *testProject("Two")}, nil
		},
	}
	h := NewProjectHandler(svc)

	req := newRequest(http.MethodGet, "/api/projects?status=ACTIVE&limit=5&offset=10", "", uuid.Nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got struct {
		Projects []projectResponse `json:"projects"`
	}
	decodeBody(t, rec, &got)
	if len(got.Projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(got.Projects))
	}
}

func TestProjectHandler_Get(t *testing.T) {
	project := testProject("Solar School")

	svc := &mockProjectService{
		getFunc: func(_ context.Context, id uuid.UUID) (*domain.Project, error) {
			if id != project.ID {
				return nil, domain.ErrProjectNotFound
			}
			return project, nil
		},
	}
	h := NewProjectHandler(svc)

	req := newRequest(http.MethodGet, "/api/projects/"+project.ID.String(), "", uuid.Nil)
	req.SetPathValue("id", project.ID.String())
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got projectResponse
	decodeBody(t, rec, &got)
	if got.ID != project.ID.String() {
		t.Errorf("ID = %q, want %q", got.ID, project.ID)
	}
	if got.CurrentAmount != "2500.50" {
		t.Errorf("CurrentAmount = %q, want 2500.50", got.CurrentAmount)
	}
}

func TestProjectHandler_Get_NotFound(t *testing.T) {
	svc := &mockProjectService{
		getFunc: func(context.Context, uuid.UUID) (*domain.Project, error) {
			return nil, domain.ErrProjectNotFound
		},
	}
	h := NewProjectHandler(svc)

	req := newRequest(http.MethodGet, "/api/projects/"+uuid.NewString(), "", uuid.Nil)
	req.SetPathValue("id", uuid.NewString())
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProjectHandler_Get_BadID(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{})

	req := newRequest(http.MethodGet, "/api/projects/not-a-uuid", "", uuid.Nil)
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
