package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project-related domain errors.
var (
	ErrProjectNotFound = &Error{Code: ENOTFOUND, Message: "Project not found"}
	ErrProjectInactive = &Error{Code: EINVALID, Message: "Project is not accepting donations"}
)

// ProjectStatus represents the lifecycle state of a fundraising project.
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "DRAFT"
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusArchived  ProjectStatus = "ARCHIVED"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusActive, ProjectStatusCompleted, ProjectStatusArchived:
		return true
	}
	return false
}

// Project is a fundraising campaign that donors subscribe to.
// CurrentAmount only ever grows, and only through confirmed payments.
type Project struct {
	ID            uuid.UUID
	Name          string
	Description   string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Currency      string
	Status        ProjectStatus
	OwnerID       uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AcceptsDonations reports whether new subscriptions may target the project.
func (p *Project) AcceptsDonations() bool {
	return p.Status == ProjectStatusActive
}
