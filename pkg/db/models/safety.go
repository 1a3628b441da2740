package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/pkg/enums"
)

// Incident is a reported site incident.
type Incident struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID   *uuid.UUID          `gorm:"column:project_id;type:uuid;index"`
	Title       string              `gorm:"column:title;not null"`
	Description *string             `gorm:"column:description"`
	Severity    enums.PriorityLevel `gorm:"column:severity;type:priority_level;not null;default:'medium'"`
	Location    *string             `gorm:"column:location"`
	OccurredAt  time.Time           `gorm:"column:occurred_at;not null"`
	ReportedBy  uuid.UUID           `gorm:"column:reported_by;type:uuid;not null"`
	Resolved    bool                `gorm:"column:resolved;not null;default:false"`
	ResolvedAt  *time.Time          `gorm:"column:resolved_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// SafetyAudit is a scheduled or completed safety audit for a project.
type SafetyAudit struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID   uuid.UUID  `gorm:"column:project_id;type:uuid;not null;index"`
	Title       string     `gorm:"column:title;not null"`
	AuditDate   time.Time  `gorm:"column:audit_date;not null"`
	AuditorID   uuid.UUID  `gorm:"column:auditor_id;type:uuid;not null"`
	Score       *int       `gorm:"column:score"`
	Findings    *string    `gorm:"column:findings"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// SafetyChecklist is a named checklist with JSON-encoded items. Items are
// opaque to the backend; the client renders and toggles them.
type SafetyChecklist struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID *uuid.UUID `gorm:"column:project_id;type:uuid;index"`
	Title     string     `gorm:"column:title;not null"`
	Items     []byte     `gorm:"column:items;type:jsonb;not null;default:'[]'"`
	CreatedBy uuid.UUID  `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// SiteInspection records an inspection visit and its outcome.
type SiteInspection struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID      uuid.UUID  `gorm:"column:project_id;type:uuid;not null;index"`
	InspectionDate time.Time  `gorm:"column:inspection_date;not null"`
	InspectorID    uuid.UUID  `gorm:"column:inspector_id;type:uuid;not null"`
	Passed         *bool      `gorm:"column:passed"`
	Notes          *string    `gorm:"column:notes"`
	FollowUpDate   *time.Time `gorm:"column:follow_up_date"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// NCRReport is a non-conformance report raised against a project.
type NCRReport struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProjectID        uuid.UUID       `gorm:"column:project_id;type:uuid;not null;index"`
	NCRNumber        string          `gorm:"column:ncr_number;not null;uniqueIndex:idx_ncr_reports_ncr_number"`
	Title            string          `gorm:"column:title;not null"`
	Description      *string         `gorm:"column:description"`
	Status           enums.NCRStatus `gorm:"column:status;type:ncr_status;not null;default:'open'"`
	CorrectiveAction *string         `gorm:"column:corrective_action"`
	RaisedBy         uuid.UUID       `gorm:"column:raised_by;type:uuid;not null"`
	ClosedAt         *time.Time      `gorm:"column:closed_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
