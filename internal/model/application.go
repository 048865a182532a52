package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	// ApplicationStatusPending indicates that the application waits for the employer
	ApplicationStatusPending = "pending"
	// ApplicationStatusScheduled indicates that an interview has been scheduled
	ApplicationStatusScheduled = "scheduled"
	// ApplicationStatusAccepted indicates that the employer accepted the applicant
	ApplicationStatusAccepted = "accepted"
	// ApplicationStatusRejected indicates that the application has been rejected
	ApplicationStatusRejected = "rejected"
)

// ApplicationStatuses lists every status in display order.
var ApplicationStatuses = []string{
	ApplicationStatusPending,
	ApplicationStatusScheduled,
	ApplicationStatusAccepted,
	ApplicationStatusRejected,
}

// ValidApplicationStatus reports whether s is one of ApplicationStatuses.
func ValidApplicationStatus(s string) bool {
	for _, v := range ApplicationStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Application represents one seeker's submission to one job.
// FullName, PositionApplied, JobTitle and CompanyName are denormalized copies for rendering.
type Application struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	SeekerID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_seeker_job" json:"seeker_id"`
	Seeker   User      `gorm:"foreignKey:SeekerID;references:ID;constraint:OnDelete:CASCADE" json:"-"`

	JobID uint `gorm:"not null;index;uniqueIndex:idx_seeker_job" json:"job_id"`
	Job   *Job `gorm:"foreignKey:JobID;references:ID" json:"-"`

	FullName        string `gorm:"type:text" json:"full_name"`
	Email           string `gorm:"type:text" json:"email"`
	ContactNumber   string `gorm:"type:text" json:"contact_number"`
	PositionApplied string `gorm:"type:text" json:"position_applied"`
	JobTitle        string `gorm:"type:text" json:"job_title"`
	CompanyName     string `gorm:"type:text" json:"company_name"`

	Status string `gorm:"type:text;not null;default:'pending';index;check:status IN ('pending', 'scheduled', 'accepted', 'rejected')" json:"status"`

	AppliedAt   *time.Time `gorm:"type:timestamptz;<-:create" json:"applied_at"`
	ScheduledAt *time.Time `gorm:"type:timestamptz" json:"scheduled_at,omitempty"`
	UpdatedAt   *time.Time `gorm:"type:timestamptz;autoUpdateTime:false" json:"updated_at"`

	RejectionReason        string `gorm:"type:text" json:"rejection_reason,omitempty"`
	RejectionComment       string `gorm:"type:text" json:"rejection_comment,omitempty"`
	AcceptanceRequirements string `gorm:"type:text" json:"acceptance_requirements,omitempty"`
	InterviewDetails       string `gorm:"type:text" json:"interview_details,omitempty"`

	ResumeLink string `gorm:"type:text" json:"resume_link,omitempty"`
	ResumeName string `gorm:"type:text" json:"resume_name,omitempty"`
}

// IsPending reports whether the seeker may still cancel the application.
func (a *Application) IsPending() bool {
	return a.Status == ApplicationStatusPending
}
