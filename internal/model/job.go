package model

import (
	"time"

	"github.com/google/uuid"
)

// Job status and type values
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"

	JobTypeFullTime = "full-time"
	JobTypePartTime = "part-time"
)

// EditableJobInfo is part of a job posting that the owning employer can edit
type EditableJobInfo struct {
	JobTitle       string `gorm:"type:text" json:"job_title"`
	JobDescription string `gorm:"type:text" json:"job_description"`
	JobImage       string `gorm:"type:text" json:"job_image"`
	Experience     string `gorm:"type:text" json:"experience"`
	Skills         string `gorm:"type:text" json:"skills"`
	ContactNumber  string `gorm:"type:text" json:"contact_number"`
	Address        string `gorm:"type:text" json:"address"`
	Barangay       string `gorm:"type:text" json:"barangay"`
	CompanyName    string `gorm:"type:text" json:"company_name"`
	ApplicantLimit int    `gorm:"default:0" json:"applicant_limit"`
	JobStatus      string `gorm:"type:text;default:'open';check:job_status IN ('open', 'closed')" json:"job_status"`
	JobType        string `gorm:"type:text;default:'full-time';check:job_type IN ('full-time', 'part-time')" json:"job_type"`
}

// Job is gorm model for a job posting owned by one employer
type Job struct {
	ID         uint      `gorm:"primaryKey;autoIncrement;->" json:"id"`
	EmployerID uuid.UUID `gorm:"type:uuid;not null;index;<-:create" json:"employer_id"`
	Employer   User      `gorm:"foreignKey:EmployerID;references:ID" json:"-"`
	EditableJobInfo
	CreatedAt    *time.Time    `gorm:"type:timestamptz;default:CURRENT_TIMESTAMP;->" json:"created_at"`
	Applications []Application `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsOpen reports whether the job accepts applications.
func (j *Job) IsOpen() bool {
	return j.JobStatus == "" || j.JobStatus == JobStatusOpen
}

// ValidJobStatus reports whether s is a known job status.
func ValidJobStatus(s string) bool {
	return s == JobStatusOpen || s == JobStatusClosed
}

// ValidJobType reports whether s is a known job type.
func ValidJobType(s string) bool {
	return s == JobTypeFullTime || s == JobTypePartTime
}
