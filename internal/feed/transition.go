package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

// Transition validation errors
var (
	ErrInvalidTransition    = errors.New("Status must be one of scheduled, accepted, rejected")
	ErrConfirmationRequired = errors.New("Accepting or rejecting an application must be confirmed")
	ErrScheduleIncomplete   = errors.New("Both interview date and time are required to schedule")
)

// StatusChange is an employer's request to move an application to another status.
type StatusChange struct {
	Status                 string `json:"status" binding:"required"`
	Confirm                bool   `json:"confirm"`
	ScheduledDate          string `json:"scheduled_date"`
	ScheduledTime          string `json:"scheduled_time"`
	InterviewDetails       string `json:"interview_details"`
	RejectionReason        string `json:"rejection_reason"`
	RejectionComment       string `json:"rejection_comment"`
	AcceptanceRequirements string `json:"acceptance_requirements"`
}

// ComposeSchedule joins a YYYY-MM-DD date and an HH:MM time in loc.
func ComposeSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, ErrScheduleIncomplete
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("Invalid interview date or time: %w", err)
	}
	return t, nil
}

// Plan validates req and returns the column updates to write together with app patched
// the same way. Outcome fields that belong to other statuses are cleared. Nothing enforces
// that app is still pending; a resolved application can be moved again.
func Plan(app model.Application, req StatusChange, loc *time.Location, now time.Time) (map[string]interface{}, model.Application, error) {
	status := strings.ToLower(strings.TrimSpace(req.Status))

	var scheduledAt *time.Time
	outcome := model.Application{}
	switch status {
	case model.ApplicationStatusScheduled:
		at, err := ComposeSchedule(req.ScheduledDate, req.ScheduledTime, loc)
		if err != nil {
			return nil, app, err
		}
		scheduledAt = &at
		outcome.InterviewDetails = req.InterviewDetails
	case model.ApplicationStatusAccepted:
		if !req.Confirm {
			return nil, app, ErrConfirmationRequired
		}
		outcome.AcceptanceRequirements = req.AcceptanceRequirements
	case model.ApplicationStatusRejected:
		if !req.Confirm {
			return nil, app, ErrConfirmationRequired
		}
		outcome.RejectionReason = req.RejectionReason
		outcome.RejectionComment = req.RejectionComment
	default:
		return nil, app, ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":                  status,
		"updated_at":              now,
		"scheduled_at":            scheduledAt,
		"interview_details":       outcome.InterviewDetails,
		"acceptance_requirements": outcome.AcceptanceRequirements,
		"rejection_reason":        outcome.RejectionReason,
		"rejection_comment":       outcome.RejectionComment,
	}

	app.Status = status
	app.UpdatedAt = &now
	app.ScheduledAt = scheduledAt
	app.InterviewDetails = outcome.InterviewDetails
	app.AcceptanceRequirements = outcome.AcceptanceRequirements
	app.RejectionReason = outcome.RejectionReason
	app.RejectionComment = outcome.RejectionComment
	return updates, app, nil
}
