// Package application provides HTTP handlers for job application operations.
package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/feed"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/metrics"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/realtime"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

// ApplicationController handles job application related endpoints
type ApplicationController struct {
	DB       *database.DBinstanceStruct
	Broker   realtime.Broker
	Metrics  *metrics.Collector
	Location *time.Location
	now      func() time.Time

	// streams is cancelled by StopStreams
	streams     context.Context
	stopStreams context.CancelFunc
}

// NewApplicationController creates a new instance of ApplicationController.
// broker and collector may be nil. loc is the zone interview times are entered in.
func NewApplicationController(db *database.DBinstanceStruct, broker realtime.Broker, collector *metrics.Collector, loc *time.Location) *ApplicationController {
	if loc == nil {
		loc = time.Local
	}
	streams, stop := context.WithCancel(context.Background())
	return &ApplicationController{
		DB:          db,
		Broker:      broker,
		Metrics:     collector,
		Location:    loc,
		now:         time.Now,
		streams:     streams,
		stopStreams: stop,
	}
}

// StopStreams ends every open live feed and any opened later. Plain requests are unaffected.
func (j *ApplicationController) StopStreams() {
	if j.stopStreams != nil {
		j.stopStreams()
	}
}

// streamContext derives a context from the request that also ends on StopStreams.
func (j *ApplicationController) streamContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if j.streams == nil {
		return ctx, cancel
	}
	release := context.AfterFunc(j.streams, cancel)
	return ctx, func() {
		release()
		cancel()
	}
}

func (j *ApplicationController) clock() time.Time {
	if j.now == nil {
		return time.Now()
	}
	return j.now()
}

// ApplyRequest is the body of a new application
type ApplyRequest struct {
	JobID           uint   `json:"job_id" binding:"required"`
	PositionApplied string `json:"position_applied"`
	ResumeLink      string `json:"resume_link"`
	ResumeName      string `json:"resume_name"`
}

// ApplicationHandler handles the creation of a new job application by a seeker.
// Applicant details are copied from the seeker profile and the job at submit time.
// @Summary Create job application
// @Description Only seeker can access this endpoint
// @Tags Application
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param application body ApplyRequest true "Application information"
// @Success 201 {object} model.Application "Successfully apply job post"
// @Failure 400 {object} utilities.ErrorResponse "Invalid request body, job closed or full, duplicate application"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as seeker"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /seeker/applications [post]
func (j *ApplicationController) ApplicationHandler(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	req := ApplyRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	job := model.Job{}
	if err := j.DB.Where("id = ?", req.JobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Job post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Failed to fetch job post"})
		return
	}
	if !job.IsOpen() {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "This job post is no longer accepting applications"})
		return
	}

	// Prevent duplicate applications: canceled ones are deleted, so any row is live
	existing := model.Application{}
	if err := j.DB.
		Where("seeker_id = ? AND job_id = ?", user.ID, job.ID).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "You have already applied to this job post",
		})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: "Failed to check existing application",
		})
		return
	}

	if job.ApplicantLimit > 0 {
		var taken int64
		if err := j.DB.Model(&model.Application{}).
			Where("job_id = ? AND status <> ?", job.ID, model.ApplicationStatusRejected).
			Count(&taken).Error; err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Failed to count applicants"})
			return
		}
		if taken >= int64(job.ApplicantLimit) {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "This job post has reached its applicant limit"})
			return
		}
	}

	profile := model.UserProfile{}
	if err := j.DB.Where("user_id = ?", user.ID).First(&profile).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Failed to fetch profile"})
		return
	}

	now := j.clock()
	application := newApplication(user, profile, job, req, now)

	if err := j.DB.Create(&application).Error; err != nil {
		c.JSON(createFailure(err))
		return
	}

	realtime.Notify(c.Request.Context(), j.Broker, realtime.Event{
		Kind:          realtime.KindApplication,
		Op:            realtime.OpCreated,
		ApplicationID: application.ID,
		JobID:         job.ID,
		SeekerID:      user.ID,
		EmployerID:    job.EmployerID,
	})

	c.JSON(http.StatusCreated, application)
}

// createFailure maps an insert error to a response. The duplicate check above races with
// concurrent submits, so the unique index is the final guard.
func createFailure(err error) (int, utilities.ErrorResponse) {
	var pqErr *pgconn.PgError
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return http.StatusBadRequest, utilities.ErrorResponse{Error: "You have already applied to this job post"}
		case "23503":
			// the job was deleted in between
			return http.StatusBadRequest, utilities.ErrorResponse{Error: fmt.Sprintf("Invalid job id: %s", err.Error())}
		}
	}
	return http.StatusInternalServerError, utilities.ErrorResponse{
		Error: fmt.Sprintf("Failed to create application: %s", err.Error()),
	}
}

func newApplication(user model.User, profile model.UserProfile, job model.Job, req ApplyRequest, now time.Time) model.Application {
	fullName := strings.TrimSpace(profile.FullName)
	if fullName == "" {
		fullName = user.Username
	}
	email := profile.Email
	if email == "" && user.Email != nil {
		email = *user.Email
	}
	position := strings.TrimSpace(req.PositionApplied)
	if position == "" {
		position = job.JobTitle
	}
	return model.Application{
		SeekerID:        user.ID,
		JobID:           job.ID,
		FullName:        fullName,
		Email:           email,
		ContactNumber:   profile.ContactNumber,
		PositionApplied: position,
		JobTitle:        job.JobTitle,
		CompanyName:     job.CompanyName,
		Status:          model.ApplicationStatusPending,
		AppliedAt:       &now,
		UpdatedAt:       &now,
		ResumeLink:      req.ResumeLink,
		ResumeName:      req.ResumeName,
	}
}

// ListSeekerApplications returns the caller's applications newest first.
// @Summary List own applications
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} feed.SeekerApplication
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /seeker/applications [get]
func (j *ApplicationController) ListSeekerApplications(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	apps, err := j.seekerFeed(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Failed to fetch applications"})
		return
	}
	c.JSON(http.StatusOK, apps)
}

// seekerFeed loads the seeker's applications with the jobs they point to.
func (j *ApplicationController) seekerFeed(ctx context.Context, user model.User) ([]feed.SeekerApplication, error) {
	apps := []model.Application{}
	if err := j.DB.WithContext(ctx).Where("seeker_id = ?", user.ID).Find(&apps).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.JobID)
	}
	jobs := map[uint]model.Job{}
	if len(ids) > 0 {
		found := []model.Job{}
		if err := j.DB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
			return nil, err
		}
		for _, job := range found {
			jobs[job.ID] = job
		}
	}
	return feed.ProjectSeeker(apps, jobs), nil
}

// CancelApplication deletes one of the caller's pending applications.
// @Summary Cancel pending application
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Success 200 {object} utilities.MessageResponse "Application canceled"
// @Failure 400 {object} utilities.ErrorResponse "Invalid application id"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 409 {object} utilities.ErrorResponse "Application is no longer pending"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /seeker/applications/{id} [delete]
func (j *ApplicationController) CancelApplication(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	id, ok := applicationID(c)
	if !ok {
		return
	}

	app := model.Application{}
	if err := j.DB.Preload("Job").Where("id = ? AND seeker_id = ?", id, user.ID).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Failed to fetch application"})
		return
	}

	if err := feed.CanCancel(app); err != nil {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	// The status guard keeps a concurrent employer update from being deleted
	res := j.DB.Where("id = ? AND status = ?", app.ID, model.ApplicationStatusPending).Delete(&model.Application{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Failed to cancel application"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: feed.ErrNotPending.Error()})
		return
	}

	j.Metrics.ObserveCancel()
	evt := realtime.Event{
		Kind:          realtime.KindApplication,
		Op:            realtime.OpDeleted,
		ApplicationID: app.ID,
		JobID:         app.JobID,
		SeekerID:      user.ID,
	}
	if app.Job != nil {
		evt.EmployerID = app.Job.EmployerID
	}
	realtime.Notify(c.Request.Context(), j.Broker, evt)

	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Application canceled"})
}

func applicationID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid application id"})
		return 0, false
	}
	return uint(id), true
}
