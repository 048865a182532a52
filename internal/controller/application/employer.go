package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/feed"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/realtime"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

// ListEmployerApplications returns applications to the caller's jobs with per-status counts.
// Counts cover every owned application; status and search only narrow the list.
// @Summary List applicants
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "all, pending, scheduled, accepted or rejected"
// @Param search query string false "Matches applicant name, email or position"
// @Success 200 {object} feed.EmployerView
// @Failure 400 {object} utilities.ErrorResponse "Invalid status filter"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /employer/applications [get]
func (j *ApplicationController) ListEmployerApplications(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	filter, ok := employerFilter(c)
	if !ok {
		return
	}

	view, err := j.employerFeed(c.Request.Context(), user, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Failed to fetch applications"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func employerFilter(c *gin.Context) (feed.EmployerFilter, bool) {
	status, err := feed.ParseStatusFilter(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return feed.EmployerFilter{}, false
	}
	return feed.EmployerFilter{Status: status, Search: c.Query("search")}, true
}

// employerFeed resolves the owned job set first, then loads only applications to those jobs.
func (j *ApplicationController) employerFeed(ctx context.Context, user model.User, f feed.EmployerFilter) (feed.EmployerView, error) {
	jobs := []model.Job{}
	if err := j.DB.WithContext(ctx).Select("id").Where("employer_id = ?", user.ID).Find(&jobs).Error; err != nil {
		return feed.EmployerView{}, err
	}
	set := feed.NewJobIDSet(jobs)

	apps := []model.Application{}
	if ids := set.IDs(); len(ids) > 0 {
		if err := j.DB.WithContext(ctx).Where("job_id IN ?", ids).Find(&apps).Error; err != nil {
			return feed.EmployerView{}, err
		}
	}
	return feed.ProjectEmployer(set, apps, f), nil
}

// UpdateStatus moves an application to scheduled, accepted or rejected.
// @Summary Update application status
// @Tags Application
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Application ID"
// @Param change body feed.StatusChange true "New status and its details"
// @Success 200 {object} model.Application "Updated application"
// @Failure 400 {object} utilities.ErrorResponse "Invalid status or missing details"
// @Failure 403 {object} utilities.ErrorResponse "Application is not on the caller's job"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /employer/applications/{id}/status [patch]
func (j *ApplicationController) UpdateStatus(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	id, ok := applicationID(c)
	if !ok {
		return
	}

	req := feed.StatusChange{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	app := model.Application{}
	if err := j.DB.Preload("Job").Where("id = ?", id).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: "Failed to fetch application"})
		return
	}

	if app.Job == nil || app.Job.EmployerID != user.ID {
		c.JSON(http.StatusForbidden, utilities.ErrorResponse{Error: "You are not allowed to update this application"})
		return
	}

	updates, patched, err := feed.Plan(app, req, j.Location, j.clock())
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	if err := j.DB.Model(&model.Application{}).Where("id = ?", app.ID).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to update application: %s", err.Error()),
		})
		return
	}

	j.Metrics.ObserveTransition(patched.Status)
	realtime.Notify(c.Request.Context(), j.Broker, realtime.Event{
		Kind:          realtime.KindApplication,
		Op:            realtime.OpUpdated,
		ApplicationID: app.ID,
		JobID:         app.JobID,
		SeekerID:      app.SeekerID,
		EmployerID:    user.ID,
	})

	patched.Job = nil
	c.JSON(http.StatusOK, patched)
}
