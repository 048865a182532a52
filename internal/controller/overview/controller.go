// Package overview serves the employer dashboard summary.
package overview

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/feed"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

// OverviewController handles the employer overview endpoint
type OverviewController struct {
	DB *database.DBinstanceStruct
}

// NewOverviewController creates a new instance of OverviewController
func NewOverviewController(db *database.DBinstanceStruct) *OverviewController {
	return &OverviewController{DB: db}
}

// GetOverview returns job and applicant totals plus the most recent jobs of the caller.
// It is computed on request and never pushed.
// @Summary Employer overview
// @Tags Overview
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} feed.Overview
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as employer"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /employer/overview [get]
func (oc *OverviewController) GetOverview(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	jobs := []model.Job{}
	if err := oc.DB.WithContext(ctx).Where("employer_id = ?", user.ID).Find(&jobs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to fetch job posts: %s", err.Error()),
		})
		return
	}

	apps := []model.Application{}
	if err := oc.DB.WithContext(ctx).
		Joins("JOIN jobs ON jobs.id = applications.job_id").
		Where("jobs.employer_id = ?", user.ID).
		Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to fetch applications: %s", err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, feed.BuildOverview(jobs, apps))
}
