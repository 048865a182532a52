// Package jobpost provides HTTP handlers for job post related operations.
package jobpost

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/realtime"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/utilities"
)

// JobPostController handles job post related endpoints
type JobPostController struct {
	DB     *database.DBinstanceStruct
	Broker realtime.Broker
}

// NewJobPostController creates a new instance of JobPostController. broker may be nil.
func NewJobPostController(db *database.DBinstanceStruct, broker realtime.Broker) *JobPostController {
	return &JobPostController{
		DB:     db,
		Broker: broker,
	}
}

// JobResponse is a job with its live applicant count. Applied is only set for seekers.
type JobResponse struct {
	model.Job
	Applicants int  `json:"applicants"`
	Applied    bool `json:"applied"`
}

var (
	errJobTitleRequired = errors.New("Job title is required")
	errJobStatus        = errors.New("Job status must be open or closed")
	errJobType          = errors.New("Job type must be full-time or part-time")
	errApplicantLimit   = errors.New("Applicant limit can't be negative")
)

// validateJobInfo trims info in place. Empty status and type are allowed on edits, where they mean unchanged.
func validateJobInfo(info *model.EditableJobInfo, creating bool) error {
	info.JobTitle = strings.TrimSpace(info.JobTitle)
	info.JobStatus = strings.ToLower(strings.TrimSpace(info.JobStatus))
	info.JobType = strings.ToLower(strings.TrimSpace(info.JobType))

	if creating {
		if info.JobTitle == "" {
			return errJobTitleRequired
		}
		if info.JobStatus == "" {
			info.JobStatus = model.JobStatusOpen
		}
		if info.JobType == "" {
			info.JobType = model.JobTypeFullTime
		}
	}
	if info.JobStatus != "" && !model.ValidJobStatus(info.JobStatus) {
		return errJobStatus
	}
	if info.JobType != "" && !model.ValidJobType(info.JobType) {
		return errJobType
	}
	if info.ApplicantLimit < 0 {
		return errApplicantLimit
	}
	return nil
}

func decodeJobInfo(r io.Reader, dst *model.EditableJobInfo) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// CreateJobPostHandler handles the creation of a new job post by an employer.
// @Summary Create job post based on given json structure
// @Description Only employers have access to this endpoint
// @Tags Jobpost
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param Jobpost body model.EditableJobInfo true "Input jobpost information"
// @Success 201 {object} model.Job "Successfully create job post"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, or invalid job post struct"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as employer"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /employer/jobs [post]
func (jc *JobPostController) CreateJobPostHandler(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	job := model.Job{}
	if err := decodeJobInfo(c.Request.Body, &job.EditableJobInfo); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if err := validateJobInfo(&job.EditableJobInfo, true); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	job.EmployerID = user.ID
	if err := jc.DB.Create(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to create job post: ", err),
		})
		return
	}

	// Reload for the database assigned created_at
	if err := jc.DB.Where("id = ?", job.ID).First(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve job post: %s", err.Error()),
		})
		return
	}

	jc.notify(c, realtime.OpCreated, job)
	c.JSON(http.StatusCreated, job)
}

// GetOwnPosts returns every job post of the calling employer, newest first.
// @Summary Get own job posts
// @Tags Jobpost
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} JobResponse "Employer's job posts"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /employer/jobs [get]
func (jc *JobPostController) GetOwnPosts(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	jobs := []model.Job{}
	if err := jc.DB.Where("employer_id = ?", user.ID).
		Order("created_at DESC NULLS LAST").
		Order("id DESC").
		Find(&jobs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to fetch job post: ", err.Error()),
		})
		return
	}

	resp, err := jc.withApplicants(jobs, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to count applicants: ", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetPosts fetches all open job posts that match query from the database
// and returns them as a JSON response.
// @Summary Get open job posts based on query
// @Description Every query are not required, but they have specific use defined in their description
// @Tags Jobpost
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param search query string false "Search from job title or company name with substring matching and case insensitive"
// @Param type query string false "full-time or part-time, must exactly match to get result"
// @Param barangay query string false "Search from barangay with substring matching and case insensitive"
// @Success 200 {array} JobResponse "Return open job post(s)"
// @Failure 400 {object} utilities.ErrorResponse "Invalid job type"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs [get]
func (jc *JobPostController) GetPosts(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	rawSearch := strings.TrimSpace(c.Query("search"))
	rawJobType := strings.ToLower(strings.TrimSpace(c.Query("type")))
	rawBarangay := strings.TrimSpace(c.Query("barangay"))

	if rawJobType != "" && !model.ValidJobType(rawJobType) {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: errJobType.Error()})
		return
	}

	result := jc.DB.Where("job_status = ?", model.JobStatusOpen)

	if rawSearch != "" {
		result = result.Where("(job_title ILIKE ? OR company_name ILIKE ?)", "%"+rawSearch+"%", "%"+rawSearch+"%")
	}

	if rawJobType != "" {
		result = result.Where("job_type = ?", rawJobType)
	}

	if rawBarangay != "" {
		result = result.Where("barangay ILIKE ?", "%"+rawBarangay+"%")
	}

	jobs := []model.Job{}
	if err := result.Order("created_at DESC NULLS LAST").Order("id DESC").Find(&jobs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to fetch job post: ", err.Error()),
		})
		return
	}

	resp, err := jc.withApplicants(jobs, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to count applicants: ", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetPostByID fetches a job post by its ID from the database
// and returns it as a JSON response.
// @Summary Get job post by ID
// @Description Retrieve a specific job post using its unique ID
// @Tags Jobpost
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path integer true "ID of desired job post"
// @Success 200 {object} JobResponse "Return the job post with the specified ID"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or job id"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 404 {object} utilities.ErrorResponse "Job post not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /jobs/{id} [get]
func (jc *JobPostController) GetPostByID(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	job, ok := jc.findJob(c)
	if !ok {
		return
	}

	resp, err := jc.withApplicants([]model.Job{job}, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to count applicants: ", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, resp[0])
}

// EditJobPost allows an employer to update a job post they own.
// @Summary Edit job post based on given json structure
// @Description Only the employer that owns the post has access to this endpoint
// @Tags Jobpost
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path integer true "ID of desired job post"
// @Param Jobpost body model.EditableJobInfo true "Input jobpost information"
// @Success 200 {object} model.Job "Successfully update job post"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, job id or job post struct"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not have permission to edit"
// @Failure 404 {object} utilities.ErrorResponse "Post not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /employer/jobs/{id} [patch]
func (jc *JobPostController) EditJobPost(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	job, ok := jc.findJob(c)
	if !ok {
		return
	}

	// Verify ownership: the job post must belong to the requesting employer
	if job.EmployerID != user.ID {
		c.JSON(http.StatusForbidden, utilities.ErrorResponse{
			Error: "You are not allowed to edit this job post",
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to read request body: %s", err.Error()),
		})
		return
	}
	// The keys tell which fields were sent, so zero values can be written too
	sent := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &sent); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to parse request body: %s", err.Error()),
		})
		return
	}
	// Decode into a temporary struct so ownership fields can't be overwritten
	updated := model.EditableJobInfo{}
	if err := decodeJobInfo(bytes.NewReader(body), &updated); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to parse request body: %s", err.Error()),
		})
		return
	}
	if err := validateJobInfo(&updated, false); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	if _, ok := sent["job_title"]; ok && updated.JobTitle == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: errJobTitleRequired.Error()})
		return
	}
	// Status and type have no empty state
	if updated.JobStatus == "" {
		delete(sent, "job_status")
	}
	if updated.JobType == "" {
		delete(sent, "job_type")
	}

	merged := job.EditableJobInfo
	if columns := utilities.MergeSent(&merged, &updated, sent); len(columns) > 0 {
		if err := jc.DB.Model(&job).Select(columns).Updates(model.Job{EditableJobInfo: merged}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to update job post: %s", err.Error()),
			})
			return
		}
	}

	if err := jc.DB.Where("id = ?", job.ID).First(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve updated job post: %s", err.Error()),
		})
		return
	}

	jc.notify(c, realtime.OpUpdated, job)
	c.JSON(http.StatusOK, job)
}

// DeleteJobPost allows an employer to delete a job post they own. Its applications go with it.
// @Summary Delete given job post ID
// @Description Only the employer that owns the post or an admin has access to this endpoint
// @Tags Jobpost
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path integer true "ID of desired job post"
// @Success 200 {object} utilities.MessageResponse "Successfully delete job post"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or job id"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not have permission to delete this post"
// @Failure 404 {object} utilities.ErrorResponse "Post not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /employer/jobs/{id} [delete]
func (jc *JobPostController) DeleteJobPost(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	job, ok := jc.findJob(c)
	if !ok {
		return
	}

	if job.EmployerID != user.ID {
		// Allow admins to bypass ownership check
		if user.Role != model.RoleAdmin {
			c.JSON(http.StatusForbidden, utilities.ErrorResponse{
				Error: "You are not allowed to delete this job post",
			})
			return
		}
	}

	// Seekers whose applications cascade away must refresh too
	var seekers []uuid.UUID
	if err := jc.DB.Model(&model.Application{}).Where("job_id = ?", job.ID).Distinct().Pluck("seeker_id", &seekers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve applicants: %s", err.Error()),
		})
		return
	}

	if err := jc.DB.Delete(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to delete job post: %s", err.Error()),
		})
		return
	}

	jc.notify(c, realtime.OpDeleted, job)
	for _, id := range seekers {
		realtime.Notify(c.Request.Context(), jc.Broker, realtime.Event{
			Kind:       realtime.KindApplication,
			Op:         realtime.OpDeleted,
			JobID:      job.ID,
			SeekerID:   id,
			EmployerID: job.EmployerID,
		})
	}

	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Job post deleted"})
}

func (jc *JobPostController) findJob(c *gin.Context) (model.Job, bool) {
	job := model.Job{}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid job id"})
		return job, false
	}
	if err := jc.DB.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Job post not found"})
			return job, false
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve job post: %s", err.Error()),
		})
		return job, false
	}
	return job, true
}

func (jc *JobPostController) notify(c *gin.Context, op string, job model.Job) {
	realtime.Notify(c.Request.Context(), jc.Broker, realtime.Event{
		Kind:       realtime.KindJob,
		Op:         op,
		JobID:      job.ID,
		EmployerID: job.EmployerID,
	})
}

// withApplicants attaches non-rejected applicant counts and, for seekers, whether they applied.
func (jc *JobPostController) withApplicants(jobs []model.Job, user model.User) ([]JobResponse, error) {
	resp := make([]JobResponse, 0, len(jobs))
	if len(jobs) == 0 {
		return resp, nil
	}

	ids := make([]uint, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}

	var rows []struct {
		JobID uint
		Total int
	}
	if err := jc.DB.Model(&model.Application{}).
		Select("job_id, COUNT(*) AS total").
		Where("job_id IN ? AND status <> ?", ids, model.ApplicationStatusRejected).
		Group("job_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.JobID] = r.Total
	}

	applied := map[uint]bool{}
	if user.Role == model.RoleSeeker {
		var mine []uint
		if err := jc.DB.Model(&model.Application{}).
			Where("seeker_id = ? AND job_id IN ?", user.ID, ids).
			Pluck("job_id", &mine).Error; err != nil {
			return nil, err
		}
		for _, id := range mine {
			applied[id] = true
		}
	}

	for _, j := range jobs {
		resp = append(resp, JobResponse{Job: j, Applicants: counts[j.ID], Applied: applied[j.ID]})
	}
	return resp, nil
}
