package overview

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/auth"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/database"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/feed"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/middleware"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/testutil"
)

var (
	testDB     *database.DBinstanceStruct
	testTokens = auth.NewTokenIssuer("overview-secret", time.Hour)
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	var err error
	var midTeardown func(context.Context, ...testcontainers.TerminateOption) error
	midTeardown, testDB, err = database.GetTestDB()
	if err != nil {
		os.Exit(1)
	}
	code := m.Run()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if midTeardown != nil {
		_ = midTeardown(ctx)
	}
	os.Exit(code)
}

func newRouter() *gin.Engine {
	r := gin.New()
	oc := NewOverviewController(testDB)
	r.GET("/employer/overview", middleware.RequireAuth(testDB, testTokens), middleware.CheckRole(model.RoleEmployer), oc.GetOverview)
	return r
}

func TestGetOverview(t *testing.T) {
	employer, err := database.CreateTestUser(testDB, model.RoleEmployer)
	require.NoError(t, err)
	tok, err := auth.GetAccessToken(t, testDB, testTokens, employer.Username, database.TestSeedPassword)
	require.NoError(t, err)

	base := time.Now().Add(-10 * time.Hour)
	jobs := make([]model.Job, 0, 6)
	for i := 0; i < 6; i++ {
		job, err := database.CreateTestJob(testDB, employer.ID, "Job "+string(rune('A'+i)))
		require.NoError(t, err)
		require.NoError(t, testDB.Exec("UPDATE jobs SET created_at = ? WHERE id = ?", base.Add(time.Duration(i)*time.Hour), job.ID).Error)
		jobs = append(jobs, job)
	}
	require.NoError(t, testDB.Model(&model.Job{}).Where("id = ?", jobs[0].ID).Update("job_status", model.JobStatusClosed).Error)

	statuses := []string{model.ApplicationStatusPending, model.ApplicationStatusAccepted, model.ApplicationStatusRejected, model.ApplicationStatusScheduled}
	for i, status := range statuses {
		seeker, err := database.CreateTestUser(testDB, model.RoleSeeker)
		require.NoError(t, err)
		target := jobs[5]
		if i == 3 {
			target = jobs[1]
		}
		_, err = database.CreateTestApplication(testDB, seeker.ID, target, status)
		require.NoError(t, err)
	}
	// another employer's applicant stays out of the totals
	outsider, err := database.CreateTestUser(testDB, model.RoleSeeker)
	require.NoError(t, err)
	_, err = database.CreateTestApplication(testDB, outsider.ID, database.TestJob3, model.ApplicationStatusPending)
	require.NoError(t, err)

	rec := testutil.ServeJSON(nil, tok, newRouter(), "/employer/overview", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ov := feed.Overview{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ov))
	assert.Equal(t, 6, ov.TotalJobs)
	assert.Equal(t, 5, ov.OpenJobs)
	assert.Equal(t, 3, ov.TotalApplicants)
	assert.Equal(t, 2, ov.ApplicantsPerJob[jobs[5].ID])
	assert.Equal(t, 1, ov.ApplicantsPerJob[jobs[1].ID])

	require.Len(t, ov.RecentJobs, feed.RecentJobsLimit)
	assert.Equal(t, jobs[5].ID, ov.RecentJobs[0].ID)
	assert.Equal(t, 2, ov.RecentJobs[0].Applicants)
	assert.Equal(t, jobs[1].ID, ov.RecentJobs[4].ID)
}

func TestGetOverview_Empty(t *testing.T) {
	employer, err := database.CreateTestUser(testDB, model.RoleEmployer)
	require.NoError(t, err)
	tok, err := auth.GetAccessToken(t, testDB, testTokens, employer.Username, database.TestSeedPassword)
	require.NoError(t, err)

	rec, resp := testutil.MakeJSONRequest(nil, tok, newRouter(), "/employer/overview", http.MethodGet)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), resp["total_jobs"])
	assert.Equal(t, float64(0), resp["total_applicants"])
	assert.Empty(t, resp["recent_jobs"])
}

func TestGetOverview_SeekerForbidden(t *testing.T) {
	tok, err := auth.GetAccessToken(t, testDB, testTokens, database.TestUserSeeker1.Username, database.TestSeedPassword)
	require.NoError(t, err)

	rec, _ := testutil.MakeJSONRequest(nil, tok, newRouter(), "/employer/overview", http.MethodGet)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
