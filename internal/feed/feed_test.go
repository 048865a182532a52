package feed

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestCanCancel(t *testing.T) {
	assert.NoError(t, CanCancel(model.Application{Status: model.ApplicationStatusPending}))
	for _, s := range []string{model.ApplicationStatusScheduled, model.ApplicationStatusAccepted, model.ApplicationStatusRejected, "Pending", ""} {
		assert.ErrorIs(t, CanCancel(model.Application{Status: s}), ErrNotPending, s)
	}
}

func TestDisplayTitleFallback(t *testing.T) {
	job := &model.Job{EditableJobInfo: model.EditableJobInfo{JobTitle: "From Job"}}

	assert.Equal(t, "Position", DisplayTitle(model.Application{PositionApplied: "Position", JobTitle: "Title"}, job))
	assert.Equal(t, "Title", DisplayTitle(model.Application{JobTitle: "Title"}, job))
	assert.Equal(t, "From Job", DisplayTitle(model.Application{}, job))
	assert.Equal(t, UnknownJobTitle, DisplayTitle(model.Application{}, nil))
	assert.Equal(t, UnknownJobTitle, DisplayTitle(model.Application{}, &model.Job{}))
}

func TestProjectSeekerSortsNewestFirstMissingLast(t *testing.T) {
	apps := []model.Application{
		{ID: 1, AppliedAt: nil},
		{ID: 2, AppliedAt: at("2025-01-01T00:00:00Z")},
		{ID: 3, AppliedAt: at("2025-03-01T00:00:00Z")},
		{ID: 4, AppliedAt: nil},
		{ID: 5, AppliedAt: at("2025-02-01T00:00:00Z"), JobID: 9},
	}
	jobs := map[uint]model.Job{9: {ID: 9, EditableJobInfo: model.EditableJobInfo{JobTitle: "Barista"}}}

	got := ProjectSeeker(apps, jobs)
	ids := make([]uint, len(got))
	for i, g := range got {
		ids[i] = g.ID
	}
	assert.Equal(t, []uint{3, 5, 2, 1, 4}, ids)
	assert.Equal(t, "Barista", got[1].DisplayTitle)
	assert.Equal(t, UnknownJobTitle, got[0].DisplayTitle)
}

func TestSortDeterministicRegardlessOfInputOrder(t *testing.T) {
	base := []model.Application{
		{ID: 1, AppliedAt: at("2025-01-01T00:00:00Z")},
		{ID: 2, AppliedAt: at("2025-01-03T00:00:00Z")},
		{ID: 3, AppliedAt: nil},
		{ID: 4, AppliedAt: at("2025-01-02T00:00:00Z")},
	}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		apps := make([]model.Application, len(base))
		copy(apps, base)
		r.Shuffle(len(apps), func(a, b int) { apps[a], apps[b] = apps[b], apps[a] })

		SortByAppliedDesc(apps)
		assert.Equal(t, uint(2), apps[0].ID)
		assert.Equal(t, uint(4), apps[1].ID)
		assert.Equal(t, uint(1), apps[2].ID)
		assert.Equal(t, uint(3), apps[3].ID)
	}
}

func TestParseStatusFilter(t *testing.T) {
	s, err := ParseStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, StatusAll, s)

	s, err = ParseStatusFilter("Scheduled")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusScheduled, s)

	_, err = ParseStatusFilter("hired")
	assert.ErrorIs(t, err, ErrInvalidStatusFilter)
}

func employerFixture() (JobIDSet, []model.Application) {
	jobs := NewJobIDSet([]model.Job{{ID: 1}, {ID: 2}})
	apps := []model.Application{
		{ID: 1, JobID: 1, Status: model.ApplicationStatusPending, FullName: "Ana Reyes", Email: "ana@example.com", PositionApplied: "Cashier"},
		{ID: 2, JobID: 1, Status: model.ApplicationStatusAccepted, FullName: "Ben Cruz", Email: "ben@mail.ph", PositionApplied: "Cashier"},
		{ID: 3, JobID: 2, Status: model.ApplicationStatusRejected, FullName: "Carla Diaz", Email: "carla@example.com", PositionApplied: "Rider"},
		{ID: 4, JobID: 2, Status: model.ApplicationStatusScheduled, FullName: "Dan Lim", Email: "dan@example.com", PositionApplied: "Rider"},
		{ID: 5, JobID: 99, Status: model.ApplicationStatusPending, FullName: "Other Employer", Email: "x@example.com"},
	}
	return jobs, apps
}

func TestProjectEmployerUnresolvedJobs(t *testing.T) {
	_, apps := employerFixture()
	view := ProjectEmployer(nil, apps, EmployerFilter{})
	assert.Empty(t, view.Applications)
	assert.NotNil(t, view.Applications)
	assert.Equal(t, Counts{}, view.Counts)
}

func TestProjectEmployerRestrictsToOwnJobs(t *testing.T) {
	jobs, apps := employerFixture()
	view := ProjectEmployer(jobs, apps, EmployerFilter{Status: StatusAll})

	assert.Len(t, view.Applications, 4)
	assert.Equal(t, Counts{Pending: 1, Scheduled: 1, Accepted: 1, Rejected: 1, Total: 4}, view.Counts)
}

func TestProjectEmployerFiltersCompose(t *testing.T) {
	jobs, apps := employerFixture()

	view := ProjectEmployer(jobs, apps, EmployerFilter{Status: model.ApplicationStatusPending, Search: "CASHIER"})
	require.Len(t, view.Applications, 1)
	assert.Equal(t, uint(1), view.Applications[0].ID)
	// counts ignore the filters
	assert.Equal(t, 4, view.Counts.Total)

	view = ProjectEmployer(jobs, apps, EmployerFilter{Search: "example.com"})
	assert.Len(t, view.Applications, 3)

	view = ProjectEmployer(jobs, apps, EmployerFilter{Search: "rider", Status: model.ApplicationStatusAccepted})
	assert.Empty(t, view.Applications)
}

func TestComposeSchedule(t *testing.T) {
	loc := time.FixedZone("PHT", 8*60*60)
	got, err := ComposeSchedule("2025-05-01", "14:00", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 5, 1, 14, 0, 0, 0, loc)))
	assert.Equal(t, "2025-05-01T14:00:00+08:00", got.Format(time.RFC3339))

	_, err = ComposeSchedule("2025-05-01", "", loc)
	assert.ErrorIs(t, err, ErrScheduleIncomplete)
	_, err = ComposeSchedule("", "14:00", loc)
	assert.ErrorIs(t, err, ErrScheduleIncomplete)

	_, err = ComposeSchedule("05/01/2025", "2pm", loc)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrScheduleIncomplete)
}

func TestPlanSchedule(t *testing.T) {
	now := time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)
	app := model.Application{ID: 1, Status: model.ApplicationStatusPending}

	updates, patched, err := Plan(app, StatusChange{
		Status:           "scheduled",
		ScheduledDate:    "2025-05-01",
		ScheduledTime:    "14:00",
		InterviewDetails: "Bring two IDs",
	}, time.UTC, now)
	require.NoError(t, err)

	want := time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, model.ApplicationStatusScheduled, updates["status"])
	require.IsType(t, &time.Time{}, updates["scheduled_at"])
	assert.True(t, updates["scheduled_at"].(*time.Time).Equal(want))
	assert.Equal(t, now, updates["updated_at"])
	assert.Equal(t, model.ApplicationStatusScheduled, patched.Status)
	require.NotNil(t, patched.ScheduledAt)
	assert.True(t, patched.ScheduledAt.Equal(want))
	assert.Equal(t, "Bring two IDs", patched.InterviewDetails)
	// the input is left untouched
	assert.Equal(t, model.ApplicationStatusPending, app.Status)
}

func TestPlanRequiresConfirmation(t *testing.T) {
	for _, s := range []string{model.ApplicationStatusAccepted, model.ApplicationStatusRejected} {
		_, _, err := Plan(model.Application{}, StatusChange{Status: s}, time.UTC, time.Now())
		assert.ErrorIs(t, err, ErrConfirmationRequired, s)
	}

	updates, patched, err := Plan(model.Application{}, StatusChange{Status: "rejected", Confirm: true, RejectionReason: "Position filled"}, time.UTC, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Position filled", updates["rejection_reason"])
	assert.Equal(t, "Position filled", patched.RejectionReason)
	assert.Nil(t, updates["scheduled_at"])
}

func TestPlanRejectsUnknownStatus(t *testing.T) {
	for _, s := range []string{"pending", "hired", ""} {
		_, _, err := Plan(model.Application{}, StatusChange{Status: s, Confirm: true}, time.UTC, time.Now())
		assert.ErrorIs(t, err, ErrInvalidTransition, s)
	}
}

func TestPlanAllowsRetransition(t *testing.T) {
	_, patched, err := Plan(model.Application{Status: model.ApplicationStatusRejected}, StatusChange{Status: "accepted", Confirm: true}, time.UTC, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusAccepted, patched.Status)
}

func TestPlanClearsOtherOutcomes(t *testing.T) {
	interview := time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC)
	rejected := model.Application{
		Status:           model.ApplicationStatusRejected,
		RejectionReason:  "Position filled",
		RejectionComment: "Maybe next season",
	}
	updates, patched, err := Plan(rejected, StatusChange{Status: "accepted", Confirm: true, AcceptanceRequirements: "NBI clearance"}, time.UTC, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "", updates["rejection_reason"])
	assert.Equal(t, "", updates["rejection_comment"])
	assert.Empty(t, patched.RejectionReason)
	assert.Empty(t, patched.RejectionComment)
	assert.Equal(t, "NBI clearance", patched.AcceptanceRequirements)

	scheduled := model.Application{
		Status:           model.ApplicationStatusScheduled,
		ScheduledAt:      &interview,
		InterviewDetails: "Bring two IDs",
	}
	updates, patched, err = Plan(scheduled, StatusChange{Status: "accepted", Confirm: true}, time.UTC, time.Now())
	require.NoError(t, err)
	assert.Nil(t, updates["scheduled_at"])
	assert.Equal(t, "", updates["interview_details"])
	assert.Nil(t, patched.ScheduledAt)
	assert.Empty(t, patched.InterviewDetails)

	updates, patched, err = Plan(patched, StatusChange{Status: "scheduled", ScheduledDate: "2025-06-02", ScheduledTime: "09:30"}, time.UTC, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "", updates["acceptance_requirements"])
	assert.Empty(t, patched.AcceptanceRequirements)
	require.NotNil(t, patched.ScheduledAt)
}

func TestBuildOverviewExcludesRejected(t *testing.T) {
	jobs := []model.Job{{ID: 1}, {ID: 2}, {ID: 3}}
	apps := []model.Application{
		{JobID: 1, Status: model.ApplicationStatusPending},
		{JobID: 1, Status: model.ApplicationStatusPending},
		{JobID: 1, Status: model.ApplicationStatusAccepted},
		{JobID: 3, Status: model.ApplicationStatusRejected},
		{JobID: 42, Status: model.ApplicationStatusPending},
	}

	ov := BuildOverview(jobs, apps)
	assert.Equal(t, 3, ov.TotalJobs)
	assert.Equal(t, 3, ov.TotalApplicants)
	assert.Equal(t, map[uint]int{1: 3, 2: 0, 3: 0}, ov.ApplicantsPerJob)
	assert.Equal(t, 3, ov.OpenJobs)
}

func TestBuildOverviewRecentJobs(t *testing.T) {
	jobs := []model.Job{
		{ID: 1, CreatedAt: at("2025-01-01T00:00:00Z")},
		{ID: 2, CreatedAt: nil},
		{ID: 3, CreatedAt: at("2025-01-05T00:00:00Z")},
		{ID: 4, CreatedAt: at("2025-01-03T00:00:00Z")},
		{ID: 5, CreatedAt: at("2025-01-04T00:00:00Z")},
		{ID: 6, CreatedAt: at("2025-01-02T00:00:00Z"), EditableJobInfo: model.EditableJobInfo{JobStatus: model.JobStatusClosed}},
	}

	ov := BuildOverview(jobs, nil)
	ids := make([]uint, 0, len(ov.RecentJobs))
	for _, j := range ov.RecentJobs {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []uint{3, 5, 4, 6, 1}, ids)
	assert.Equal(t, 5, ov.OpenJobs)
	// input order is preserved
	assert.Equal(t, uint(1), jobs[0].ID)
}
