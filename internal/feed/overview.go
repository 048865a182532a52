package feed

import (
	"sort"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

// RecentJobsLimit is how many jobs the overview lists
const RecentJobsLimit = 5

// JobSummary is one job on the overview with its applicant count.
type JobSummary struct {
	model.Job
	Applicants int `json:"applicants"`
}

// Overview is the employer dashboard snapshot.
type Overview struct {
	TotalJobs        int          `json:"total_jobs"`
	OpenJobs         int          `json:"open_jobs"`
	TotalApplicants  int          `json:"total_applicants"`
	ApplicantsPerJob map[uint]int `json:"applicants_per_job"`
	RecentJobs       []JobSummary `json:"recent_jobs"`
}

// CountsTowardApplicants reports whether an application counts as an applicant. Rejected ones don't.
func CountsTowardApplicants(status string) bool {
	return status != model.ApplicationStatusRejected
}

// BuildOverview aggregates jobs and apps. Applications of jobs outside the list are ignored.
func BuildOverview(jobs []model.Job, apps []model.Application) Overview {
	ov := Overview{
		TotalJobs:        len(jobs),
		ApplicantsPerJob: make(map[uint]int, len(jobs)),
		RecentJobs:       []JobSummary{},
	}
	for _, j := range jobs {
		ov.ApplicantsPerJob[j.ID] = 0
		if j.IsOpen() {
			ov.OpenJobs++
		}
	}
	for _, a := range apps {
		if _, ok := ov.ApplicantsPerJob[a.JobID]; !ok || !CountsTowardApplicants(a.Status) {
			continue
		}
		ov.ApplicantsPerJob[a.JobID]++
		ov.TotalApplicants++
	}

	sorted := make([]model.Job, len(jobs))
	copy(sorted, jobs)
	SortJobsByCreatedDesc(sorted)
	if len(sorted) > RecentJobsLimit {
		sorted = sorted[:RecentJobsLimit]
	}
	for _, j := range sorted {
		ov.RecentJobs = append(ov.RecentJobs, JobSummary{Job: j, Applicants: ov.ApplicantsPerJob[j.ID]})
	}
	return ov
}

// SortJobsByCreatedDesc orders jobs newest first in place; missing timestamps sort last, ties keep input order.
func SortJobsByCreatedDesc(jobs []model.Job) {
	sort.SliceStable(jobs, func(i, k int) bool {
		return after(jobs[i].CreatedAt, jobs[k].CreatedAt)
	})
}
