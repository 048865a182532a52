package feed

import (
	"errors"
	"strings"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

// StatusAll disables the status filter
const StatusAll = "all"

// ErrInvalidStatusFilter is returned for a status filter outside StatusAll and the application statuses.
var ErrInvalidStatusFilter = errors.New("Status filter must be one of all, pending, scheduled, accepted, rejected")

// Counts are recomputed over the employer's full application list on every projection.
type Counts struct {
	Pending   int `json:"pending"`
	Scheduled int `json:"scheduled"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	Total     int `json:"total"`
}

// EmployerFilter narrows the employer feed. Both filters must match.
type EmployerFilter struct {
	Status string
	Search string
}

// ParseStatusFilter maps an empty value to StatusAll and rejects unknown statuses.
func ParseStatusFilter(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == StatusAll {
		return StatusAll, nil
	}
	if !model.ValidApplicationStatus(s) {
		return "", ErrInvalidStatusFilter
	}
	return s, nil
}

// EmployerView is one projection of the employer feed.
type EmployerView struct {
	Applications []model.Application `json:"applications"`
	Counts       Counts              `json:"counts"`
}

// JobIDSet is the resolved set of job ids an employer owns. A nil set is unresolved.
type JobIDSet map[uint]struct{}

// NewJobIDSet collects the ids of jobs.
func NewJobIDSet(jobs []model.Job) JobIDSet {
	set := make(JobIDSet, len(jobs))
	for _, j := range jobs {
		set[j.ID] = struct{}{}
	}
	return set
}

// IDs returns the ids in the set.
func (s JobIDSet) IDs() []uint {
	ids := make([]uint, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// ProjectEmployer runs the employer pipeline: restrict apps to the job set, count, then filter.
// An unresolved job set yields an empty view.
func ProjectEmployer(jobs JobIDSet, apps []model.Application, f EmployerFilter) EmployerView {
	view := EmployerView{Applications: []model.Application{}}
	if jobs == nil {
		return view
	}

	owned := make([]model.Application, 0, len(apps))
	for _, a := range apps {
		if _, ok := jobs[a.JobID]; ok {
			owned = append(owned, a)
		}
	}
	view.Counts = CountStatuses(owned)

	status := f.Status
	if status == "" {
		status = StatusAll
	}
	query := strings.ToLower(strings.TrimSpace(f.Search))

	for _, a := range owned {
		if status != StatusAll && a.Status != status {
			continue
		}
		if !MatchesSearch(a, query) {
			continue
		}
		view.Applications = append(view.Applications, a)
	}
	SortByAppliedDesc(view.Applications)
	return view
}

// CountStatuses tallies apps by status.
func CountStatuses(apps []model.Application) Counts {
	var c Counts
	for _, a := range apps {
		switch a.Status {
		case model.ApplicationStatusPending:
			c.Pending++
		case model.ApplicationStatusScheduled:
			c.Scheduled++
		case model.ApplicationStatusAccepted:
			c.Accepted++
		case model.ApplicationStatusRejected:
			c.Rejected++
		}
	}
	c.Total = len(apps)
	return c
}

// MatchesSearch reports whether the lower cased query is a substring of the name, email or position.
// An empty query matches everything.
func MatchesSearch(a model.Application, query string) bool {
	if query == "" {
		return true
	}
	for _, field := range []string{a.FullName, a.Email, a.PositionApplied} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
