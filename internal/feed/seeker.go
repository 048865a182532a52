// Package feed derives the seeker and employer application views and the employer overview
// from records already loaded from the database.
package feed

import (
	"errors"
	"sort"
	"time"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

// ErrNotPending is returned when a seeker cancels an application that left the pending state.
var ErrNotPending = errors.New("Only pending applications can be canceled")

// UnknownJobTitle is shown when no title can be derived for an application
const UnknownJobTitle = "Unknown Job"

// SeekerApplication is one row of the seeker feed.
type SeekerApplication struct {
	model.Application
	DisplayTitle string `json:"display_title"`
}

// CanCancel returns ErrNotPending unless the status is exactly pending.
func CanCancel(app model.Application) error {
	if app.Status != model.ApplicationStatusPending {
		return ErrNotPending
	}
	return nil
}

// DisplayTitle applies the fallback chain positionApplied, jobTitle, the job's own title, UnknownJobTitle.
func DisplayTitle(app model.Application, job *model.Job) string {
	switch {
	case app.PositionApplied != "":
		return app.PositionApplied
	case app.JobTitle != "":
		return app.JobTitle
	case job != nil && job.JobTitle != "":
		return job.JobTitle
	}
	return UnknownJobTitle
}

// ProjectSeeker builds the seeker feed, newest first. jobs maps job id to job and may miss entries.
func ProjectSeeker(apps []model.Application, jobs map[uint]model.Job) []SeekerApplication {
	out := make([]SeekerApplication, 0, len(apps))
	for _, a := range apps {
		var job *model.Job
		if j, ok := jobs[a.JobID]; ok {
			job = &j
		}
		out = append(out, SeekerApplication{Application: a, DisplayTitle: DisplayTitle(a, job)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return after(out[i].AppliedAt, out[j].AppliedAt)
	})
	return out
}

// SortByAppliedDesc orders apps newest first in place. Missing timestamps count as the epoch
// and ties keep their input order.
func SortByAppliedDesc(apps []model.Application) {
	sort.SliceStable(apps, func(i, j int) bool {
		return after(apps[i].AppliedAt, apps[j].AppliedAt)
	})
}

func after(a, b *time.Time) bool {
	return epoch(a).After(epoch(b))
}

func epoch(t *time.Time) time.Time {
	if t == nil {
		return time.Unix(0, 0)
	}
	return *t
}
