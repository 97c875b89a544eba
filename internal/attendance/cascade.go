// Package attendance holds the state of the attendance-recording workflow:
// the practice/activity cascade, farmer resolution, captured photos and
// the submission coordinator. It has no UI dependencies.
package attendance

import (
	"errors"

	"agriflow/internal/model"
)

var (
	// ErrPracticesFailed is reported when the practice list cannot be loaded.
	ErrPracticesFailed = errors.New("failed to fetch practices")
	// ErrActivitiesFailed is reported when an activity list cannot be loaded.
	ErrActivitiesFailed = errors.New("failed to fetch activities")
)

// Phase is the cascade's position in Idle → PracticesLoading →
// PracticesLoaded ⇄ ActivitiesLoading → ActivitiesLoaded.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePracticesLoading
	PhasePracticesFailed
	PhasePracticesLoaded
	PhaseActivitiesLoading
	PhaseActivitiesFailed
	PhaseActivitiesLoaded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePracticesLoading:
		return "practices loading"
	case PhasePracticesFailed:
		return "practices failed"
	case PhasePracticesLoaded:
		return "practices loaded"
	case PhaseActivitiesLoading:
		return "activities loading"
	case PhaseActivitiesFailed:
		return "activities failed"
	case PhaseActivitiesLoaded:
		return "activities loaded"
	default:
		return "unknown"
	}
}

// LoadStatus tracks one level of the cascade.
type LoadStatus int

const (
	StatusNone LoadStatus = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

// practiceSelection is present only while a practice is selected; the
// activities it holds always belong to that practice.
type practiceSelection struct {
	practice   model.Practice
	status     LoadStatus
	activities []model.Activity
	activity   *model.Activity
}

// Cascade is the practice → activity selector for one project.
type Cascade struct {
	projectID string
	status    LoadStatus
	practices []model.Practice
	selected  *practiceSelection
	err       error
}

// BeginPractices starts loading the practices of projectID and drops any
// previous selection.
func (c *Cascade) BeginPractices(projectID string) {
	c.projectID = projectID
	c.status = StatusLoading
	c.practices = nil
	c.selected = nil
	c.err = nil
}

// PracticesLoaded applies a practice fetch result. Results for another
// project are ignored and false is returned.
func (c *Cascade) PracticesLoaded(projectID string, practices []model.Practice, err error) bool {
	if projectID != c.projectID || c.status != StatusLoading {
		return false
	}
	if err != nil {
		c.status = StatusFailed
		c.practices = nil
		c.err = errors.Join(ErrPracticesFailed, err)
		return true
	}
	c.status = StatusLoaded
	c.practices = append([]model.Practice(nil), practices...)
	c.err = nil
	return true
}

// SelectPractice selects a practice, clears the activity list and the
// selected activity, and reports whether activities must be fetched.
// Re-selecting the current practice or an unknown id does nothing.
func (c *Cascade) SelectPractice(practiceID string) bool {
	if c.status != StatusLoaded {
		return false
	}
	if c.selected != nil && c.selected.practice.ID == practiceID {
		return false
	}
	practice, ok := findPractice(c.practices, practiceID)
	if !ok {
		return false
	}
	c.selected = &practiceSelection{practice: practice, status: StatusLoading}
	c.err = nil
	return true
}

// ActivitiesLoaded applies an activity fetch result. Results for a
// practice that is no longer selected are stale and ignored.
func (c *Cascade) ActivitiesLoaded(practiceID string, activities []model.Activity, err error) bool {
	if c.selected == nil || c.selected.practice.ID != practiceID || c.selected.status != StatusLoading {
		return false
	}
	if err != nil {
		c.selected.status = StatusFailed
		c.selected.activities = nil
		c.err = errors.Join(ErrActivitiesFailed, err)
		return true
	}
	c.selected.status = StatusLoaded
	c.selected.activities = append([]model.Activity(nil), activities...)
	c.err = nil
	return true
}

// RetryActivities re-enters ActivitiesLoading after a failed fetch for the
// selected practice. It reports whether a fetch must be issued.
func (c *Cascade) RetryActivities() bool {
	if c.selected == nil || c.selected.status != StatusFailed {
		return false
	}
	c.selected.status = StatusLoading
	c.err = nil
	return true
}

// SelectActivity selects an activity from the loaded set.
func (c *Cascade) SelectActivity(activityID string) bool {
	if c.selected == nil || c.selected.status != StatusLoaded {
		return false
	}
	for _, a := range c.selected.activities {
		if a.ID == activityID {
			a := a
			c.selected.activity = &a
			return true
		}
	}
	return false
}

// Phase reports the current cascade phase.
func (c *Cascade) Phase() Phase {
	switch c.status {
	case StatusNone:
		return PhaseIdle
	case StatusLoading:
		return PhasePracticesLoading
	case StatusFailed:
		return PhasePracticesFailed
	}
	if c.selected == nil {
		return PhasePracticesLoaded
	}
	switch c.selected.status {
	case StatusLoading:
		return PhaseActivitiesLoading
	case StatusFailed:
		return PhaseActivitiesFailed
	default:
		return PhaseActivitiesLoaded
	}
}

// Loading reports whether any level is being fetched.
func (c *Cascade) Loading() bool {
	p := c.Phase()
	return p == PhasePracticesLoading || p == PhaseActivitiesLoading
}

// ProjectID returns the project the cascade was opened for.
func (c *Cascade) ProjectID() string { return c.projectID }

// Practices returns the loaded practices.
func (c *Cascade) Practices() []model.Practice {
	return append([]model.Practice(nil), c.practices...)
}

// Activities returns the activities of the selected practice.
func (c *Cascade) Activities() []model.Activity {
	if c.selected == nil {
		return nil
	}
	return append([]model.Activity(nil), c.selected.activities...)
}

// SelectedPractice returns the selected practice, if any.
func (c *Cascade) SelectedPractice() (model.Practice, bool) {
	if c.selected == nil {
		return model.Practice{}, false
	}
	return c.selected.practice, true
}

// SelectedActivity returns the selected activity, if any.
func (c *Cascade) SelectedActivity() (model.Activity, bool) {
	if c.selected == nil || c.selected.activity == nil {
		return model.Activity{}, false
	}
	return *c.selected.activity, true
}

// Err returns the last fetch error.
func (c *Cascade) Err() error { return c.err }

// ClearErr dismisses the fetch error without touching loaded data.
func (c *Cascade) ClearErr() { c.err = nil }

func findPractice(practices []model.Practice, id string) (model.Practice, bool) {
	for _, p := range practices {
		if p.ID == id {
			return p, true
		}
	}
	return model.Practice{}, false
}
