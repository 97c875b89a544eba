package attendance

import (
	"errors"
	"testing"

	"agriflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testPractices = []model.Practice{
		{ID: "tp1", Title: "Composting"},
		{ID: "tp2", Title: "Mulching"},
	}
	workshop = model.Activity{ID: "a1", Title: "Workshop"}
	fieldDay = model.Activity{ID: "a2", Title: "Field day"}
)

func loadedCascade(t *testing.T) *Cascade {
	t.Helper()
	var c Cascade
	c.BeginPractices("p1")
	require.True(t, c.PracticesLoaded("p1", testPractices, nil))
	return &c
}

func TestCascadeInitialPhase(t *testing.T) {
	var c Cascade
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.False(t, c.SelectPractice("tp1"), "nothing to select before practices load")

	c.BeginPractices("p1")
	assert.Equal(t, PhasePracticesLoading, c.Phase())
	assert.True(t, c.Loading())
}

func TestCascadeLoadsActivitiesForSelectedPractice(t *testing.T) {
	c := loadedCascade(t)
	assert.Equal(t, PhasePracticesLoaded, c.Phase())
	assert.Equal(t, testPractices, c.Practices())

	require.True(t, c.SelectPractice("tp1"))
	assert.Equal(t, PhaseActivitiesLoading, c.Phase())
	assert.Empty(t, c.Activities())

	require.True(t, c.ActivitiesLoaded("tp1", []model.Activity{workshop}, nil))
	assert.Equal(t, PhaseActivitiesLoaded, c.Phase())
	assert.Equal(t, []model.Activity{workshop}, c.Activities())
	assert.Equal(t, "Workshop", c.Activities()[0].Title)
}

func TestCascadeSwitchingPracticeClearsBeforeFetchResolves(t *testing.T) {
	c := loadedCascade(t)
	require.True(t, c.SelectPractice("tp1"))
	require.True(t, c.ActivitiesLoaded("tp1", []model.Activity{workshop}, nil))
	require.True(t, c.SelectActivity("a1"))

	require.True(t, c.SelectPractice("tp2"))
	assert.Empty(t, c.Activities())
	_, ok := c.SelectedActivity()
	assert.False(t, ok)
	p, ok := c.SelectedPractice()
	require.True(t, ok)
	assert.Equal(t, "tp2", p.ID)
}

func TestCascadeDiscardsStaleActivities(t *testing.T) {
	c := loadedCascade(t)
	require.True(t, c.SelectPractice("tp1"))
	require.True(t, c.SelectPractice("tp2"))

	assert.False(t, c.ActivitiesLoaded("tp1", []model.Activity{workshop}, nil))
	assert.Empty(t, c.Activities())
	assert.Equal(t, PhaseActivitiesLoading, c.Phase())

	require.True(t, c.ActivitiesLoaded("tp2", []model.Activity{fieldDay}, nil))
	assert.Equal(t, []model.Activity{fieldDay}, c.Activities())
}

func TestCascadeReselectingSamePracticeIsNoop(t *testing.T) {
	c := loadedCascade(t)
	require.True(t, c.SelectPractice("tp1"))
	require.True(t, c.ActivitiesLoaded("tp1", []model.Activity{workshop}, nil))
	require.True(t, c.SelectActivity("a1"))

	assert.False(t, c.SelectPractice("tp1"))
	a, ok := c.SelectedActivity()
	require.True(t, ok)
	assert.Equal(t, workshop, a)
}

func TestCascadeRejectsUnknownIDs(t *testing.T) {
	c := loadedCascade(t)
	assert.False(t, c.SelectPractice("nope"))

	require.True(t, c.SelectPractice("tp1"))
	assert.False(t, c.SelectActivity("a1"), "activities not loaded yet")
	require.True(t, c.ActivitiesLoaded("tp1", []model.Activity{workshop}, nil))
	assert.False(t, c.SelectActivity("a2"))
	_, ok := c.SelectedActivity()
	assert.False(t, ok)
}

func TestCascadePracticeFailure(t *testing.T) {
	var c Cascade
	c.BeginPractices("p1")
	require.True(t, c.PracticesLoaded("p1", nil, errors.New("boom")))

	assert.Equal(t, PhasePracticesFailed, c.Phase())
	assert.ErrorIs(t, c.Err(), ErrPracticesFailed)
	assert.Empty(t, c.Practices())
}

func TestCascadeIgnoresOtherProject(t *testing.T) {
	var c Cascade
	c.BeginPractices("p1")
	assert.False(t, c.PracticesLoaded("p2", testPractices, nil))
	assert.Equal(t, PhasePracticesLoading, c.Phase())
}

func TestCascadeActivityFailureKeepsPractices(t *testing.T) {
	c := loadedCascade(t)
	require.True(t, c.SelectPractice("tp1"))
	require.True(t, c.ActivitiesLoaded("tp1", nil, errors.New("timeout")))

	assert.Equal(t, PhaseActivitiesFailed, c.Phase())
	assert.ErrorIs(t, c.Err(), ErrActivitiesFailed)
	assert.Equal(t, testPractices, c.Practices())

	require.True(t, c.RetryActivities())
	assert.NoError(t, c.Err())
	assert.Equal(t, PhaseActivitiesLoading, c.Phase())
	require.True(t, c.ActivitiesLoaded("tp1", []model.Activity{workshop}, nil))
	assert.Equal(t, PhaseActivitiesLoaded, c.Phase())
}
