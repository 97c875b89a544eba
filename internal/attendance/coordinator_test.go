package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"agriflow/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	calls  int
	got    model.AttendanceSubmission
	record model.AttendanceRecord
	err    error
}

func (f *fakeRecorder) RecordAttendance(_ context.Context, sub model.AttendanceSubmission) (model.AttendanceRecord, error) {
	f.calls++
	f.got = sub
	return f.record, f.err
}

type fakeJournal struct {
	entries []model.NewJournalEntry
	err     error
}

func (f *fakeJournal) Append(e model.NewJournalEntry) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.entries = append(f.entries, e)
	return int64(len(f.entries)), nil
}

func TestCanSubmit(t *testing.T) {
	tests := []struct {
		activity, farmer string
		want             bool
	}{
		{"", "", false},
		{"a1", "", false},
		{"", "f1", false},
		{"a1", "f1", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanSubmit(tt.activity, tt.farmer), "activity=%q farmer=%q", tt.activity, tt.farmer)
	}
}

func TestSubmitWithoutActivityMakesNoRequest(t *testing.T) {
	rec := &fakeRecorder{}
	c := NewCoordinator(rec, nil, nil)

	_, err := c.Submit(context.Background(), Draft{Farmer: mary})
	require.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, "select an activity and a farmer", err.Error())
	assert.Zero(t, rec.calls)
}

func TestSubmitWithoutFarmerMakesNoRequest(t *testing.T) {
	rec := &fakeRecorder{}
	c := NewCoordinator(rec, nil, nil)

	_, err := c.Submit(context.Background(), Draft{Activity: workshop})
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Zero(t, rec.calls)
}

func TestSubmitReturnsServerRecord(t *testing.T) {
	want := model.AttendanceRecord{
		ID:         "r1",
		ActivityID: "a1",
		FarmerID:   "f1",
		Notes:      "came early",
		Photos:     []string{"uploads/1.jpg"},
		Raw:        json.RawMessage(`{"id":"r1"}`),
	}
	rec := &fakeRecorder{record: want}
	journal := &fakeJournal{}
	c := NewCoordinator(rec, journal, nil)

	photo := model.CapturedImage{Name: CapturedPhotoName, ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	res, err := c.Submit(context.Background(), Draft{
		ProjectID: "p1",
		Practice:  testPractices[0],
		Activity:  workshop,
		Farmer:    mary,
		Notes:     "came early",
		Photos:    []model.CapturedImage{photo},
	})
	require.NoError(t, err)
	if diff := cmp.Diff(want, res.Record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(1), res.EntryID)

	assert.Equal(t, "a1", rec.got.ActivityID)
	assert.Equal(t, "f1", rec.got.FarmerID)
	assert.Equal(t, []model.CapturedImage{photo}, rec.got.Photos)

	require.Len(t, journal.entries, 1)
	assert.Equal(t, model.NewJournalEntry{
		RecordID:      "r1",
		ProjectID:     "p1",
		PracticeTitle: "Composting",
		ActivityID:    "a1",
		ActivityTitle: "Workshop",
		FarmerID:      "f1",
		FarmerNames:   "Mary K.",
		Notes:         "came early",
		PhotoCount:    1,
	}, journal.entries[0])
}

func TestSubmitFailureWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	c := NewCoordinator(&fakeRecorder{err: cause}, nil, nil)

	_, err := c.Submit(context.Background(), Draft{Activity: workshop, Farmer: mary})
	assert.ErrorIs(t, err, ErrSubmitFailed)
	assert.ErrorIs(t, err, cause)
}

func TestSubmitJournalFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecorder{record: model.AttendanceRecord{ID: "r1"}}
	c := NewCoordinator(rec, &fakeJournal{err: errors.New("disk full")}, nil)

	res, err := c.Submit(context.Background(), Draft{Activity: workshop, Farmer: mary})
	require.NoError(t, err)
	assert.Equal(t, "r1", res.Record.ID)
	assert.Zero(t, res.EntryID)
}
