package attendance

import (
	"context"
	"errors"
	"strings"

	"agriflow/internal/model"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	// ErrIncomplete is the validation failure for a submission missing its
	// activity or farmer. No request is sent.
	ErrIncomplete = errors.New("select an activity and a farmer")
	// ErrSubmitFailed wraps any network or server failure of a submission.
	ErrSubmitFailed = errors.New("failed to record attendance, please try again")
)

// Recorder sends a submission to the server.
type Recorder interface {
	RecordAttendance(ctx context.Context, sub model.AttendanceSubmission) (model.AttendanceRecord, error)
}

// Journal keeps a local receipt of accepted submissions.
type Journal interface {
	Append(entry model.NewJournalEntry) (int64, error)
}

// Draft is the workflow state a submission is built from.
type Draft struct {
	ProjectID string
	Practice  model.Practice
	Activity  model.Activity
	Farmer    model.Farmer
	Notes     string
	Photos    []model.CapturedImage
}

// Result is a successful submission.
type Result struct {
	Record  model.AttendanceRecord
	EntryID int64
}

// CanSubmit reports whether both an activity and a farmer are resolved.
func CanSubmit(activityID, farmerID string) bool {
	return activityID != "" && farmerID != ""
}

// Coordinator validates drafts and submits them.
type Coordinator struct {
	recorder Recorder
	journal  Journal
	validate *validator.Validate
	log      *zap.Logger
}

// NewCoordinator creates a coordinator. journal and log may be nil.
func NewCoordinator(recorder Recorder, journal Journal, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		recorder: recorder,
		journal:  journal,
		validate: validator.New(),
		log:      log,
	}
}

// Build validates the draft and materializes the submission.
func (c *Coordinator) Build(d Draft) (model.AttendanceSubmission, error) {
	sub := model.AttendanceSubmission{
		ActivityID: strings.TrimSpace(d.Activity.ID),
		FarmerID:   strings.TrimSpace(d.Farmer.ID),
		Notes:      d.Notes,
		Photos:     d.Photos,
	}
	if err := c.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return model.AttendanceSubmission{}, ErrIncomplete
		}
		return model.AttendanceSubmission{}, err
	}
	return sub, nil
}

// Submit validates and posts the draft. Validation failures return
// ErrIncomplete without touching the network; request failures wrap
// ErrSubmitFailed.
func (c *Coordinator) Submit(ctx context.Context, d Draft) (Result, error) {
	sub, err := c.Build(d)
	if err != nil {
		return Result{}, err
	}

	log := c.log.With(
		zap.String("activity_id", sub.ActivityID),
		zap.String("farmer_id", sub.FarmerID),
		zap.Int("photos", len(sub.Photos)),
	)
	record, err := c.recorder.RecordAttendance(ctx, sub)
	if err != nil {
		log.Error("attendance submission failed", zap.Error(err))
		return Result{}, errors.Join(ErrSubmitFailed, err)
	}
	log.Info("attendance recorded", zap.String("record_id", record.ID))

	res := Result{Record: record}
	if c.journal != nil {
		id, err := c.journal.Append(model.NewJournalEntry{
			RecordID:      record.ID,
			ProjectID:     d.ProjectID,
			PracticeTitle: d.Practice.Title,
			ActivityID:    sub.ActivityID,
			ActivityTitle: d.Activity.Title,
			FarmerID:      sub.FarmerID,
			FarmerNames:   d.Farmer.Names,
			Notes:         sub.Notes,
			PhotoCount:    len(sub.Photos),
		})
		if err != nil {
			log.Warn("failed to journal attendance", zap.Error(err))
		} else {
			res.EntryID = id
		}
	}
	return res, nil
}
