package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"agriflow/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

type failingToken struct{ err error }

func (f failingToken) Token() (string, error) { return "", f.err }

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, staticToken("tok-123"), WithHTTPClient(srv.Client())), srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestPracticesAndActivities(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		switch r.URL.Path {
		case "/project/project-practices/p1":
			writeJSON(t, w, map[string]any{"data": []model.Practice{{ID: "tp1", Title: "Compost Application"}}})
		case "/project/practice-activities/tp1":
			writeJSON(t, w, map[string]any{"data": []model.Activity{{ID: "a1", Title: "Workshop"}}})
		default:
			http.NotFound(w, r)
		}
	})

	practices, err := c.Practices(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []model.Practice{{ID: "tp1", Title: "Compost Application"}}, practices)

	activities, err := c.Activities(context.Background(), "tp1")
	require.NoError(t, err)
	assert.Equal(t, []model.Activity{{ID: "a1", Title: "Workshop"}}, activities)
}

func TestPracticesEmptyDataIsNonNil(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": nil})
	})
	practices, err := c.Practices(context.Background(), "p1")
	require.NoError(t, err)
	assert.NotNil(t, practices)
	assert.Empty(t, practices)
}

func TestSearchFarmers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Mary K", r.URL.Query().Get("query"))
		writeJSON(t, w, map[string]any{"farmers": []model.Farmer{{ID: "f1", Names: "Mary K."}}})
	})

	farmers, err := c.SearchFarmers(context.Background(), "Mary K")
	require.NoError(t, err)
	assert.Equal(t, []model.Farmer{{ID: "f1", Names: "Mary K."}}, farmers)
}

func TestSearchFarmersEmptyQuerySkipsNetwork(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	farmers, err := c.SearchFarmers(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, farmers)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFarmerByQRCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/farmer/by-qrcode/QR-1":
			writeJSON(t, w, map[string]any{"farmer": model.Farmer{ID: "f1", Names: "Mary K."}})
		case "/farmer/by-qrcode/EMPTY":
			writeJSON(t, w, map[string]any{"farmer": nil})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Farmer not found"}`)
		}
	})

	farmer, err := c.FarmerByQRCode(context.Background(), "QR-1")
	require.NoError(t, err)
	assert.Equal(t, model.Farmer{ID: "f1", Names: "Mary K."}, farmer)

	_, err = c.FarmerByQRCode(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Farmer not found", se.Message)

	_, err = c.FarmerByQRCode(context.Background(), "EMPTY")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordAttendanceMultipart(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/project/attendance", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "a1", r.FormValue("activityId"))
		assert.Equal(t, "f1", r.FormValue("farmerId"))
		assert.Equal(t, "came early", r.FormValue("notes"))

		files := r.MultipartForm.File["photos"]
		require.Len(t, files, 2)
		assert.Equal(t, "one.jpg", files[0].Filename)
		assert.Equal(t, "captured-image.jpg", files[1].Filename)
		assert.Equal(t, "image/jpeg", files[0].Header.Get("Content-Type"))

		f, err := files[1].Open()
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"att-9","activityId":"a1","farmerId":"f1","notes":"came early","photos":["x.jpg","y.jpg"]}`)
	})

	record, err := c.RecordAttendance(context.Background(), model.AttendanceSubmission{
		ActivityID: "a1",
		FarmerID:   "f1",
		Notes:      "came early",
		Photos: []model.CapturedImage{
			{Name: "one.jpg", ContentType: "image/jpeg", Data: []byte("first")},
			{Name: "captured-image.jpg", ContentType: "image/jpeg", Data: []byte("second")},
		},
	})
	require.NoError(t, err)

	want := model.AttendanceRecord{
		ID:         "att-9",
		ActivityID: "a1",
		FarmerID:   "f1",
		Notes:      "came early",
		Photos:     []string{"x.jpg", "y.jpg"},
	}
	if diff := cmp.Diff(want, record, cmpopts.IgnoreFields(model.AttendanceRecord{}, "Raw")); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	assert.JSONEq(t, `{"id":"att-9","activityId":"a1","farmerId":"f1","notes":"came early","photos":["x.jpg","y.jpg"]}`, string(record.Raw))
}

func TestRecordAttendanceWithoutPhotos(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.MultipartForm.File["photos"])
		assert.Equal(t, "", r.FormValue("notes"))
		writeJSON(t, w, map[string]any{"data": map[string]any{"id": "att-1"}})
	})

	record, err := c.RecordAttendance(context.Background(), model.AttendanceSubmission{ActivityID: "a1", FarmerID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, "att-1", record.ID)
}

func TestCallerDeadlineOutlastsDefaultTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		writeJSON(t, w, map[string]any{"id": "att-2"})
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, staticToken("tok-123"), WithTimeout(50*time.Millisecond))

	// An upload given three times the timeout finishes even though the
	// server answers after the default timeout has passed.
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond*3)
	defer cancel()
	record, err := c.RecordAttendance(ctx, model.AttendanceSubmission{ActivityID: "a1", FarmerID: "f1"})
	require.NoError(t, err)
	assert.Equal(t, "att-2", record.ID)

	// Without a caller deadline the default applies.
	_, err = c.Practices(context.Background(), "proj-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecordAttendanceServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.RecordAttendance(context.Background(), model.AttendanceSubmission{ActivityID: "a1", FarmerID: "f1"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
}

func TestTokenErrorStopsRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	sentinel := errors.New("expired")
	c := NewClient(srv.URL, failingToken{err: sentinel})
	_, err := c.Practices(context.Background(), "p1")
	assert.ErrorIs(t, err, sentinel)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestUnauthorized(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Activities(context.Background(), "tp1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestAttendanceLists(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/project/attendance/a1":
			_, _ = io.WriteString(w, `{"attendance":[{"id":"r1","activityId":"a1","farmer":{"id":"f1","names":"Mary K."},"notes":"","photos":[]}]}`)
		case "/project/farmer-attendance/f1":
			_, _ = io.WriteString(w, `{"message":"ok","data":[{"id":"r1","notes":"n","photos":["p.jpg"],"createdAt":"2025-03-01T10:00:00Z","activity":{"title":"Workshop","targetPractice":{"title":"Compost Application","project":{"title":"Soil"}}}}]}`)
		}
	})

	roster, err := c.ActivityAttendance(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Mary K.", roster[0].Farmer.Names)

	history, err := c.FarmerAttendance(context.Background(), "f1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Compost Application", history[0].PracticeTitle())
	assert.Equal(t, "Soil", history[0].Activity.TargetPractice.Project.Title)
}

func TestLogin(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		writeJSON(t, w, map[string]string{"token": "new-token"})
	})

	token, err := c.Login(context.Background(), "v@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)

	_, err = c.Login(context.Background(), "v@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Invalid credentials")
}
