package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"agriflow/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL is used when no API url is configured.
const DefaultBaseURL = "http://localhost:5000/api"

// DefaultTimeout bounds requests whose context carries no deadline.
const DefaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() (string, error)
}

// Client wraps the agriflow REST API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	timeout    time.Duration
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the deadline applied to requests made without one.
// A caller's own context deadline always wins, so long uploads can be
// given more time than lookups.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new API client.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Practices lists the practices of a project.
func (c *Client) Practices(ctx context.Context, projectID string) ([]model.Practice, error) {
	var result struct {
		Data []model.Practice `json:"data"`
	}
	if err := c.getJSON(ctx, "/project/project-practices/"+url.PathEscape(projectID), &result); err != nil {
		return nil, err
	}
	return nonNil(result.Data), nil
}

// Activities lists the activities of a practice.
func (c *Client) Activities(ctx context.Context, practiceID string) ([]model.Activity, error) {
	var result struct {
		Data []model.Activity `json:"data"`
	}
	if err := c.getJSON(ctx, "/project/practice-activities/"+url.PathEscape(practiceID), &result); err != nil {
		return nil, err
	}
	return nonNil(result.Data), nil
}

// SearchFarmers searches farmers by name substring. An empty query returns
// no results without calling the API.
func (c *Client) SearchFarmers(ctx context.Context, query string) ([]model.Farmer, error) {
	if strings.TrimSpace(query) == "" {
		return []model.Farmer{}, nil
	}
	params := url.Values{}
	params.Set("query", query)

	var result struct {
		Farmers []model.Farmer `json:"farmers"`
	}
	if err := c.getJSON(ctx, "/search?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return nonNil(result.Farmers), nil
}

// FarmerByQRCode maps a scanned code to a farmer.
func (c *Client) FarmerByQRCode(ctx context.Context, code string) (model.Farmer, error) {
	var result struct {
		Farmer *model.Farmer `json:"farmer"`
	}
	if err := c.getJSON(ctx, "/farmer/by-qrcode/"+url.PathEscape(code), &result); err != nil {
		return model.Farmer{}, err
	}
	if result.Farmer == nil || result.Farmer.ID == "" {
		return model.Farmer{}, fmt.Errorf("farmer for code %q: %w", code, ErrNotFound)
	}
	return *result.Farmer, nil
}

// ActivityAttendance lists attendance recorded for an activity.
func (c *Client) ActivityAttendance(ctx context.Context, activityID string) ([]model.AttendanceRecord, error) {
	var result struct {
		Attendance []model.AttendanceRecord `json:"attendance"`
	}
	if err := c.getJSON(ctx, "/project/attendance/"+url.PathEscape(activityID), &result); err != nil {
		return nil, err
	}
	return nonNil(result.Attendance), nil
}

// FarmerAttendance lists a farmer's attendance across activities.
func (c *Client) FarmerAttendance(ctx context.Context, farmerID string) ([]model.AttendanceRecord, error) {
	var result struct {
		Data []model.AttendanceRecord `json:"data"`
	}
	if err := c.getJSON(ctx, "/project/farmer-attendance/"+url.PathEscape(farmerID), &result); err != nil {
		return nil, err
	}
	return nonNil(result.Data), nil
}

// RecordAttendance posts an attendance submission as multipart form data.
func (c *Client) RecordAttendance(ctx context.Context, sub model.AttendanceSubmission) (model.AttendanceRecord, error) {
	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/project/attendance", body, true)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	req.Header.Set("Content-Type", contentType)

	raw, err := c.do(req)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	return decodeRecord(raw)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", bytes.NewReader(payload), false)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("JSON decode error: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return result.Token, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return err
	}
	raw, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("JSON decode error: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, auth bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	if auth {
		if c.tokens == nil {
			return nil, fmt.Errorf("no session: %w", ErrUnauthorized)
		}
		token, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	log := c.log.With(
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
	)

	if _, ok := req.Context().Deadline(); !ok {
		ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	log.Debug("request done",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Message: serverMessage(raw)}
	}
	return raw, nil
}

func serverMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func encodeSubmission(sub model.AttendanceSubmission) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("activityId", sub.ActivityID); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("farmerId", sub.FarmerID); err != nil {
		return nil, "", err
	}
	for _, photo := range sub.Photos {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename="%s"`, escapeQuotes(photo.Name)))
		contentType := photo.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(photo.Data)
		}
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(photo.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("notes", sub.Notes); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// decodeRecord accepts the record bare or wrapped in a data/attendance key.
func decodeRecord(raw []byte) (model.AttendanceRecord, error) {
	var envelope struct {
		Data       json.RawMessage `json:"data"`
		Attendance json.RawMessage `json:"attendance"`
	}
	body := raw
	if err := json.Unmarshal(raw, &envelope); err == nil {
		switch {
		case isObject(envelope.Data):
			body = envelope.Data
		case isObject(envelope.Attendance):
			body = envelope.Attendance
		}
	}

	var record model.AttendanceRecord
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &record); err != nil {
			return model.AttendanceRecord{}, fmt.Errorf("JSON decode error: %w", err)
		}
	}
	record.Raw = append(json.RawMessage(nil), raw...)
	return record, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
