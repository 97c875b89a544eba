package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"agriflow/internal/attendance"
	"agriflow/internal/model"
	"agriflow/internal/scan"
	"agriflow/internal/util"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Backend is the part of the API the screens read from.
type Backend interface {
	Practices(ctx context.Context, projectID string) ([]model.Practice, error)
	Activities(ctx context.Context, practiceID string) ([]model.Activity, error)
	SearchFarmers(ctx context.Context, query string) ([]model.Farmer, error)
	ActivityAttendance(ctx context.Context, activityID string) ([]model.AttendanceRecord, error)
	FarmerAttendance(ctx context.Context, farmerID string) ([]model.AttendanceRecord, error)
}

// Submitter sends a finished draft.
type Submitter interface {
	Submit(ctx context.Context, d attendance.Draft) (attendance.Result, error)
}

// Scanner is the QR scanner lifecycle used by the form.
type Scanner interface {
	Start(ctx context.Context) (<-chan scan.Result, error)
	Stop()
	Camera() scan.Camera
}

const (
	fieldPractice = iota
	fieldActivity
	fieldFarmer
	fieldPhotos
	fieldNotes
	fieldCount
)

var photoExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

type practicesLoadedMsg struct {
	projectID string
	practices []model.Practice
	err       error
}

type activitiesLoadedMsg struct {
	practiceID string
	activities []model.Activity
	err        error
}

type farmerDebounceMsg struct {
	seq int
}

type farmerResultsMsg struct {
	seq     int
	farmers []model.Farmer
	err     error
}

type scanResultMsg struct {
	gen    int
	result scan.Result
	ok     bool
}

type photoAddedMsg struct {
	photo model.CapturedImage
	err   error
}

type submitResultMsg struct {
	result attendance.Result
	err    error
}

// AttendanceFormModel records one farmer's attendance at one activity.
type AttendanceFormModel struct {
	api       Backend
	submitter Submitter
	scanner   Scanner
	keys      FormKeyMap

	projectID     string
	projectTitle  string
	timeout       time.Duration
	maxPhotoBytes int64

	cascade  attendance.Cascade
	resolver attendance.Resolver
	photos   attendance.Photos

	focusedField   int
	practiceCursor int
	activityCursor int
	matchCursor    int
	photoCursor    int

	farmerInput textinput.Model
	notesInput  textinput.Model
	spinner     spinner.Model

	picker    filepicker.Model
	picking   bool
	capturing bool

	scanGen    int
	submitting bool
	err        error

	preview    string
	previewFor int
}

// FormConfig carries the settings a form is opened with.
type FormConfig struct {
	ProjectID      string
	ProjectTitle   string
	RequestTimeout time.Duration
	MaxPhotoBytes  int64
}

// NewAttendanceFormModel creates a new attendance form. scanner may be nil,
// in which case scanning and live capture are unavailable.
func NewAttendanceFormModel(api Backend, submitter Submitter, scanner Scanner, cfg FormConfig) *AttendanceFormModel {
	farmer := textinput.New()
	farmer.Placeholder = "Search farmer by name..."
	farmer.CharLimit = 100

	notes := textinput.New()
	notes.Placeholder = "Notes (optional)"
	notes.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	picker := filepicker.New()
	picker.AllowedTypes = photoExtensions
	picker.AutoHeight = false
	picker.Height = 12
	if home, err := os.UserHomeDir(); err == nil {
		picker.CurrentDirectory = home
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	return &AttendanceFormModel{
		api:           api,
		submitter:     submitter,
		scanner:       scanner,
		keys:          DefaultFormKeyMap(),
		projectID:     cfg.ProjectID,
		projectTitle:  cfg.ProjectTitle,
		timeout:       cfg.RequestTimeout,
		maxPhotoBytes: cfg.MaxPhotoBytes,
		farmerInput:   farmer,
		notesInput:    notes,
		spinner:       sp,
		picker:        picker,
		previewFor:    -1,
	}
}

// Init starts loading the project's practices.
func (m *AttendanceFormModel) Init() tea.Cmd {
	m.cascade.BeginPractices(m.projectID)
	return tea.Batch(m.loadPracticesCmd(m.projectID), m.spinner.Tick)
}

// Close releases the camera if a scan is running.
func (m *AttendanceFormModel) Close() {
	if m.scanner != nil {
		m.scanner.Stop()
	}
	if m.resolver.Scanning() {
		m.resolver.CancelScan()
	}
}

// CanSubmit reports whether the submit action is enabled.
func (m *AttendanceFormModel) CanSubmit() bool {
	activity, _ := m.cascade.SelectedActivity()
	return !m.submitting && attendance.CanSubmit(activity.ID, m.resolver.FarmerID())
}

// SelectedActivity returns the chosen activity, if any.
func (m *AttendanceFormModel) SelectedActivity() (model.Activity, bool) {
	return m.cascade.SelectedActivity()
}

// Banner returns every current error, joined for a single banner line.
func (m *AttendanceFormModel) Banner() string {
	var parts []string
	for _, err := range []error{m.err, m.cascade.Err(), m.resolver.Err()} {
		if err != nil {
			parts = append(parts, errorText(err))
		}
	}
	return strings.Join(parts, "  ·  ")
}

// Update handles all messages.
func (m AttendanceFormModel) Update(msg tea.Msg) (AttendanceFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case practicesLoadedMsg:
		if m.cascade.PracticesLoaded(msg.projectID, msg.practices, msg.err) {
			m.practiceCursor = 0
		}
		return m, nil

	case activitiesLoadedMsg:
		if m.cascade.ActivitiesLoaded(msg.practiceID, msg.activities, msg.err) {
			m.activityCursor = 0
		}
		return m, nil

	case farmerDebounceMsg:
		if m.resolver.DebounceDue(msg.seq) {
			return m, m.searchCmd(m.resolver.Query(), msg.seq)
		}
		return m, nil

	case farmerResultsMsg:
		if m.resolver.Results(msg.seq, msg.farmers, msg.err) {
			m.matchCursor = 0
		}
		return m, nil

	case scanResultMsg:
		return m.handleScanResult(msg)

	case photoAddedMsg:
		m.capturing = false
		if msg.err != nil {
			m.err = fmt.Errorf("failed to add photo: %w", msg.err)
			return m, nil
		}
		m.err = nil
		m.photos.Add(msg.photo)
		m.photoCursor = m.photos.Len() - 1
		m.refreshPreview()
		return m, nil

	case submitResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.Close()
		result := msg.result
		return m, func() tea.Msg {
			return model.AttendanceRecordedMsg{Record: result.Record, EntryID: result.EntryID}
		}

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.picking {
		return m.updatePicker(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Cancel):
		return m.cancel()
	case key.Matches(keyMsg, m.keys.Submit):
		return m.submit()
	case key.Matches(keyMsg, m.keys.Scan):
		return m.startScan()
	case key.Matches(keyMsg, m.keys.Roster):
		activity, ok := m.cascade.SelectedActivity()
		if !ok {
			m.err = errors.New("select an activity to see its roster")
			return m, nil
		}
		return m, m.loadRosterCmd(activity)
	case key.Matches(keyMsg, m.keys.Retry):
		return m.retry()
	case key.Matches(keyMsg, m.keys.NextField):
		m.setFocus((m.focusedField + 1) % fieldCount)
		return m, nil
	case key.Matches(keyMsg, m.keys.PrevField):
		m.setFocus((m.focusedField + fieldCount - 1) % fieldCount)
		return m, nil
	}

	switch m.focusedField {
	case fieldPractice:
		return m.updatePracticeField(keyMsg)
	case fieldActivity:
		return m.updateActivityField(keyMsg)
	case fieldFarmer:
		return m.updateFarmerField(keyMsg)
	case fieldPhotos:
		return m.updatePhotosField(keyMsg)
	case fieldNotes:
		var cmd tea.Cmd
		m.notesInput, cmd = m.notesInput.Update(keyMsg)
		return m, cmd
	}
	return m, nil
}

func (m AttendanceFormModel) cancel() (AttendanceFormModel, tea.Cmd) {
	if m.resolver.Scanning() {
		m.scanner.Stop()
		m.resolver.CancelScan()
		return m, nil
	}
	if m.focusedField == fieldFarmer && len(m.resolver.Matches()) > 0 {
		m.resolver.DismissMatches()
		return m, nil
	}
	m.Close()
	return m, func() tea.Msg {
		return model.FormCancelledMsg{}
	}
}

func (m AttendanceFormModel) submit() (AttendanceFormModel, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	activity, _ := m.cascade.SelectedActivity()
	if !attendance.CanSubmit(activity.ID, m.resolver.FarmerID()) {
		m.err = attendance.ErrIncomplete
		return m, nil
	}
	practice, _ := m.cascade.SelectedPractice()
	farmer, _ := m.resolver.Farmer()
	draft := attendance.Draft{
		ProjectID: m.projectID,
		Practice:  practice,
		Activity:  activity,
		Farmer:    farmer,
		Notes:     strings.TrimSpace(m.notesInput.Value()),
		Photos:    m.photos.All(),
	}
	m.submitting = true
	m.err = nil
	return m, tea.Batch(m.submitCmd(draft), m.spinner.Tick)
}

func (m AttendanceFormModel) startScan() (AttendanceFormModel, tea.Cmd) {
	if m.scanner == nil {
		m.err = scan.ErrNoCamera
		return m, nil
	}
	if m.capturing {
		m.err = scan.ErrCameraBusy
		return m, nil
	}
	if err := m.resolver.BeginScan(); err != nil {
		m.err = err
		return m, nil
	}
	ch, err := m.scanner.Start(context.Background())
	if err != nil {
		m.resolver.ScanFailed(err)
		return m, nil
	}
	m.err = nil
	m.scanGen++
	m.setFocus(fieldFarmer)
	return m, tea.Batch(waitForScan(m.scanGen, ch), m.spinner.Tick)
}

func (m AttendanceFormModel) handleScanResult(msg scanResultMsg) (AttendanceFormModel, tea.Cmd) {
	if msg.gen != m.scanGen || !m.resolver.Scanning() {
		return m, nil
	}
	switch {
	case !msg.ok:
		m.resolver.CancelScan()
	case msg.result.Err != nil:
		m.resolver.ScanFailed(msg.result.Err)
	default:
		m.err = nil
		m.resolver.ScanResolved(msg.result.Farmer)
		m.farmerInput.SetValue(msg.result.Farmer.Names)
		m.farmerInput.CursorEnd()
	}
	if m.scanner != nil {
		m.scanner.Stop()
	}
	return m, nil
}

func (m AttendanceFormModel) retry() (AttendanceFormModel, tea.Cmd) {
	switch m.cascade.Phase() {
	case attendance.PhasePracticesFailed:
		m.cascade.BeginPractices(m.projectID)
		return m, m.loadPracticesCmd(m.projectID)
	case attendance.PhaseActivitiesFailed:
		practice, _ := m.cascade.SelectedPractice()
		if m.cascade.RetryActivities() {
			return m, m.loadActivitiesCmd(practice.ID)
		}
	}
	return m, nil
}

func (m AttendanceFormModel) updatePracticeField(msg tea.KeyMsg) (AttendanceFormModel, tea.Cmd) {
	practices := m.cascade.Practices()
	switch {
	case key.Matches(msg, m.keys.Up) || msg.String() == "k":
		if m.practiceCursor > 0 {
			m.practiceCursor--
		}
	case key.Matches(msg, m.keys.Down) || msg.String() == "j":
		if m.practiceCursor < len(practices)-1 {
			m.practiceCursor++
		}
	case key.Matches(msg, m.keys.Choose) || msg.String() == " ":
		if m.practiceCursor >= len(practices) {
			return m, nil
		}
		id := practices[m.practiceCursor].ID
		if m.cascade.SelectPractice(id) {
			m.err = nil
			m.activityCursor = 0
			m.setFocus(fieldActivity)
			return m, tea.Batch(m.loadActivitiesCmd(id), m.spinner.Tick)
		}
		m.setFocus(fieldActivity)
	}
	return m, nil
}

func (m AttendanceFormModel) updateActivityField(msg tea.KeyMsg) (AttendanceFormModel, tea.Cmd) {
	activities := m.cascade.Activities()
	switch {
	case key.Matches(msg, m.keys.Up) || msg.String() == "k":
		if m.activityCursor > 0 {
			m.activityCursor--
		}
	case key.Matches(msg, m.keys.Down) || msg.String() == "j":
		if m.activityCursor < len(activities)-1 {
			m.activityCursor++
		}
	case key.Matches(msg, m.keys.Choose) || msg.String() == " ":
		if m.activityCursor < len(activities) && m.cascade.SelectActivity(activities[m.activityCursor].ID) {
			m.err = nil
			m.setFocus(fieldFarmer)
		}
	}
	return m, nil
}

func (m AttendanceFormModel) updateFarmerField(msg tea.KeyMsg) (AttendanceFormModel, tea.Cmd) {
	if m.resolver.Scanning() {
		return m, nil
	}

	matches := m.resolver.Matches()
	if len(matches) > 0 {
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.matchCursor > 0 {
				m.matchCursor--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.matchCursor < len(matches)-1 {
				m.matchCursor++
			}
			return m, nil
		case key.Matches(msg, m.keys.Choose):
			if m.matchCursor < len(matches) {
				m.selectFarmer(matches[m.matchCursor])
			}
			return m, nil
		}
	}

	before := m.farmerInput.Value()
	var cmd tea.Cmd
	m.farmerInput, cmd = m.farmerInput.Update(msg)
	if m.farmerInput.Value() == before {
		return m, cmd
	}

	seq, schedule := m.resolver.SetQuery(m.farmerInput.Value())
	if !schedule {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.spinner.Tick, tea.Tick(attendance.SearchDebounce, func(time.Time) tea.Msg {
		return farmerDebounceMsg{seq: seq}
	}))
}

// selectFarmer resolves the farmer and clears any stale banner.
func (m *AttendanceFormModel) selectFarmer(f model.Farmer) {
	m.err = nil
	m.resolver.Select(f)
	m.farmerInput.SetValue(f.Names)
	m.farmerInput.CursorEnd()
	m.matchCursor = 0
	m.setFocus(fieldPhotos)
}

func (m AttendanceFormModel) updatePhotosField(msg tea.KeyMsg) (AttendanceFormModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up) || msg.String() == "k":
		if m.photoCursor > 0 {
			m.photoCursor--
			m.refreshPreview()
		}
	case key.Matches(msg, m.keys.Down) || msg.String() == "j":
		if m.photoCursor < m.photos.Len()-1 {
			m.photoCursor++
			m.refreshPreview()
		}
	case key.Matches(msg, m.keys.AddPhoto):
		m.picking = true
		return m, m.picker.Init()
	case key.Matches(msg, m.keys.Capture):
		if m.scanner == nil {
			m.err = scan.ErrNoCamera
			return m, nil
		}
		if m.resolver.Scanning() || m.capturing {
			m.err = scan.ErrCameraBusy
			return m, nil
		}
		m.capturing = true
		return m, tea.Batch(m.captureCmd(), m.spinner.Tick)
	case key.Matches(msg, m.keys.RemovePhoto):
		if err := m.photos.Remove(m.photoCursor); err != nil {
			return m, nil
		}
		if m.photoCursor >= m.photos.Len() && m.photoCursor > 0 {
			m.photoCursor--
		}
		m.previewFor = -1
		m.refreshPreview()
	}
	return m, nil
}

func (m AttendanceFormModel) updatePicker(msg tea.Msg) (AttendanceFormModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.keys.ClosePicker) {
		m.picking = false
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.picking = false
		return m, tea.Batch(cmd, m.loadPhotoCmd(path))
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.err = fmt.Errorf("%s is not a supported photo", path)
	}
	return m, cmd
}

func (m *AttendanceFormModel) setFocus(field int) {
	m.focusedField = field
	m.farmerInput.Blur()
	m.notesInput.Blur()
	switch field {
	case fieldFarmer:
		m.farmerInput.Focus()
	case fieldNotes:
		m.notesInput.Focus()
	case fieldPhotos:
		m.refreshPreview()
	}
}

func (m *AttendanceFormModel) refreshPreview() {
	if m.previewFor == m.photoCursor && m.preview != "" {
		return
	}
	m.preview = ""
	m.previewFor = m.photoCursor
	photo, ok := m.photos.At(m.photoCursor)
	if !ok {
		return
	}
	preview, err := RenderPhotoPreview(photo.Data, 36, 14)
	if err != nil {
		m.preview = HelpDescStyle.Render("(no preview)")
		return
	}
	m.preview = preview
}

func (m *AttendanceFormModel) busy() bool {
	return m.cascade.Loading() || m.resolver.Searching() || m.resolver.Scanning() || m.submitting || m.capturing
}

// Commands

func (m *AttendanceFormModel) loadPracticesCmd(projectID string) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		practices, err := api.Practices(ctx, projectID)
		return practicesLoadedMsg{projectID: projectID, practices: practices, err: err}
	}
}

func (m *AttendanceFormModel) loadActivitiesCmd(practiceID string) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		activities, err := api.Activities(ctx, practiceID)
		return activitiesLoadedMsg{practiceID: practiceID, activities: activities, err: err}
	}
}

func (m *AttendanceFormModel) searchCmd(query string, seq int) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		farmers, err := api.SearchFarmers(ctx, query)
		return farmerResultsMsg{seq: seq, farmers: farmers, err: err}
	}
}

func (m *AttendanceFormModel) loadRosterCmd(activity model.Activity) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		records, err := api.ActivityAttendance(ctx, activity.ID)
		if err != nil {
			return model.ErrorMsg{Err: fmt.Errorf("failed to load roster: %w", err)}
		}
		return model.RosterLoadedMsg{Activity: activity, Records: records}
	}
}

func (m *AttendanceFormModel) submitCmd(draft attendance.Draft) tea.Cmd {
	submitter, timeout := m.submitter, m.timeout
	return func() tea.Msg {
		// Photos make this request slower than the lookups.
		ctx, cancel := context.WithTimeout(context.Background(), 3*timeout)
		defer cancel()
		res, err := submitter.Submit(ctx, draft)
		return submitResultMsg{result: res, err: err}
	}
}

func (m *AttendanceFormModel) captureCmd() tea.Cmd {
	cam, timeout := m.scanner.Camera(), m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		photo, err := scan.Capture(ctx, cam)
		return photoAddedMsg{photo: photo, err: err}
	}
}

func (m *AttendanceFormModel) loadPhotoCmd(path string) tea.Cmd {
	limit := m.maxPhotoBytes
	return func() tea.Msg {
		photo, err := attendance.LoadPhoto(path, limit)
		return photoAddedMsg{photo: photo, err: err}
	}
}

func waitForScan(gen int, ch <-chan scan.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		return scanResultMsg{gen: gen, result: res, ok: ok}
	}
}

// errorText turns workflow errors into banner text.
func errorText(err error) string {
	switch {
	case errors.Is(err, attendance.ErrSubmitFailed):
		return attendance.ErrSubmitFailed.Error()
	case errors.Is(err, attendance.ErrPracticesFailed):
		return attendance.ErrPracticesFailed.Error() + " (ctrl+t to retry)"
	case errors.Is(err, attendance.ErrActivitiesFailed):
		return attendance.ErrActivitiesFailed.Error() + " (ctrl+t to retry)"
	case errors.Is(err, attendance.ErrSearchFailed):
		return attendance.ErrSearchFailed.Error()
	case errors.Is(err, scan.ErrNoCamera):
		return "no camera available"
	case errors.Is(err, scan.ErrPermissionDenied):
		return "camera permission denied"
	case errors.Is(err, scan.ErrCameraBusy):
		return "camera is busy"
	case errors.Is(err, scan.ErrCameraFailing):
		return "camera stopped responding"
	case errors.Is(err, scan.ErrFarmerNotFound):
		return "no farmer matches the scanned code"
	default:
		return err.Error()
	}
}

// View renders the form.
func (m *AttendanceFormModel) View(width, height int) string {
	if m.picking {
		title := LabelStyle.Render("Choose a photo")
		help := HelpDescStyle.Render("enter select  h/← up a folder  q close")
		body := lipgloss.JoinVertical(lipgloss.Left, title, HelpDescStyle.Render(m.picker.CurrentDirectory), "", m.picker.View(), "", help)
		return PanelStyle.Width(width - 4).Height(height - 4).Render(body)
	}

	var fields []string
	fields = append(fields, m.renderPracticeField(width))
	fields = append(fields, m.renderActivityField(width))
	fields = append(fields, m.renderFarmerField(width))
	fields = append(fields, m.renderPhotosField(width))
	fields = append(fields, renderFormField("Notes", m.notesInput.View(), m.focusedField == fieldNotes))
	fields = append(fields, m.renderSubmitLine())

	formContent := strings.Join(fields, "\n")
	if m.focusedField == fieldPhotos && m.preview != "" && width >= 100 {
		leftWidth := max(48, (width-14)*55/100)
		left := lipgloss.NewStyle().Width(leftWidth).Render(formContent)
		right := BorderStyle.Render(m.preview)
		formContent = lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
	}

	return PanelStyle.
		Width(width - 4).
		MaxHeight(height).
		Render(formContent)
}

func (m *AttendanceFormModel) renderPracticeField(width int) string {
	focused := m.focusedField == fieldPractice
	label := "Practice *"
	if m.projectTitle != "" {
		label = fmt.Sprintf("Practice * (%s)", m.projectTitle)
	}

	var body string
	switch m.cascade.Phase() {
	case attendance.PhaseIdle, attendance.PhasePracticesLoading:
		body = HelpDescStyle.Render(m.spinner.View() + " Loading practices...")
	case attendance.PhasePracticesFailed:
		body = HelpDescStyle.Render("Practices unavailable")
	default:
		selected, _ := m.cascade.SelectedPractice()
		body = m.renderChoices(practiceTitles(m.cascade.Practices()), m.practiceCursor, selected.Title, focused, width)
	}
	return renderFormField(label, body, focused)
}

func (m *AttendanceFormModel) renderActivityField(width int) string {
	focused := m.focusedField == fieldActivity

	var body string
	switch m.cascade.Phase() {
	case attendance.PhaseActivitiesLoading:
		body = HelpDescStyle.Render(m.spinner.View() + " Loading activities...")
	case attendance.PhaseActivitiesFailed:
		body = HelpDescStyle.Render("Activities unavailable")
	case attendance.PhaseActivitiesLoaded:
		activities := m.cascade.Activities()
		if len(activities) == 0 {
			body = HelpDescStyle.Render("No activities for this practice")
			break
		}
		selected, _ := m.cascade.SelectedActivity()
		body = m.renderChoices(activityTitles(activities), m.activityCursor, selected.Title, focused, width)
	default:
		body = DisabledStyle.Strikethrough(false).Render("Select a practice first")
	}
	return renderFormField("Activity *", body, focused)
}

func (m *AttendanceFormModel) renderChoices(titles []string, cursor int, selected string, focused bool, width int) string {
	if len(titles) == 0 {
		return HelpDescStyle.Render("Nothing to choose from")
	}
	if !focused {
		if selected == "" {
			return HelpDescStyle.Render(fmt.Sprintf("%d available, none selected", len(titles)))
		}
		return NormalRowStyle.Render(selected)
	}

	lineWidth := max(10, width-16)
	start := max(0, cursor-3)
	end := min(len(titles), start+7)
	var lines []string
	for i := start; i < end; i++ {
		marker := "  "
		if titles[i] == selected {
			marker = "✓ "
		}
		style := NormalRowStyle
		if i == cursor {
			style = SelectedRowStyle
		}
		lines = append(lines, style.Width(lineWidth).Render(marker+util.TruncateString(titles[i], lineWidth-2)))
	}
	return strings.Join(lines, "\n")
}

func (m *AttendanceFormModel) renderFarmerField(width int) string {
	focused := m.focusedField == fieldFarmer
	var body string
	if m.resolver.Scanning() {
		body = WarningStyle.Render(m.spinner.View() + " Scanning QR code... hold the card to the camera (esc to stop)")
	} else {
		body = m.farmerInput.View()
		if farmer, ok := m.resolver.Farmer(); ok {
			check := lipgloss.NewStyle().Foreground(ColorGreen).Render("✓")
			id := farmer.FarmerNumber
			if id == "" {
				id = farmer.ID
			}
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", check, " ", HelpDescStyle.Render(id))
		}
		switch {
		case m.resolver.Searching():
			body = lipgloss.JoinVertical(lipgloss.Left, body, HelpDescStyle.Render(m.spinner.View()+" Searching..."))
		case focused && len(m.resolver.Matches()) > 0:
			body = lipgloss.JoinVertical(lipgloss.Left, body, m.renderMatches(width-12))
		}
	}
	return renderFormField("Farmer *  (ctrl+f scan QR)", body, focused)
}

func (m *AttendanceFormModel) renderMatches(width int) string {
	var items []string
	for i, f := range m.resolver.Matches() {
		style := NormalRowStyle
		if i == m.matchCursor {
			style = SelectedRowStyle
		}
		left := util.TruncateString(f.Names, 40)
		right := HelpDescStyle.Render(f.FarmerNumber)
		availableWidth := max(10, width-4)
		padding := max(0, availableWidth-lipgloss.Width(left)-lipgloss.Width(right))
		items = append(items, style.Width(availableWidth).Render(left+strings.Repeat(" ", padding)+right))
	}
	return strings.Join(items, "\n")
}

func (m *AttendanceFormModel) renderPhotosField(width int) string {
	focused := m.focusedField == fieldPhotos
	var lines []string
	for i, p := range m.photos.All() {
		chip := fmt.Sprintf("%s  %s", util.TruncateString(p.Name, max(10, width-30)), util.FormatBytes(len(p.Data)))
		if focused && i == m.photoCursor {
			lines = append(lines, SelectedRowStyle.Render(" "+chip+" "))
		} else {
			lines = append(lines, ChipStyle.Render(chip))
		}
	}
	if m.capturing {
		lines = append(lines, HelpDescStyle.Render(m.spinner.View()+" Capturing..."))
	}
	if len(lines) == 0 {
		lines = append(lines, HelpDescStyle.Render("No photos"))
	}
	if focused {
		lines = append(lines, HelpDescStyle.Render("o add from file  p take photo  x remove"))
	}
	return renderFormField(fmt.Sprintf("Photos (%d)", m.photos.Len()), strings.Join(lines, "\n"), focused)
}

func (m *AttendanceFormModel) renderSubmitLine() string {
	var status string
	switch {
	case m.submitting:
		status = WarningStyle.Render(m.spinner.View() + " Recording attendance...")
	case m.CanSubmit():
		status = HelpKeyStyle.Render("ctrl+s") + " " + NormalRowStyle.Render("record attendance")
	default:
		status = DisabledStyle.Render("ctrl+s record attendance") + HelpDescStyle.Render("  (select an activity and a farmer)")
	}
	return " " + status
}

func practiceTitles(practices []model.Practice) []string {
	titles := make([]string, len(practices))
	for i, p := range practices {
		titles[i] = p.Title
	}
	return titles
}

func activityTitles(activities []model.Activity) []string {
	titles := make([]string, len(activities))
	for i, a := range activities {
		titles[i] = a.Title
	}
	return titles
}

func renderFormField(label, body string, focused bool) string {
	style := BorderStyle
	if focused {
		style = ActiveBorderStyle
	}

	field := lipgloss.JoinVertical(
		lipgloss.Left,
		LabelStyle.Render(label),
		body,
	)

	return style.Render(field)
}
