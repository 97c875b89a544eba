package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agriflow/internal/api"
	"agriflow/internal/session"
	"agriflow/internal/ui"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLoginCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.newClient(nil)
			timeout := a.cfg.RequestTimeout
			login := func(email, password string) (string, error) {
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				return client.Login(ctx, email, password)
			}

			final, err := tea.NewProgram(newLoginModel(email, login), tea.WithAltScreen()).Run()
			if err != nil {
				return fmt.Errorf("login tui failed: %w", err)
			}
			m, ok := final.(loginModel)
			if !ok {
				return fmt.Errorf("unexpected login model type")
			}
			if m.token == "" {
				cmd.Println("Login cancelled.")
				return nil
			}

			if err := session.NewStore(a.cfg.DataDir).Save(m.token); err != nil {
				return err
			}
			a.log.Info("logged in", zap.String("email", m.email.Value()))
			cmd.Printf("Logged in as %s\n", m.email.Value())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Prefill the email address")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.NewStore(a.cfg.DataDir).Clear(); err != nil {
				return err
			}
			a.log.Info("logged out")
			cmd.Println("Logged out.")
			return nil
		},
	}
}

type credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

var credentialsValidator = validator.New()

// validateCredentials returns the first problem with the form, as text.
func validateCredentials(c credentials) string {
	err := credentialsValidator.Struct(c)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Field() + "." + fe.Tag() {
	case "Email.required":
		return "email is required"
	case "Email.email":
		return "enter a valid email address"
	case "Password.required":
		return "password is required"
	case "Password.min":
		return "password must be at least 6 characters"
	}
	return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
}

type loginFunc func(email, password string) (string, error)

type loginResultMsg struct {
	token string
	err   error
}

type loginModel struct {
	email    textinput.Model
	password textinput.Model
	focus    int
	login    loginFunc

	submitting bool
	status     string
	token      string
	width      int
	height     int
}

var (
	liTitleStyle = lipgloss.NewStyle().
			Foreground(ui.ColorAccent).
			Bold(true)

	liPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(ui.ColorMuted).
			Padding(1, 2)

	liInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(ui.ColorMuted).
			Padding(0, 1)

	liFocusedInputStyle = liInputStyle.
				BorderForeground(ui.ColorAccent)

	liMutedStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	liWarnStyle = lipgloss.NewStyle().
			Foreground(ui.ColorRed)
)

func newLoginModel(email string, login loginFunc) loginModel {
	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.org"
	emailInput.CharLimit = 200
	emailInput.Prompt = "email> "
	emailInput.SetValue(strings.TrimSpace(email))

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 200
	password.Prompt = "password> "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	m := loginModel{email: emailInput, password: password, login: login}
	if m.email.Value() != "" {
		m.setFocus(1)
	} else {
		m.setFocus(0)
	}
	return m
}

func (m *loginModel) setFocus(i int) {
	m.focus = i
	if i == 0 {
		m.email.Focus()
		m.password.Blur()
	} else {
		m.email.Blur()
		m.password.Focus()
	}
}

func (m loginModel) Init() tea.Cmd { return textinput.Blink }

func (m loginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loginResultMsg:
		m.submitting = false
		if msg.err != nil {
			if errors.Is(msg.err, api.ErrUnauthorized) {
				m.status = "wrong email or password"
			} else {
				m.status = "login failed: " + msg.err.Error()
			}
			return m, nil
		}
		m.token = msg.token
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.token = ""
			return m, tea.Quit
		case "tab", "down", "shift+tab", "up":
			m.setFocus(1 - m.focus)
			return m, nil
		case "enter":
			if m.submitting {
				return m, nil
			}
			if m.focus == 0 {
				m.setFocus(1)
				return m, nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m loginModel) submit() (tea.Model, tea.Cmd) {
	creds := credentials{
		Email:    strings.TrimSpace(m.email.Value()),
		Password: m.password.Value(),
	}
	if problem := validateCredentials(creds); problem != "" {
		m.status = problem
		return m, nil
	}
	m.submitting = true
	m.status = "Signing in..."
	login := m.login
	return m, func() tea.Msg {
		token, err := login(creds.Email, creds.Password)
		return loginResultMsg{token: token, err: err}
	}
}

func (m loginModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	cardWidth := min(72, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}
	inputWidth := max(30, cardWidth-8)

	emailStyle, passwordStyle := liInputStyle, liInputStyle
	if m.focus == 0 {
		emailStyle = liFocusedInputStyle
	} else {
		passwordStyle = liFocusedInputStyle
	}

	status := liMutedStyle.Render("enter to continue  tab to switch  esc to cancel")
	if m.status != "" {
		status = liWarnStyle.Render(m.status)
		if m.submitting {
			status = liMutedStyle.Render(m.status)
		}
	}

	body := lipgloss.JoinVertical(
		lipgloss.Left,
		liTitleStyle.Render("agriflow")+" "+liMutedStyle.Render("› Sign in"),
		"",
		emailStyle.Width(inputWidth).Render(m.email.View()),
		passwordStyle.Width(inputWidth).Render(m.password.View()),
		"",
		status,
		liMutedStyle.Render(time.Now().Format("Mon 02 Jan")),
	)

	card := liPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}
