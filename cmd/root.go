package cmd

import (
	"errors"
	"fmt"

	"agriflow/internal/api"
	"agriflow/internal/attendance"
	"agriflow/internal/db"
	"agriflow/internal/scan"
	"agriflow/internal/session"
	"agriflow/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errNoProject = errors.New("no project configured (pass --project or set AGRIFLOW_PROJECT)")

type app struct {
	cfg Config
	log *zap.Logger
}

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "agriflow",
		Short: "Record farmer attendance at project activities",
		Long: `agriflow records which farmers attended a project activity.

Pick the practice and activity, find the farmer by name or by scanning
their QR card, attach photos and submit. Every recorded attendance is
kept in a local journal.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: a.run,
	}
	registerFlags(root.PersistentFlags())
	root.AddCommand(newLoginCmd(a), newLogoutCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogFile, cfg.Debug)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log.With(zap.String("command", cmd.Name()))
	return nil
}

func (a *app) newClient(tokens api.TokenSource) *api.Client {
	return api.NewClient(a.cfg.APIURL, tokens,
		api.WithLogger(a.log),
		api.WithTimeout(a.cfg.RequestTimeout),
	)
}

// resolveSession prefers an explicit token over the saved one.
func (a *app) resolveSession() (*session.Session, error) {
	token := a.cfg.Token
	if token == "" {
		saved, err := session.NewStore(a.cfg.DataDir).Load()
		if err != nil {
			return nil, err
		}
		token = saved
	}
	sess := session.New(token)
	if _, err := sess.Token(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	if a.cfg.Project == "" {
		return errNoProject
	}
	sess, err := a.resolveSession()
	if err != nil {
		return err
	}
	client := a.newClient(sess)

	database, err := db.Open(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer database.Close()

	camera := scan.NewCommandCamera(a.cfg.CameraDevice, a.cfg.CameraCommand)
	scanner := scan.NewScanner(camera, client, a.cfg.ScanInterval, a.log)
	defer scanner.Stop()

	coordinator := attendance.NewCoordinator(client, db.Journal{DB: database}, a.log)

	a.log.Info("starting",
		zap.String("api_url", a.cfg.APIURL),
		zap.String("project", a.cfg.Project),
		zap.String("db", a.cfg.DBPath),
		zap.String("camera", a.cfg.CameraDevice))

	m := ui.New(database, client, coordinator, scanner, ui.FormConfig{
		ProjectID:      a.cfg.Project,
		ProjectTitle:   a.cfg.ProjectTitle,
		RequestTimeout: a.cfg.RequestTimeout,
		MaxPhotoBytes:  a.cfg.MaxPhotoBytes,
	}, ui.PrefsPath(a.cfg.DataDir))

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running app: %w", err)
	}
	return nil
}
