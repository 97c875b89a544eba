package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agriflow/internal/api"
	"agriflow/internal/attendance"
	"agriflow/internal/scan"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds CLI configuration.
type Config struct {
	APIURL         string
	Project        string
	ProjectTitle   string
	Token          string
	DataDir        string
	DBPath         string
	CameraDevice   string
	CameraCommand  string
	ScanInterval   time.Duration
	RequestTimeout time.Duration
	MaxPhotoBytes  int64
	LogFile        string
	Debug          bool
}

// flagKeys maps flag names to their viper keys.
var flagKeys = map[string]string{
	"api-url":         "api_url",
	"project":         "project",
	"project-title":   "project_title",
	"token":           "token",
	"data-dir":        "data_dir",
	"db":              "db",
	"camera-device":   "camera_device",
	"camera-command":  "camera_command",
	"scan-interval":   "scan_interval",
	"request-timeout": "request_timeout",
	"max-photo-bytes": "max_photo_bytes",
	"log-file":        "log_file",
	"debug":           "debug",
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Config file (default: <data-dir>/config.yaml)")
	flags.String("api-url", api.DefaultBaseURL, "agriflow API base URL")
	flags.String("project", "", "Project whose activities attendance is recorded for")
	flags.String("project-title", "", "Project name shown in the header")
	flags.String("token", "", "Bearer token (default: the one saved by `agriflow login`)")
	flags.String("data-dir", "", "Directory for the journal, token and logs (default: ~/.agriflow)")
	flags.String("db", "", "Path to the SQLite journal (default: <data-dir>/agriflow.db)")
	flags.String("camera-device", scan.DefaultDevice, "Camera device used for QR scans and photos")
	flags.String("camera-command", "", "Command that writes one frame of {device} to stdout (default: ffmpeg)")
	flags.Duration("scan-interval", scan.DefaultInterval, "Delay between QR scan attempts")
	flags.Duration("request-timeout", 10*time.Second, "Timeout for API requests")
	flags.Int64("max-photo-bytes", attendance.DefaultMaxPhotoBytes, "Largest photo accepted from disk")
	flags.String("log-file", "", "Log file (default: <data-dir>/agriflow.log)")
	flags.Bool("debug", false, "Enable debug logging")
}

// newViper loads .env files and binds the environment and flags.
// The environment wins over .env values; flags win over both.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	for _, path := range []string{".env", ".env.local"} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("api_url", api.DefaultBaseURL)
	v.SetDefault("camera_device", scan.DefaultDevice)
	v.SetDefault("camera_command", scan.DefaultCommand)
	v.SetDefault("scan_interval", scan.DefaultInterval)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("max_photo_bytes", attendance.DefaultMaxPhotoBytes)
	v.SetDefault("debug", false)

	v.SetEnvPrefix("AGRIFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	configFile := ""
	if flags != nil {
		configFile, _ = flags.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		if dir, err := dataDir(v.GetString("data_dir")); err == nil {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// loadConfig resolves the configuration and fills in path defaults.
func loadConfig(v *viper.Viper) (Config, error) {
	dir, err := dataDir(v.GetString("data_dir"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:         strings.TrimSpace(v.GetString("api_url")),
		Project:        strings.TrimSpace(v.GetString("project")),
		ProjectTitle:   v.GetString("project_title"),
		Token:          strings.TrimSpace(v.GetString("token")),
		DataDir:        dir,
		DBPath:         v.GetString("db"),
		CameraDevice:   v.GetString("camera_device"),
		CameraCommand:  v.GetString("camera_command"),
		ScanInterval:   v.GetDuration("scan_interval"),
		RequestTimeout: v.GetDuration("request_timeout"),
		MaxPhotoBytes:  v.GetInt64("max_photo_bytes"),
		LogFile:        v.GetString("log_file"),
		Debug:          v.GetBool("debug"),
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dir, "agriflow.db")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(dir, "agriflow.log")
	}

	if cfg.APIURL == "" {
		return Config{}, fmt.Errorf("api_url must not be empty")
	}
	if cfg.ScanInterval <= 0 {
		return Config{}, fmt.Errorf("scan_interval must be positive, got %s", cfg.ScanInterval)
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.MaxPhotoBytes <= 0 {
		return Config{}, fmt.Errorf("max_photo_bytes must be positive, got %d", cfg.MaxPhotoBytes)
	}
	return cfg, nil
}

func dataDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, ".agriflow"), nil
	}
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, dir[2:]), nil
	}
	return dir, nil
}
