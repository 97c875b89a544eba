// Package scan drives the local camera: single photo captures and the QR
// scanning loop used to identify farmers.
package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"

	"agriflow/internal/attendance"
	"agriflow/internal/model"
)

// DefaultDevice is the capture device used when none is configured.
const DefaultDevice = "/dev/video0"

// DefaultCommand grabs one JPEG frame from {device} and writes it to stdout.
const DefaultCommand = "ffmpeg -loglevel error -f v4l2 -i {device} -frames:v 1 -f image2pipe -vcodec mjpeg -"

var (
	ErrNoCamera         = errors.New("no camera found")
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrCameraBusy       = errors.New("camera is already in use")
	ErrCameraClosed     = errors.New("camera is not open")
	// ErrCameraFailing ends a scan whose camera keeps failing to capture.
	ErrCameraFailing = errors.New("camera stopped delivering frames")
)

// Camera is a capture device. Open acquires it exclusively; Close
// releases it.
type Camera interface {
	Open(ctx context.Context) error
	Snapshot(ctx context.Context) ([]byte, error)
	Close() error
}

var (
	openMu      sync.Mutex
	openDevices = map[string]bool{}
)

// CommandCamera captures frames by running an external command. The
// command is split on whitespace and every {device} is replaced with the
// device path; it must write a single encoded image to stdout.
type CommandCamera struct {
	Device  string
	Command string

	mu   sync.Mutex
	open bool
}

// NewCommandCamera returns a camera for device, using DefaultCommand when
// command is empty.
func NewCommandCamera(device, command string) *CommandCamera {
	if device == "" {
		device = DefaultDevice
	}
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	return &CommandCamera{Device: device, Command: command}
}

func (c *CommandCamera) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(c.Device)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w", c.Device, ErrNoCamera)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: %w", c.Device, ErrPermissionDenied)
	case err != nil:
		return fmt.Errorf("open %s: %w", c.Device, err)
	}
	f.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	openMu.Lock()
	defer openMu.Unlock()
	if c.open || openDevices[c.Device] {
		return fmt.Errorf("%s: %w", c.Device, ErrCameraBusy)
	}
	openDevices[c.Device] = true
	c.open = true
	return nil
}

func (c *CommandCamera) Snapshot(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		return nil, ErrCameraClosed
	}

	args := strings.Fields(strings.ReplaceAll(c.Command, "{device}", c.Device))
	if len(args) == 0 {
		return nil, errors.New("empty camera command")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("capture command %q: %w", args[0], ErrNoCamera)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("capture failed: %s: %w", msg, err)
		}
		return nil, fmt.Errorf("capture failed: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, errors.New("capture produced no image")
	}
	return stdout.Bytes(), nil
}

// Close releases the device. Closing a camera that is not open is a no-op.
func (c *CommandCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return nil
	}
	openMu.Lock()
	delete(openDevices, c.Device)
	openMu.Unlock()
	c.open = false
	return nil
}

// Capture opens cam, takes one snapshot and releases it.
func Capture(ctx context.Context, cam Camera) (model.CapturedImage, error) {
	if err := cam.Open(ctx); err != nil {
		return model.CapturedImage{}, err
	}
	defer cam.Close()

	data, err := cam.Snapshot(ctx)
	if err != nil {
		return model.CapturedImage{}, err
	}
	img, err := attendance.NewPhoto(attendance.CapturedPhotoName, data)
	if err != nil {
		return model.CapturedImage{}, err
	}
	return img, nil
}

// IsFatal reports whether err ends a scan or capture attempt rather than
// a single frame.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNoCamera) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrCameraBusy) ||
		errors.Is(err, ErrCameraClosed) ||
		errors.Is(err, ErrCameraFailing) ||
		errors.Is(err, ErrFarmerNotFound)
}
