package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"agriflow/internal/api"
	"agriflow/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is how often a frame is grabbed while scanning.
const DefaultInterval = time.Second

// MaxCaptureFailures is the number of consecutive failed captures after
// which a scan gives up.
const MaxCaptureFailures = 5

var (
	// ErrFarmerNotFound is returned when a scanned code matches no farmer.
	ErrFarmerNotFound = errors.New("farmer not found for scanned code")
	// ErrScanning is returned by Start while a scan is already running.
	ErrScanning = errors.New("scan already running")

	errResolved = errors.New("resolved")
)

// Lookup resolves opaque QR codes to farmers.
type Lookup interface {
	FarmerByQRCode(ctx context.Context, code string) (model.Farmer, error)
}

// Result ends a scan: either the resolved farmer or the error that
// stopped it.
type Result struct {
	Farmer model.Farmer
	Err    error
}

// Scanner polls a camera for QR codes until one resolves to a farmer.
// The camera is held only between Start and the end of the scan.
type Scanner struct {
	cam      Camera
	lookup   Lookup
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScanner creates a scanner. interval <= 0 uses DefaultInterval.
func NewScanner(cam Camera, lookup Lookup, interval time.Duration, log *zap.Logger) *Scanner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{cam: cam, lookup: lookup, interval: interval, log: log}
}

// Camera returns the scanner's camera, shared with photo capture.
func (s *Scanner) Camera() Camera { return s.cam }

// Start opens the camera and begins scanning. The returned channel
// delivers at most one Result and is closed when the scan ends; a scan
// ended by Stop or ctx delivers nothing.
func (s *Scanner) Start(ctx context.Context) (<-chan Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return nil, ErrScanning
		}
	}

	if err := s.cam.Open(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Result, 1)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		defer close(out)
		defer cancel()

		farmer, err := s.run(ctx)
		if cerr := s.cam.Close(); cerr != nil {
			s.log.Warn("failed to release camera", zap.Error(cerr))
		}
		switch {
		case errors.Is(err, errResolved):
			out <- Result{Farmer: farmer}
		case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		default:
			out <- Result{Err: err}
		}
	}()
	return out, nil
}

// Stop cancels a running scan and waits for the camera to be released.
// It is safe to call any number of times.
func (s *Scanner) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a scan is in progress.
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Scanner) run(ctx context.Context) (model.Farmer, error) {
	g, gctx := errgroup.WithContext(ctx)
	frames := make(chan []byte)
	var farmer model.Farmer

	g.Go(func() error {
		defer close(frames)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		failures := 0
		for {
			frame, err := s.cam.Snapshot(gctx)
			switch {
			case err == nil:
				failures = 0
				select {
				case frames <- frame:
				case <-gctx.Done():
					return gctx.Err()
				}
			case IsFatal(err):
				return err
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				failures++
				s.log.Debug("frame capture failed", zap.Int("failures", failures), zap.Error(err))
				if failures >= MaxCaptureFailures {
					return fmt.Errorf("%w: %v", ErrCameraFailing, err)
				}
			}
			select {
			case <-ticker.C:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for frame := range frames {
			text, err := DecodeQR(frame)
			if err != nil {
				s.log.Debug("no QR code decoded", zap.Error(err))
				continue
			}
			payload, err := ParsePayload(text)
			if err != nil {
				s.log.Debug("unreadable QR payload", zap.Error(err))
				continue
			}
			f, err := s.resolve(gctx, payload)
			if err != nil {
				return err
			}
			farmer = f
			return errResolved
		}
		return nil
	})

	err := g.Wait()
	return farmer, err
}

func (s *Scanner) resolve(ctx context.Context, payload Payload) (model.Farmer, error) {
	if payload.Farmer != nil {
		s.log.Info("scanned farmer card", zap.String("farmer_id", payload.Farmer.ID))
		return *payload.Farmer, nil
	}
	f, err := s.lookup.FarmerByQRCode(ctx, payload.Code)
	if errors.Is(err, api.ErrNotFound) {
		return model.Farmer{}, fmt.Errorf("%w: %v", ErrFarmerNotFound, err)
	}
	if err != nil {
		return model.Farmer{}, fmt.Errorf("resolve scanned code: %w", err)
	}
	s.log.Info("resolved scanned code", zap.String("farmer_id", f.ID))
	return f, nil
}
