package capture

import (
	"context"
	"sync"

	dErrors "gemnet/pkg/domain-errors"
)

// Permission is the camera's device-permission state. It starts at
// NotRequested; Request moves it to Granted or Denied exactly once per
// adapter lifetime. A denial is never retried automatically — only a fresh
// adapter (a new page load, in the original UI) asks again.
type Permission int

const (
	PermissionNotRequested Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "not-requested"
	}
}

// FrameSource abstracts the device producing frames. Implementations wrap
// whatever capture backend is available; tests inject static frames.
type FrameSource interface {
	// Open asks the device for access. An error means access was denied
	// or no device exists.
	Open(ctx context.Context) error

	// Frame returns one captured frame as encoded image bytes.
	Frame(ctx context.Context) ([]byte, error)
}

// CameraAdapter manages permission state around a FrameSource and
// normalizes captured frames.
type CameraAdapter struct {
	source FrameSource

	mu         sync.Mutex
	permission Permission
}

func NewCameraAdapter(source FrameSource) *CameraAdapter {
	return &CameraAdapter{source: source}
}

// Permission returns the current device-permission state.
func (a *CameraAdapter) Permission() Permission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.permission
}

// Request asks for device access. Once denied, subsequent calls keep
// returning the denial without touching the device again.
func (a *CameraAdapter) Request(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.permission {
	case PermissionGranted:
		return nil
	case PermissionDenied:
		return dErrors.New(dErrors.CodeCapture, "camera access denied")
	}

	if err := a.source.Open(ctx); err != nil {
		a.permission = PermissionDenied
		return dErrors.Wrap(dErrors.CodeCapture, "camera access denied", err)
	}
	a.permission = PermissionGranted
	return nil
}

// Capture grabs a single frame and normalizes it. Requires a prior granted
// Request.
func (a *CameraAdapter) Capture(ctx context.Context) (Image, error) {
	if a.Permission() != PermissionGranted {
		return Image{}, dErrors.New(dErrors.CodeCapture, "camera permission not granted")
	}

	frame, err := a.source.Frame(ctx)
	if err != nil {
		return Image{}, dErrors.Wrap(dErrors.CodeCapture, "camera capture failed", err)
	}
	return Normalize(frame, "camera-capture.jpg")
}
