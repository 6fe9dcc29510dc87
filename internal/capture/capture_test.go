package capture

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "gemnet/pkg/domain-errors"
)

// Minimal valid magic bytes for content sniffing.
var (
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 16)...)
	pngBytes  = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}, bytes.Repeat([]byte{0x00}, 16)...)
)

type CaptureSuite struct {
	suite.Suite
}

func TestCaptureSuite(t *testing.T) {
	suite.Run(t, new(CaptureSuite))
}

func (s *CaptureSuite) TestNormalize() {
	s.Run("jpeg accepted with sniffed mime", func() {
		img, err := Normalize(jpegBytes, "face.jpg")
		s.Require().NoError(err)
		s.Equal("image/jpeg", img.MIME)
		s.Equal("face.jpg", img.Name)
	})

	s.Run("png accepted", func() {
		img, err := Normalize(pngBytes, "nic.png")
		s.Require().NoError(err)
		s.Equal("image/png", img.MIME)
	})

	s.Run("empty payload rejected", func() {
		_, err := Normalize(nil, "empty.jpg")
		s.True(dErrors.HasCode(err, dErrors.CodeCapture))
	})

	s.Run("wrong content rejected regardless of name", func() {
		_, err := Normalize([]byte("%PDF-1.4 not an image"), "sneaky.png")
		s.True(dErrors.HasCode(err, dErrors.CodeCapture))
	})

	s.Run("oversize payload rejected", func() {
		big := make([]byte, MaxImageSize+1)
		copy(big, jpegBytes)
		_, err := Normalize(big, "huge.jpg")
		s.True(dErrors.HasCode(err, dErrors.CodeCapture))
	})
}

func (s *CaptureSuite) TestFileAdapter() {
	adapter := NewFileAdapter()

	s.Run("reads one file from a stream", func() {
		img, err := adapter.FromReader(bytes.NewReader(jpegBytes), "upload.jpg")
		s.Require().NoError(err)
		s.Equal("image/jpeg", img.MIME)
		s.Equal(jpegBytes, img.Data)
	})

	s.Run("oversize stream rejected without buffering it all", func() {
		big := make([]byte, MaxImageSize+1)
		copy(big, jpegBytes)
		_, err := adapter.FromReader(bytes.NewReader(big), "huge.jpg")
		s.True(dErrors.HasCode(err, dErrors.CodeCapture))
	})

	s.Run("missing path rejected as capture error", func() {
		_, err := adapter.FromPath("/nonexistent/face.jpg")
		s.True(dErrors.HasCode(err, dErrors.CodeCapture))
	})
}

// fakeSource scripts FrameSource behavior for permission tests.
type fakeSource struct {
	openErr   error
	frame     []byte
	openCalls int
}

func (f *fakeSource) Open(context.Context) error {
	f.openCalls++
	return f.openErr
}

func (f *fakeSource) Frame(context.Context) ([]byte, error) {
	return f.frame, nil
}

func (s *CaptureSuite) TestCameraPermission() {
	ctx := context.Background()

	s.Run("starts not-requested", func() {
		adapter := NewCameraAdapter(&fakeSource{})
		s.Equal(PermissionNotRequested, adapter.Permission())
	})

	s.Run("grant then capture", func() {
		adapter := NewCameraAdapter(&fakeSource{frame: jpegBytes})
		s.Require().NoError(adapter.Request(ctx))
		s.Equal(PermissionGranted, adapter.Permission())

		img, err := adapter.Capture(ctx)
		s.Require().NoError(err)
		s.Equal("image/jpeg", img.MIME)
	})

	s.Run("denial is remembered and never retried", func() {
		source := &fakeSource{openErr: errors.New("no device")}
		adapter := NewCameraAdapter(source)

		s.Error(adapter.Request(ctx))
		s.Equal(PermissionDenied, adapter.Permission())

		// Second request must not touch the device again.
		s.Error(adapter.Request(ctx))
		s.Equal(1, source.openCalls)
	})

	s.Run("capture without permission rejected", func() {
		adapter := NewCameraAdapter(&fakeSource{frame: jpegBytes})
		_, err := adapter.Capture(ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeCapture))
	})

	s.Run("granted request is idempotent", func() {
		source := &fakeSource{frame: jpegBytes}
		adapter := NewCameraAdapter(source)
		s.Require().NoError(adapter.Request(ctx))
		s.Require().NoError(adapter.Request(ctx))
		s.Equal(1, source.openCalls)
	})
}
