package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"gemnet/internal/registration/models"
)

type StoreSuite struct {
	suite.Suite
	ctx context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
}

func midFlowSession() models.Session {
	return models.Session{
		CurrentStep:               models.StepNicVerification,
		PersonalInfoCompleted:     true,
		FaceVerificationCompleted: true,
		UserID:                    "user-123",
	}
}

// -----------------------------------------------------------------------------
// Memory store
// -----------------------------------------------------------------------------

func (s *StoreSuite) TestMemoryRoundTrip() {
	store := NewMemory()

	loaded, err := store.Load(s.ctx)
	s.Require().NoError(err)
	s.True(loaded.IsEmpty())

	s.Require().NoError(store.Save(s.ctx, midFlowSession()))

	loaded, err = store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(midFlowSession(), loaded)

	s.Require().NoError(store.Clear(s.ctx))
	loaded, err = store.Load(s.ctx)
	s.Require().NoError(err)
	s.True(loaded.IsEmpty())
}

// -----------------------------------------------------------------------------
// File store
// -----------------------------------------------------------------------------

func (s *StoreSuite) TestFileRoundTrip() {
	dir := s.T().TempDir()
	store, err := NewFile(dir)
	s.Require().NoError(err)

	loaded, err := store.Load(s.ctx)
	s.Require().NoError(err)
	s.True(loaded.IsEmpty(), "missing file reads as a fresh start")

	s.Require().NoError(store.Save(s.ctx, midFlowSession()))

	// A second store over the same directory sees the saved record,
	// which is what a process restart looks like.
	reopened, err := NewFile(dir)
	s.Require().NoError(err)
	loaded, err = reopened.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(midFlowSession(), loaded)

	s.Require().NoError(store.Clear(s.ctx))
	loaded, err = store.Load(s.ctx)
	s.Require().NoError(err)
	s.True(loaded.IsEmpty())
}

func (s *StoreSuite) TestFileCorruptRecordReadsAsEmpty() {
	dir := s.T().TempDir()
	store, err := NewFile(dir)
	s.Require().NoError(err)

	s.Require().NoError(os.WriteFile(filepath.Join(dir, sessionFileName), []byte("{not json"), 0o600))

	loaded, err := store.Load(s.ctx)
	s.Require().NoError(err)
	s.True(loaded.IsEmpty(), "unreadable record must not wedge the flow")
}

func (s *StoreSuite) TestFileClearIsIdempotent() {
	dir := s.T().TempDir()
	store, err := NewFile(dir)
	s.Require().NoError(err)

	s.Require().NoError(store.Clear(s.ctx))
	s.Require().NoError(store.Clear(s.ctx))
}

func (s *StoreSuite) TestFileCreatesStateDirectory() {
	dir := filepath.Join(s.T().TempDir(), "nested", "state")
	_, err := NewFile(dir)
	s.Require().NoError(err)

	info, err := os.Stat(dir)
	s.Require().NoError(err)
	s.True(info.IsDir())
}

func (s *StoreSuite) TestFileRequiresDirectory() {
	_, err := NewFile("")
	s.Error(err)
}
