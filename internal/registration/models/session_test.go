package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

// SessionSuite covers the aggregate's latch and step-derivation rules that
// the controller's guard depends on.
type SessionSuite struct {
	suite.Suite
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) TestEmptySession() {
	sess := EmptySession()
	s.Equal(StepPersonalInfo, sess.CurrentStep)
	s.False(sess.PersonalInfoCompleted)
	s.False(sess.FaceVerificationCompleted)
	s.False(sess.NicVerificationCompleted)
	s.Empty(sess.UserID)
	s.True(sess.IsEmpty())
}

func (s *SessionSuite) TestEarliestIncompleteStep() {
	s.Run("fresh session starts at personal info", func() {
		s.Equal(StepPersonalInfo, EmptySession().EarliestIncompleteStep())
	})

	s.Run("personal info latch without user id still restarts at step one", func() {
		sess := Session{CurrentStep: StepFaceVerification, PersonalInfoCompleted: true}
		s.Equal(StepPersonalInfo, sess.EarliestIncompleteStep())
	})

	s.Run("personal info complete advances to face verification", func() {
		sess := Session{
			CurrentStep:           StepFaceVerification,
			PersonalInfoCompleted: true,
			UserID:                "user-123",
		}
		s.Equal(StepFaceVerification, sess.EarliestIncompleteStep())
	})

	s.Run("face complete advances to nic verification", func() {
		sess := Session{
			CurrentStep:               StepNicVerification,
			PersonalInfoCompleted:     true,
			FaceVerificationCompleted: true,
			UserID:                    "user-123",
		}
		s.Equal(StepNicVerification, sess.EarliestIncompleteStep())
	})

	s.Run("all latches set means complete", func() {
		sess := Session{
			CurrentStep:               StepComplete,
			PersonalInfoCompleted:     true,
			FaceVerificationCompleted: true,
			NicVerificationCompleted:  true,
			UserID:                    "user-123",
		}
		s.Equal(StepComplete, sess.EarliestIncompleteStep())
	})
}

func (s *SessionSuite) TestCanAccess() {
	s.Run("fresh session can only access step one", func() {
		sess := EmptySession()
		s.True(sess.CanAccess(StepPersonalInfo))
		s.False(sess.CanAccess(StepFaceVerification))
		s.False(sess.CanAccess(StepNicVerification))
	})

	s.Run("earlier completed steps stay accessible", func() {
		sess := Session{
			CurrentStep:           StepFaceVerification,
			PersonalInfoCompleted: true,
			UserID:                "user-123",
		}
		s.True(sess.CanAccess(StepPersonalInfo))
		s.True(sess.CanAccess(StepFaceVerification))
		s.False(sess.CanAccess(StepNicVerification))
	})
}

// TestRecordLayout pins the persisted JSON shape. The stored record is the
// contract with every in-flight registration.
func (s *SessionSuite) TestRecordLayout() {
	sess := Session{
		CurrentStep:           StepFaceVerification,
		PersonalInfoCompleted: true,
		UserID:                "user-123",
	}

	raw, err := json.Marshal(sess)
	s.Require().NoError(err)
	s.JSONEq(`{
		"currentStep": 2,
		"personalInfoCompleted": true,
		"faceVerificationCompleted": false,
		"nicVerificationCompleted": false,
		"userId": "user-123"
	}`, string(raw))

	var decoded Session
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	s.Equal(sess, decoded)
}

func (s *SessionSuite) TestStepString() {
	s.Equal("PERSONAL_INFO", StepPersonalInfo.String())
	s.Equal("FACE_VERIFICATION", StepFaceVerification.String())
	s.Equal("NIC_VERIFICATION", StepNicVerification.String())
	s.Equal("COMPLETE", StepComplete.String())
	s.Equal("UNKNOWN", Step(99).String())
}
