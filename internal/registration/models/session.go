// Package models holds the registration flow's domain types: the session
// aggregate, step enum, request payloads, and the NIC failure classification.
package models

// Step identifies a registration step. Values match the persisted record
// layout, which numbers steps 1-4.
type Step int

const (
	StepPersonalInfo     Step = 1
	StepFaceVerification Step = 2
	StepNicVerification  Step = 3
	StepComplete         Step = 4
)

func (s Step) String() string {
	switch s {
	case StepPersonalInfo:
		return "PERSONAL_INFO"
	case StepFaceVerification:
		return "FACE_VERIFICATION"
	case StepNicVerification:
		return "NIC_VERIFICATION"
	case StepComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Session is the registration aggregate: one per registering user. The
// completion booleans are one-way latches; only an explicit reset reverts
// them. The controller is the sole mutator; stores hold a passive mirror.
//
// JSON tags define the persisted record layout. Changing them breaks every
// in-flight registration, so they are part of the contract.
type Session struct {
	CurrentStep               Step   `json:"currentStep"`
	PersonalInfoCompleted     bool   `json:"personalInfoCompleted"`
	FaceVerificationCompleted bool   `json:"faceVerificationCompleted"`
	NicVerificationCompleted  bool   `json:"nicVerificationCompleted"`
	UserID                    string `json:"userId,omitempty"`
}

// EmptySession returns the initial state: nothing completed, first step
// current, no user id.
func EmptySession() Session {
	return Session{CurrentStep: StepPersonalInfo}
}

// IsEmpty reports whether the session is indistinguishable from a fresh one.
func (s Session) IsEmpty() bool {
	return s == EmptySession()
}

// StepCompleted reports whether the latch guarding the given step's
// completion is set.
func (s Session) StepCompleted(step Step) bool {
	switch step {
	case StepPersonalInfo:
		return s.PersonalInfoCompleted
	case StepFaceVerification:
		return s.FaceVerificationCompleted
	case StepNicVerification:
		return s.NicVerificationCompleted
	default:
		return false
	}
}

// EarliestIncompleteStep returns the first step whose latch is false, or
// StepComplete when every latch is set. The prerequisite chain also requires
// a user id: without one, face and NIC verification cannot address their
// remote calls, so the flow restarts at personal info.
func (s Session) EarliestIncompleteStep() Step {
	if !s.PersonalInfoCompleted || s.UserID == "" {
		return StepPersonalInfo
	}
	if !s.FaceVerificationCompleted {
		return StepFaceVerification
	}
	if !s.NicVerificationCompleted {
		return StepNicVerification
	}
	return StepComplete
}

// CanAccess reports whether every step logically prior to the requested one
// has its latch set (and a user id exists past step one).
func (s Session) CanAccess(step Step) bool {
	return step <= s.EarliestIncompleteStep()
}
