package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Identity verification outcomes fall here: they prove the KYC trail.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: repeated verification failures, session resets mid-attempt.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Validation and capture errors are never emitted as events: they resolve
// entirely client-side and must not leave the machine.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    string // registration user id once assigned; may be empty pre-registration
	Action    string
	Step      string // registration step the action relates to, when applicable
	Reason    string // failure code or short explanation
	RequestID string // correlation ID when emitted server-side
	Device    string // browser/OS summary captured at registration time
}

// AuditEvent names the actions the registration flow emits.
type AuditEvent string

const (
	EventUserRegistered   AuditEvent = "user_registered"
	EventStepCompleted    AuditEvent = "step_completed"
	EventAttemptStarted   AuditEvent = "verification_attempt_started"
	EventAttemptFailed    AuditEvent = "verification_attempt_failed"
	EventSessionReset     AuditEvent = "session_reset"
	EventFlowCompleted    AuditEvent = "registration_completed"
	EventAuthTokenIssued  AuditEvent = "auth_token_issued"
	EventGatewayUnhealthy AuditEvent = "gateway_unhealthy"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered: CategoryCompliance,
	EventStepCompleted:  CategoryCompliance,
	EventFlowCompleted:  CategoryCompliance,

	EventAttemptFailed: CategorySecurity,
	EventSessionReset:  CategorySecurity,

	EventAttemptStarted:   CategoryOperations,
	EventAuthTokenIssued:  CategoryOperations,
	EventGatewayUnhealthy: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations decide durability.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher emits audit events for significant registration actions.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
