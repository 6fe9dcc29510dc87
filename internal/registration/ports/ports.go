// Package ports defines shared interfaces for the registration module.
// Interfaces are placed here when consumed by multiple services to avoid duplication.
package ports

import (
	"context"
	"log/slog"

	"gemnet/internal/capture"
	"gemnet/internal/registration/models"
	"gemnet/pkg/attrs"
	"gemnet/pkg/platform/audit"
	"gemnet/pkg/requestcontext"
)

// AuditPublisher emits audit events for compliance-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ProgressStore persists the onboarding session record. Implementations must
// survive process restarts: a reload mid-flow resumes from the stored record.
type ProgressStore interface {
	// Load returns the stored session, or an empty session when none exists.
	Load(ctx context.Context) (models.Session, error)

	// Save replaces the stored session.
	Save(ctx context.Context, session models.Session) error

	// Clear removes the stored session entirely.
	Clear(ctx context.Context) error
}

// Gateway is the verification backend. All calls are synchronous; slow
// verification is the caller's problem to present, not the gateway's.
type Gateway interface {
	// Register creates the account from personal details and returns the
	// backend user ID the later verification steps are keyed by.
	Register(ctx context.Context, info models.PersonalInfo) (string, error)

	// VerifyFace submits the live face capture for the registered user.
	VerifyFace(ctx context.Context, userID string, image capture.Image) error

	// VerifyNIC submits the NIC document photo. A non-nil NICFailure with a
	// nil error means the gateway answered and rejected the content; a
	// non-nil error means the call itself did not complete.
	VerifyNIC(ctx context.Context, userID string, image capture.Image) (*models.NICFailure, error)

	// Health reports whether the gateway is reachable.
	Health(ctx context.Context) error
}

// LogAudit is a shared helper for logging audit events across registration services.
// It logs to both the structured logger and the audit publisher if available.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, fields ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		event.RequestID = requestID
	}
	if device := requestcontext.Device(ctx); device != "" && event.Device == "" {
		event.Device = device
	}
	if event.Step == "" {
		event.Step = attrs.ExtractString(fields, "step")
	}
	if event.Reason == "" {
		event.Reason = attrs.ExtractString(fields, "reason")
	}

	args := append(fields, "event", event.Action, "log_type", "audit")
	if event.UserID != "" {
		args = append(args, "user_id", event.UserID)
	}

	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
