// Package orchestrator runs the NIC verification step: one real backend call
// wrapped in a paced, multi-phase progress presentation. Attempts are
// ephemeral; a retry is always a fresh attempt from a blank progress bar.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gemnet/internal/capture"
	"gemnet/internal/registration/metrics"
	"gemnet/internal/registration/models"
	"gemnet/internal/registration/ports"
	dErrors "gemnet/pkg/domain-errors"
)

// DefaultAcknowledgeDelay is how long a successful outcome stays on screen
// before the acknowledgment event tells the caller to move on.
const DefaultAcknowledgeDelay = 3 * time.Second

var (
	errEmptyPlan       = errors.New("phase plan is empty")
	errNonMonotonePlan = errors.New("phase plan percentages must be strictly increasing")
	errPlanStopsShort  = errors.New("phase plan must end at 100 percent")
)

// Status is the state of an attempt as reported in progress events.
type Status string

const (
	StatusInProgress   Status = "IN_PROGRESS"
	StatusSuccess      Status = "SUCCESS"
	StatusFailed       Status = "FAILED"
	StatusAcknowledged Status = "ACKNOWLEDGED"
)

// Event is one progress update for a verification attempt.
type Event struct {
	AttemptID uuid.UUID
	Phase     Phase
	Message   string
	Percent   int
	Status    Status
	Failure   *models.NICFailure // set when Status is StatusFailed
}

// SessionController is the slice of the session controller the orchestrator
// needs: claiming an attempt, resolving it, and addressing the backend call.
type SessionController interface {
	BeginNICAttempt(ctx context.Context) (uint64, func(), error)
	FinishNICAttempt(ctx context.Context, epoch uint64, failure *models.NICFailure) error
	UserID() string
}

// Orchestrator drives NIC verification attempts.
type Orchestrator struct {
	controller       SessionController
	gateway          ports.Gateway
	logger           *slog.Logger
	metrics          *metrics.Metrics
	tracer           trace.Tracer
	plan             PhasePlan
	acknowledgeDelay time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithPlan overrides the phase plan. Tests use compressed plans so a full
// walk takes milliseconds.
func WithPlan(plan PhasePlan) Option {
	return func(o *Orchestrator) {
		o.plan = plan
	}
}

// WithAcknowledgeDelay overrides the post-success acknowledgment delay.
func WithAcknowledgeDelay(delay time.Duration) Option {
	return func(o *Orchestrator) {
		if delay >= 0 {
			o.acknowledgeDelay = delay
		}
	}
}

// New constructs an Orchestrator. The controller and gateway are required.
func New(controller SessionController, gateway ports.Gateway, opts ...Option) (*Orchestrator, error) {
	if controller == nil {
		return nil, fmt.Errorf("session controller is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("verification gateway is required")
	}
	o := &Orchestrator{
		controller:       controller,
		gateway:          gateway,
		logger:           slog.Default(),
		tracer:           otel.Tracer("gemnet/registration"),
		plan:             DefaultPlan(),
		acknowledgeDelay: DefaultAcknowledgeDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := o.plan.validate(); err != nil {
		return nil, fmt.Errorf("invalid phase plan: %w", err)
	}
	return o, nil
}

// Verify starts a verification attempt and returns its event stream. The
// prerequisites are checked up front; a refusal comes back as an error and
// no attempt starts. The channel closes when the attempt fully resolves.
func (o *Orchestrator) Verify(ctx context.Context, image capture.Image) (<-chan Event, error) {
	epoch, release, err := o.controller.BeginNICAttempt(ctx)
	if err != nil {
		return nil, err
	}

	attemptID := uuid.New()
	userID := o.controller.UserID()
	events := make(chan Event, len(o.plan)+2)

	go func() {
		defer close(events)
		defer release()
		o.run(ctx, attemptID, userID, epoch, image, events)
	}()

	return events, nil
}

// run walks the phase plan and issues the real call concurrently, then
// resolves the attempt once both are done.
func (o *Orchestrator) run(ctx context.Context, attemptID uuid.UUID, userID string, epoch uint64, image capture.Image, events chan<- Event) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Verify")
	defer span.End()

	start := time.Now()

	var failure *models.NICFailure
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return o.walkPhases(gctx, attemptID, events)
	})
	g.Go(func() error {
		rejected, err := o.gateway.VerifyNIC(gctx, userID, image)
		if o.metrics != nil {
			o.metrics.ObserveGatewayCall("verify_nic", start)
		}
		if err != nil {
			o.logger.WarnContext(gctx, "verification call did not complete", "user_id", userID, "error", err)
			transport := models.TransportFailure()
			failure = &transport
			return nil
		}
		failure = rejected
		return nil
	})

	if err := g.Wait(); err != nil {
		// Cancellation mid-walk: resolve as a transport-shaped failure so
		// the controller releases the attempt cleanly.
		transport := models.TransportFailure()
		failure = &transport
	}

	if o.metrics != nil {
		o.metrics.ObserveNICVerifyTotal(start)
	}

	if err := o.controller.FinishNICAttempt(ctx, epoch, failure); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			// The session was reset mid-attempt. The resolution is dropped
			// without a terminal event; nobody is watching this attempt
			// anymore.
			return
		}
		o.logger.WarnContext(ctx, "failed to resolve verification attempt", "error", err)
	}

	last := o.plan[len(o.plan)-1]
	if failure != nil {
		events <- Event{
			AttemptID: attemptID,
			Phase:     last.Phase,
			Message:   failure.Message,
			Percent:   last.Percent,
			Status:    StatusFailed,
			Failure:   failure,
		}
		return
	}

	events <- Event{
		AttemptID: attemptID,
		Phase:     last.Phase,
		Message:   "Verification complete",
		Percent:   100,
		Status:    StatusSuccess,
	}

	select {
	case <-time.After(o.acknowledgeDelay):
	case <-ctx.Done():
	}
	events <- Event{
		AttemptID: attemptID,
		Phase:     last.Phase,
		Message:   "Registration complete",
		Percent:   100,
		Status:    StatusAcknowledged,
	}
}

// walkPhases emits one in-progress event per phase, pacing them by the
// plan's delays.
func (o *Orchestrator) walkPhases(ctx context.Context, attemptID uuid.UUID, events chan<- Event) error {
	for _, spec := range o.plan {
		select {
		case events <- Event{
			AttemptID: attemptID,
			Phase:     spec.Phase,
			Message:   spec.Message,
			Percent:   spec.Percent,
			Status:    StatusInProgress,
		}:
		case <-ctx.Done():
			return ctx.Err()
		}

		timer := time.NewTimer(spec.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return nil
}
