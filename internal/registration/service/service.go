// Package service implements the verification session controller: the sole
// mutator of the onboarding session. It validates input before any network
// call, gates step access, and guards against stale resolutions after a
// reset.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gemnet/internal/capture"
	"gemnet/internal/registration/metrics"
	"gemnet/internal/registration/models"
	"gemnet/internal/registration/ports"
	dErrors "gemnet/pkg/domain-errors"
	"gemnet/pkg/platform/audit"
)

// DefaultSettleWindow is the grace period after construction during which
// the guard answers Pending instead of redirecting. A view that mounts
// while hydration is still in flight must never flicker a redirect.
const DefaultSettleWindow = 1200 * time.Millisecond

// Controller owns the onboarding session. All mutations go through it;
// stores and gateways never change the session on their own.
type Controller struct {
	store          ports.ProgressStore
	gateway        ports.Gateway
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher ports.AuditPublisher
	tracer         trace.Tracer
	clock          func() time.Time
	settleWindow   time.Duration

	mu             sync.Mutex
	session        models.Session
	hydrated       bool
	settleDeadline time.Time
	epoch          uint64
	inFlight       bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithAuditPublisher sets the audit publisher.
func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(c *Controller) {
		c.auditPublisher = publisher
	}
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSettleWindow overrides the guard's grace period.
func WithSettleWindow(window time.Duration) Option {
	return func(c *Controller) {
		if window >= 0 {
			c.settleWindow = window
		}
	}
}

// New constructs a Controller. The store and gateway are required.
func New(store ports.ProgressStore, gateway ports.Gateway, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("progress store is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("verification gateway is required")
	}
	c := &Controller{
		store:        store,
		gateway:      gateway,
		logger:       slog.Default(),
		tracer:       otel.Tracer("gemnet/registration"),
		clock:        time.Now,
		settleWindow: DefaultSettleWindow,
		session:      models.EmptySession(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.settleDeadline = c.clock().Add(c.settleWindow)
	return c, nil
}

// Hydrate loads the persisted session. It runs at most once; a load failure
// still settles the controller on the empty default so the flow starts
// fresh instead of wedging.
func (c *Controller) Hydrate(ctx context.Context) {
	ctx, span := c.tracer.Start(ctx, "controller.Hydrate")
	defer span.End()

	c.mu.Lock()
	if c.hydrated {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	session, err := c.store.Load(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "session hydration failed, starting fresh", "error", err)
		session = models.EmptySession()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hydrated {
		return
	}
	c.session = session
	c.hydrated = true
}

// Session returns a copy of the current session.
func (c *Controller) Session() models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Epoch returns the current session epoch. A resolution computed under an
// older epoch must not mutate anything.
func (c *Controller) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// GuardStepAccess decides whether a step is reachable right now. Until the
// controller has hydrated and the settle window has passed, refusals come
// back as Pending rather than Redirect; an allowed step is always answered
// immediately. The decision is pure with respect to the session: asking
// twice against an unchanged session yields the same answer.
func (c *Controller) GuardStepAccess(ctx context.Context, step models.Step) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session.CanAccess(step) {
		return Decision{Kind: DecisionAllowed}
	}

	if !c.hydrated || c.clock().Before(c.settleDeadline) {
		return Decision{Kind: DecisionPending}
	}

	target := c.session.EarliestIncompleteStep()
	c.logger.DebugContext(ctx, "step access refused",
		"requested", step.String(), "redirect", target.String())
	return Decision{Kind: DecisionRedirect, Target: target}
}

// SubmitPersonalInfo validates the details locally, registers the account
// remotely, and on success latches step one and advances to face
// verification. Validation failures never reach the network, the audit
// trail, or the session.
func (c *Controller) SubmitPersonalInfo(ctx context.Context, info models.PersonalInfo) (string, error) {
	ctx, span := c.tracer.Start(ctx, "controller.SubmitPersonalInfo")
	defer span.End()

	if err := info.Validate(); err != nil {
		return "", err
	}

	// A completed step never re-opens: re-registering would swap the user
	// id under latches earned by the previous account and roll the current
	// step backwards. Only an explicit reset starts over.
	c.mu.Lock()
	alreadyDone := c.session.PersonalInfoCompleted
	c.mu.Unlock()
	if alreadyDone {
		return "", dErrors.New(dErrors.CodeConflict, "personal information already submitted; reset the session to start over")
	}

	epoch, err := c.beginSubmit()
	if err != nil {
		return "", err
	}
	defer c.endSubmit()

	start := c.clock()
	userID, err := c.gateway.Register(ctx, info)
	if c.metrics != nil {
		c.metrics.ObserveGatewayCall("register", start)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "registration rejected", "error", err)
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return "", dErrors.New(dErrors.CodeConflict, "session was reset during submission")
	}

	c.session.UserID = userID
	c.session.PersonalInfoCompleted = true
	c.session.CurrentStep = models.StepFaceVerification
	c.persistLocked(ctx)

	c.emitAudit(ctx, audit.Event{
		Action: string(audit.EventUserRegistered),
		UserID: userID,
		Step:   models.StepPersonalInfo.String(),
	})
	c.emitAudit(ctx, audit.Event{
		Action: string(audit.EventStepCompleted),
		UserID: userID,
		Step:   models.StepPersonalInfo.String(),
	})
	if c.metrics != nil {
		c.metrics.IncrementStepCompleted(models.StepPersonalInfo.String())
	}
	return userID, nil
}

// SubmitFaceCapture uploads the live face capture. It requires the
// personal-info latch and a user ID; without them the submission is refused
// locally as a setup problem and no network call is made.
func (c *Controller) SubmitFaceCapture(ctx context.Context, image capture.Image) error {
	ctx, span := c.tracer.Start(ctx, "controller.SubmitFaceCapture")
	defer span.End()

	c.mu.Lock()
	userID := c.session.UserID
	ready := c.session.PersonalInfoCompleted && userID != ""
	alreadyDone := c.session.FaceVerificationCompleted
	c.mu.Unlock()
	if !ready {
		return dErrors.New(dErrors.CodeSetup, "personal information must be completed first")
	}
	if alreadyDone {
		return dErrors.New(dErrors.CodeConflict, "face verification already completed; reset the session to start over")
	}

	epoch, err := c.beginSubmit()
	if err != nil {
		return err
	}
	defer c.endSubmit()

	start := c.clock()
	err = c.gateway.VerifyFace(ctx, userID, image)
	if c.metrics != nil {
		c.metrics.ObserveGatewayCall("verify_face", start)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "face verification rejected", "user_id", userID, "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return dErrors.New(dErrors.CodeConflict, "session was reset during submission")
	}

	c.session.FaceVerificationCompleted = true
	c.session.CurrentStep = models.StepNicVerification
	c.persistLocked(ctx)

	c.emitAudit(ctx, audit.Event{
		Action: string(audit.EventStepCompleted),
		UserID: userID,
		Step:   models.StepFaceVerification.String(),
	})
	if c.metrics != nil {
		c.metrics.IncrementStepCompleted(models.StepFaceVerification.String())
	}
	return nil
}

// BeginNICAttempt checks the prerequisites for NIC verification and claims
// the single submission slot. The returned epoch must be handed back to
// FinishNICAttempt; the release function frees the slot and must always be
// called when the attempt resolves.
func (c *Controller) BeginNICAttempt(ctx context.Context) (uint64, func(), error) {
	c.mu.Lock()
	userID := c.session.UserID
	ready := c.session.PersonalInfoCompleted && c.session.FaceVerificationCompleted && userID != ""
	c.mu.Unlock()
	if !ready {
		return 0, nil, dErrors.New(dErrors.CodeSetup, "earlier verification steps must be completed first")
	}

	epoch, err := c.beginSubmit()
	if err != nil {
		return 0, nil, err
	}

	c.emitAudit(ctx, audit.Event{
		Action: string(audit.EventAttemptStarted),
		UserID: userID,
		Step:   models.StepNicVerification.String(),
	})
	return epoch, c.endSubmit, nil
}

// UserID returns the registered backend user ID, empty before step one.
func (c *Controller) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.UserID
}

// FinishNICAttempt resolves an attempt begun with BeginNICAttempt. A nil
// failure latches step three, marks the flow complete and clears the store;
// the finished record is terminal. A non-nil failure leaves the session
// untouched. Either way, a resolution carrying a stale epoch mutates
// nothing.
func (c *Controller) FinishNICAttempt(ctx context.Context, epoch uint64, failure *models.NICFailure) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		c.logger.InfoContext(ctx, "dropping stale verification resolution")
		return dErrors.New(dErrors.CodeConflict, "session was reset during verification")
	}

	userID := c.session.UserID

	if failure != nil {
		c.emitAudit(ctx, audit.Event{
			Action: string(audit.EventAttemptFailed),
			UserID: userID,
			Step:   models.StepNicVerification.String(),
			Reason: string(failure.Code),
		})
		if c.metrics != nil {
			c.metrics.IncrementVerificationFailed(string(failure.Code))
		}
		return nil
	}

	c.session.NicVerificationCompleted = true
	c.session.CurrentStep = models.StepComplete

	// The flow is done: the record would only invite accidental resumption,
	// so it is removed rather than persisted in its terminal shape.
	if err := c.store.Clear(ctx); err != nil {
		c.logger.WarnContext(ctx, "failed to clear completed session record", "error", err)
	}

	c.emitAudit(ctx, audit.Event{
		Action: string(audit.EventStepCompleted),
		UserID: userID,
		Step:   models.StepNicVerification.String(),
	})
	c.emitAudit(ctx, audit.Event{
		Action: string(audit.EventFlowCompleted),
		UserID: userID,
	})
	if c.metrics != nil {
		c.metrics.IncrementStepCompleted(models.StepNicVerification.String())
		c.metrics.IncrementFlowCompleted()
	}
	return nil
}

// ResetSession abandons the current enrollment: the store is cleared, the
// epoch advances so in-flight work resolves into nothing, and the empty
// default is returned.
func (c *Controller) ResetSession(ctx context.Context) models.Session {
	ctx, span := c.tracer.Start(ctx, "controller.ResetSession")
	defer span.End()

	c.mu.Lock()
	userID := c.session.UserID
	c.epoch++
	c.session = models.EmptySession()
	c.hydrated = true
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		c.logger.WarnContext(ctx, "failed to clear session record on reset", "error", err)
	}

	c.emitAudit(ctx, audit.Event{
		Action: string(audit.EventSessionReset),
		UserID: userID,
	})
	if c.metrics != nil {
		c.metrics.IncrementSessionReset()
	}
	return models.EmptySession()
}

// beginSubmit claims the single submission slot and returns the epoch the
// submission runs under.
func (c *Controller) beginSubmit() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return 0, dErrors.New(dErrors.CodeConflict, "another submission is already in progress")
	}
	c.inFlight = true
	return c.epoch, nil
}

func (c *Controller) endSubmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
}

// persistLocked saves the session; callers hold c.mu. A save failure is
// logged but does not undo the in-memory progress: the user keeps going and
// only durability suffers.
func (c *Controller) persistLocked(ctx context.Context) {
	if err := c.store.Save(ctx, c.session); err != nil {
		c.logger.WarnContext(ctx, "failed to persist session record", "error", err)
	}
}

func (c *Controller) emitAudit(ctx context.Context, event audit.Event) {
	ports.LogAudit(ctx, c.logger, c.auditPublisher, event)
}
