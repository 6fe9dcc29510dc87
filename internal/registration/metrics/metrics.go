package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
// Tracks step completions, verification outcomes, and gateway latency.
type Metrics struct {
	StepCompleted          *prometheus.CounterVec
	VerificationFailed     *prometheus.CounterVec
	FlowCompleted          prometheus.Counter
	SessionReset           prometheus.Counter
	GatewayCallDuration    *prometheus.HistogramVec
	NICVerifyTotalDuration prometheus.Histogram
}

// New creates a new Metrics instance with all registration module metrics
// registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the registration module metrics on the given registerer.
// Tests pass a fresh registry so repeated construction never collides.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gemnet_registration_steps_completed_total",
			Help: "Total number of onboarding steps completed, by step",
		}, []string{"step"}),
		VerificationFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gemnet_registration_verification_failures_total",
			Help: "Total number of verification failures, by failure code",
		}, []string{"code"}),
		FlowCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gemnet_registration_flows_completed_total",
			Help: "Total number of onboarding flows completed end to end",
		}),
		SessionReset: factory.NewCounter(prometheus.CounterOpts{
			Name: "gemnet_registration_sessions_reset_total",
			Help: "Total number of onboarding sessions reset",
		}),
		GatewayCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gemnet_registration_gateway_call_duration_seconds",
			Help:    "Duration of verification gateway calls, by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		NICVerifyTotalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gemnet_registration_nic_verify_total_duration_seconds",
			Help:    "End-to-end duration of the NIC verification sequence including presentation phases",
			Buckets: []float64{1, 2.5, 5, 10, 15, 20, 30, 45},
		}),
	}
}

// IncrementStepCompleted records a completed onboarding step.
func (m *Metrics) IncrementStepCompleted(step string) {
	m.StepCompleted.WithLabelValues(step).Inc()
}

// IncrementVerificationFailed records a verification failure by code.
func (m *Metrics) IncrementVerificationFailed(code string) {
	m.VerificationFailed.WithLabelValues(code).Inc()
}

// IncrementFlowCompleted records an onboarding flow finishing all steps.
func (m *Metrics) IncrementFlowCompleted() {
	m.FlowCompleted.Inc()
}

// IncrementSessionReset records a session reset.
func (m *Metrics) IncrementSessionReset() {
	m.SessionReset.Inc()
}

// ObserveGatewayCall records the duration of one gateway call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveGatewayCall(operation string, start time.Time) {
	m.GatewayCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveNICVerifyTotal records the duration of a full NIC verification
// sequence from submission to final outcome.
func (m *Metrics) ObserveNICVerifyTotal(start time.Time) {
	m.NICVerifyTotalDuration.Observe(time.Since(start).Seconds())
}
