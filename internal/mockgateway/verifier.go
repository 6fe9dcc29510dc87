package mockgateway

import (
	"sync"

	"gemnet/internal/registration/models"
)

// NICVerifier decides the verdict for a NIC verification. Outcomes are
// scripted per NIC number so every failure code is reachable in development;
// unscripted numbers pass.
type NICVerifier struct {
	mu       sync.RWMutex
	outcomes map[string]models.FailureCode
}

// NewNICVerifier constructs a verifier with no scripted outcomes.
func NewNICVerifier() *NICVerifier {
	return &NICVerifier{outcomes: make(map[string]models.FailureCode)}
}

// Script makes the given NIC number fail with the given code.
func (v *NICVerifier) Script(nicNumber string, code models.FailureCode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.outcomes[nicNumber] = code
}

// ClearScript removes a scripted outcome.
func (v *NICVerifier) ClearScript(nicNumber string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.outcomes, nicNumber)
}

// Verdict returns the failure scripted for the NIC number, or nil for a pass.
func (v *NICVerifier) Verdict(nicNumber string) *models.NICFailure {
	v.mu.RLock()
	code, scripted := v.outcomes[nicNumber]
	v.mu.RUnlock()
	if !scripted {
		return nil
	}
	failure := models.ClassifyNICFailure(code, "", nil)
	return &failure
}
