package orchestrator

import "time"

// Phase names one stage of the NIC verification presentation. The phases are
// cosmetic: they pace the progress display while the single real backend
// call runs, they do not correspond to backend processing stages.
type Phase string

const (
	PhaseValidatingUser       Phase = "VALIDATING_USER"
	PhaseCheckingImageQuality Phase = "CHECKING_IMAGE_QUALITY"
	PhaseSecuringData         Phase = "SECURING_DATA"
	PhaseReadingIDNumber      Phase = "READING_ID_NUMBER"
	PhaseExtractingPhoto      Phase = "EXTRACTING_PHOTO"
	PhaseVerifyingDetails     Phase = "VERIFYING_DETAILS"
	PhaseComparingFaces       Phase = "COMPARING_FACES"
	PhaseCompleting           Phase = "COMPLETING"
)

// PhaseSpec is one entry of the presentation plan.
type PhaseSpec struct {
	Phase   Phase
	Message string
	Percent int
	Delay   time.Duration
}

// PhasePlan is the ordered presentation walk. Percentages must be strictly
// increasing and end at 100.
type PhasePlan []PhaseSpec

// DefaultPlan returns the standard walk: roughly twelve seconds of paced
// progress, tuned so the display neither races ahead of a fast backend nor
// stalls visibly on a slow one.
func DefaultPlan() PhasePlan {
	return PhasePlan{
		{PhaseValidatingUser, "Validating user information...", 12, 1200 * time.Millisecond},
		{PhaseCheckingImageQuality, "Checking image quality...", 25, 1800 * time.Millisecond},
		{PhaseSecuringData, "Securing your data...", 38, 1000 * time.Millisecond},
		{PhaseReadingIDNumber, "Reading ID number...", 55, 2200 * time.Millisecond},
		{PhaseExtractingPhoto, "Extracting photo from NIC...", 70, 2000 * time.Millisecond},
		{PhaseVerifyingDetails, "Verifying your details...", 82, 1400 * time.Millisecond},
		{PhaseComparingFaces, "Comparing faces...", 94, 1800 * time.Millisecond},
		{PhaseCompleting, "Completing verification...", 100, 1000 * time.Millisecond},
	}
}

// validate rejects plans whose progress would run backwards or stop short.
func (p PhasePlan) validate() error {
	if len(p) == 0 {
		return errEmptyPlan
	}
	last := 0
	for _, spec := range p {
		if spec.Percent <= last || spec.Percent > 100 {
			return errNonMonotonePlan
		}
		last = spec.Percent
	}
	if last != 100 {
		return errPlanStopsShort
	}
	return nil
}
