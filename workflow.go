package covidpipe

import (
	"fmt"

	"github.com/snpseq/covidpipe/lims"
)

// SampleStatus is the lifecycle position of a substance, persisted in the
// status UDF.
type SampleStatus string

const (
	StatusCreated               SampleStatus = "created"
	StatusDiscard               SampleStatus = "discard"
	StatusExtracted             SampleStatus = "extracted"
	StatusAmplified             SampleStatus = "amplified"
	StatusAnalyzed              SampleStatus = "analyzed"
	StatusReported              SampleStatus = "reported"
	StatusDiscardedAndReported  SampleStatus = "discarded_and_reported"
)

// statusRank orders the lifecycle. The discard branch forks off at created
// and only ever moves to discarded_and_reported.
var statusRank = map[SampleStatus]int{
	StatusCreated:              0,
	StatusExtracted:            1,
	StatusAmplified:            2,
	StatusAnalyzed:             3,
	StatusReported:             4,
	StatusDiscard:              1,
	StatusDiscardedAndReported: 4,
}

var legalTransitions = map[SampleStatus][]SampleStatus{
	StatusCreated:   {StatusExtracted, StatusDiscard},
	StatusExtracted: {StatusAmplified},
	StatusAmplified: {StatusAnalyzed},
	StatusAnalyzed:  {StatusReported},
	StatusDiscard:   {StatusDiscardedAndReported},
}

// TransitionStatus advances the substance's lifecycle. Backward or sideways
// moves are refused, a retry that re-applies the current status is a no-op.
func TransitionStatus(artifact *lims.Artifact, to SampleStatus) error {
	from := SampleStatus(artifact.UDF(UDFStatus))
	if from == "" {
		artifact.SetUDF(UDFStatus, string(to))
		return nil
	}
	if from == to {
		return nil
	}
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			artifact.SetUDF(UDFStatus, string(to))
			return nil
		}
	}
	if rankTo, ok := statusRank[to]; ok && rankTo < statusRank[from] {
		return fmt.Errorf("%w: %s -> %s on %s", ErrStatusDowngrade, from, to, artifact.Name)
	}
	return fmt.Errorf("%w: %s -> %s on %s", ErrIllegalStatusTransition, from, to, artifact.Name)
}

// MarkReported finalizes the lifecycle after a successful partner upload.
// reported and discarded_and_reported both require the upload guard to be
// set already.
func MarkReported(artifact *lims.Artifact) error {
	if artifact.UDF(UDFKNMResultUploaded) != "yes" {
		return fmt.Errorf("%w: %s has no upload confirmation", ErrIllegalStatusTransition, artifact.Name)
	}
	if SampleStatus(artifact.UDF(UDFStatus)) == StatusDiscard {
		if Diagnosis(artifact.UDF(UDFRtPCRResultLatest)).ExternalResult() != DiagnosisFailed {
			return fmt.Errorf("%w: discarded %s must report failed", ErrIllegalStatusTransition, artifact.Name)
		}
		return TransitionStatus(artifact, StatusDiscardedAndReported)
	}
	return TransitionStatus(artifact, StatusReported)
}
