package covidpipe

import (
	"context"
	"fmt"
	"time"

	"github.com/snpseq/covidpipe/lims"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AssayBounds are the per assay Ct limits. The positivity cutoff sits halfway
// between them: amplification earlier than the cutoff is a call, later
// amplification is unreliable and fails the sample.
type AssayBounds struct {
	Lower decimal.Decimal
	Upper decimal.Decimal
}

func (b AssayBounds) positivityCutoff() decimal.Decimal {
	return b.Lower.Add(b.Upper).Div(decimal.NewFromInt(2))
}

// Classify calls one sample from its FAM Ct. A zero Ct means the target
// never amplified.
func (b AssayBounds) Classify(famCt decimal.Decimal) Diagnosis {
	if famCt.IsZero() || famCt.GreaterThanOrEqual(b.Upper) {
		return DiagnosisNegative
	}
	if famCt.LessThan(b.positivityCutoff()) {
		return DiagnosisPositive
	}
	return DiagnosisFailed
}

// ControlReading is one plate control measurement.
type ControlReading struct {
	Name  string
	FamCt decimal.Decimal
}

// AnalyzedSample pairs a well reading with its diagnosis.
type AnalyzedSample struct {
	Reading   WellReading
	Diagnosis Diagnosis
}

// AnalysisOutcome is the result of analyzing one plate.
type AnalysisOutcome struct {
	Samples       []AnalyzedSample
	PlateAccepted bool
}

// AnalyzeResults validates the plate controls and classifies every sample.
// An unaccepted plate marks every sample failed-entire-plate; no per sample
// call survives a bad control run.
func AnalyzeResults(positiveControls, negativeControls []ControlReading, samples []WellReading, bounds AssayBounds) AnalysisOutcome {
	positiveOK := false
	for _, control := range positiveControls {
		if bounds.Classify(control.FamCt) == DiagnosisPositive {
			positiveOK = true
			break
		}
	}
	negativeOK := false
	for _, control := range negativeControls {
		if bounds.Classify(control.FamCt) == DiagnosisNegative {
			negativeOK = true
			break
		}
	}
	accepted := positiveOK && negativeOK

	analyzed := make([]AnalyzedSample, len(samples))
	for i, sample := range samples {
		diagnosis := DiagnosisFailedEntirePlate
		if accepted {
			diagnosis = bounds.Classify(sample.FamCt)
		}
		analyzed[i] = AnalyzedSample{Reading: sample, Diagnosis: diagnosis}
	}
	return AnalysisOutcome{Samples: analyzed, PlateAccepted: accepted}
}

// ApplyReviewerResult records a trained operator's override on one analyte.
// A control that already failed cannot be passed by review; resetting a
// failed control is a manual LIMS operation outside this pipeline.
func ApplyReviewerResult(artifact *lims.Artifact, reviewerResult Diagnosis) error {
	switch reviewerResult {
	case DiagnosisPositive, DiagnosisNegative, DiagnosisFailedByReview, DiagnosisFailedEntirePlate:
	default:
		return fmt.Errorf("unknown reviewer result %q", reviewerResult)
	}
	current := Diagnosis(artifact.UDF(UDFRtPCRResultLatest))
	if artifact.IsControl &&
		current.ExternalResult() == DiagnosisFailed &&
		reviewerResult.ExternalResult() != DiagnosisFailed {
		return fmt.Errorf("%w: control %s", ErrResultDowngrade, artifact.Name)
	}
	artifact.SetUDF(UDFReviewerResult, string(reviewerResult))
	artifact.SetUDF(UDFRtPCRResultLatest, string(reviewerResult))
	return nil
}

// AnalysisService runs the rtPCR analysis on one step: parses the uploaded
// instrument file, validates the controls and persists per analyte
// diagnoses.
type AnalysisService interface {
	AnalyzeStep(ctx context.Context, step *lims.Step) (AnalysisOutcome, error)
}

type analysisService struct {
	limsClient lims.Client
	bounds     AssayBounds
	clock      func() time.Time
}

func NewAnalysisService(limsClient lims.Client, bounds AssayBounds, clock func() time.Time) AnalysisService {
	if clock == nil {
		clock = time.Now
	}
	return &analysisService{
		limsClient: limsClient,
		bounds:     bounds,
		clock:      clock,
	}
}

// FileSlotResultFile is the step attachment holding the instrument export.
const FileSlotResultFile = "Result file"

func (s *analysisService) AnalyzeStep(ctx context.Context, step *lims.Step) (AnalysisOutcome, error) {
	dialect, err := DialectForInstrument(step.UDF(StepUDFInstrumentUsed))
	if err != nil {
		return AnalysisOutcome{}, err
	}
	content, err := s.limsClient.DownloadFile(ctx, step.ID, FileSlotResultFile)
	if err != nil {
		return AnalysisOutcome{}, err
	}
	readings, err := ParseResultFile(dialect, content)
	if err != nil {
		return AnalysisOutcome{}, err
	}

	readingsByName := make(map[string]WellReading, len(readings))
	for _, reading := range readings {
		readingsByName[reading.SampleName] = reading
	}

	var positiveControls, negativeControls []ControlReading
	var sampleArtifacts []*lims.Artifact
	var sampleReadings []WellReading
	for _, artifact := range step.Artifacts {
		reading, found := readingsByName[artifact.Name]
		if !found {
			return AnalysisOutcome{}, &ParseError{
				Well:   artifact.Well.AlphaNum(),
				Reason: fmt.Sprintf("no reading for %s", artifact.Name),
			}
		}
		if artifact.IsControl {
			control := ControlReading{Name: artifact.Name, FamCt: reading.FamCt}
			if isPositiveControl(Control(artifact.ControlType)) {
				positiveControls = append(positiveControls, control)
			} else {
				negativeControls = append(negativeControls, control)
			}
			artifact.SetUDF(UDFFamCtLatest, reading.FamCt.String())
			continue
		}
		sampleArtifacts = append(sampleArtifacts, artifact)
		sampleReadings = append(sampleReadings, reading)
	}

	outcome := AnalyzeResults(positiveControls, negativeControls, sampleReadings, s.bounds)

	for i, analyzed := range outcome.Samples {
		artifact := sampleArtifacts[i]
		artifact.SetUDF(UDFFamCtLatest, analyzed.Reading.FamCt.String())
		if analyzed.Reading.HasVic {
			artifact.SetUDF(UDFVicCtLatest, analyzed.Reading.VicCt.String())
		}
		artifact.SetUDF(UDFRtPCRResultLatest, string(analyzed.Diagnosis))
		if err := TransitionStatus(artifact, StatusAnalyzed); err != nil {
			return AnalysisOutcome{}, err
		}
	}

	if outcome.PlateAccepted {
		step.SetUDF(StepUDFRtPCRPassed, "true")
	} else {
		step.SetUDF(StepUDFRtPCRPassed, "false")
		log.Warn().Str("stepId", step.ID).Msg("plate controls failed, every sample marked failed-entire-plate")
	}

	if err := s.limsClient.CommitArtifacts(ctx, step.Artifacts); err != nil {
		return AnalysisOutcome{}, err
	}
	if err := s.limsClient.CommitStep(ctx, step); err != nil {
		return AnalysisOutcome{}, err
	}

	log.Debug().
		Str("stepId", step.ID).
		Int("samples", len(outcome.Samples)).
		Bool("plateAccepted", outcome.PlateAccepted).
		Msg("rtPCR analysis committed")
	return outcome, nil
}

func isPositiveControl(control Control) bool {
	switch control {
	case ControlMGIPos, ControlPosPlasmid, ControlPosVirus, ControlRtPCRPos:
		return true
	default:
		return false
	}
}
