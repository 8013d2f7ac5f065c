package covidpipe

import (
	"context"
	"testing"
	"time"

	"github.com/snpseq/covidpipe/lims"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBounds() AssayBounds {
	return AssayBounds{
		Lower: decimal.NewFromInt(10),
		Upper: decimal.NewFromInt(50),
	}
}

func TestClassify(t *testing.T) {
	bounds := testBounds()

	assert.Equal(t, DiagnosisPositive, bounds.Classify(decimal.NewFromInt(20)))
	assert.Equal(t, DiagnosisNegative, bounds.Classify(decimal.Zero), "no amplification")
	assert.Equal(t, DiagnosisNegative, bounds.Classify(decimal.NewFromInt(50)))
	assert.Equal(t, DiagnosisNegative, bounds.Classify(decimal.NewFromInt(55)))
	assert.Equal(t, DiagnosisFailed, bounds.Classify(decimal.NewFromInt(40)), "late amplification is unreliable")
}

func TestAnalyzeResultsAcceptedPlate(t *testing.T) {
	positives := []ControlReading{{Name: "RTPCRpos_1", FamCt: decimal.NewFromInt(25)}}
	negatives := []ControlReading{{Name: "RTPCRneg_1", FamCt: decimal.Zero}}
	samples := []WellReading{
		{SampleName: "s1", FamCt: decimal.NewFromInt(20)},
		{SampleName: "s2", FamCt: decimal.Zero},
		{SampleName: "s3", FamCt: decimal.NewFromInt(40)},
	}

	outcome := AnalyzeResults(positives, negatives, samples, testBounds())
	assert.True(t, outcome.PlateAccepted)
	require.Len(t, outcome.Samples, 3)
	assert.Equal(t, DiagnosisPositive, outcome.Samples[0].Diagnosis)
	assert.Equal(t, DiagnosisNegative, outcome.Samples[1].Diagnosis)
	assert.Equal(t, DiagnosisFailed, outcome.Samples[2].Diagnosis)
}

func TestAnalyzeResultsRejectedPlateFailsEverySample(t *testing.T) {
	// the positive control never amplified, the run cannot be trusted
	positives := []ControlReading{{Name: "RTPCRpos_1", FamCt: decimal.Zero}}
	negatives := []ControlReading{{Name: "RTPCRneg_1", FamCt: decimal.Zero}}
	samples := []WellReading{
		{SampleName: "s1", FamCt: decimal.NewFromInt(20)},
		{SampleName: "s2", FamCt: decimal.Zero},
	}

	outcome := AnalyzeResults(positives, negatives, samples, testBounds())
	assert.False(t, outcome.PlateAccepted)
	for _, analyzed := range outcome.Samples {
		assert.Equal(t, DiagnosisFailedEntirePlate, analyzed.Diagnosis)
	}
}

func TestAnalyzeResultsContaminatedNegativeControl(t *testing.T) {
	positives := []ControlReading{{Name: "RTPCRpos_1", FamCt: decimal.NewFromInt(25)}}
	negatives := []ControlReading{{Name: "RTPCRneg_1", FamCt: decimal.NewFromInt(20)}}
	samples := []WellReading{{SampleName: "s1", FamCt: decimal.NewFromInt(20)}}

	outcome := AnalyzeResults(positives, negatives, samples, testBounds())
	assert.False(t, outcome.PlateAccepted)
	assert.Equal(t, DiagnosisFailedEntirePlate, outcome.Samples[0].Diagnosis)
}

func TestApplyReviewerResult(t *testing.T) {
	artifact := lims.NewArtifact("art-1", "s1", lims.WellPosition{})
	artifact.SetUDF(UDFRtPCRResultLatest, string(DiagnosisFailed))

	assert.Nil(t, ApplyReviewerResult(artifact, DiagnosisNegative))
	assert.Equal(t, string(DiagnosisNegative), artifact.UDF(UDFRtPCRResultLatest))
	assert.Equal(t, string(DiagnosisNegative), artifact.UDF(UDFReviewerResult))

	assert.NotNil(t, ApplyReviewerResult(artifact, Diagnosis("maybe")))
}

func TestApplyReviewerResultRefusesPassingAFailedControl(t *testing.T) {
	control := lims.NewArtifact("art-2", "RTPCRpos_1", lims.WellPosition{})
	control.IsControl = true
	control.SetUDF(UDFRtPCRResultLatest, string(DiagnosisFailed))

	err := ApplyReviewerResult(control, DiagnosisPositive)
	assert.ErrorIs(t, err, ErrResultDowngrade)
	assert.Equal(t, string(DiagnosisFailed), control.UDF(UDFRtPCRResultLatest))

	// failing it differently is fine
	assert.Nil(t, ApplyReviewerResult(control, DiagnosisFailedByReview))
}

func analysisStep(instrument string) *lims.Step {
	step := lims.NewStep("step-24")
	step.SetUDF(StepUDFInstrumentUsed, instrument)
	step.Flush()

	posControl := lims.NewArtifact("art-pos", "RTPCRpos_201102T123015_1", lims.WellPosition{Row: 0, Column: 0})
	posControl.IsControl = true
	posControl.ControlType = string(ControlRtPCRPos)
	negControl := lims.NewArtifact("art-neg", "RTPCRneg_201102T123015_2", lims.WellPosition{Row: 1, Column: 0})
	negControl.IsControl = true
	negControl.ControlType = string(ControlRtPCRNeg)

	sample := lims.NewArtifact("art-s1", "5236417647_201102T123015", lims.WellPosition{Row: 2, Column: 0})
	sample.Sample = lims.NewSample("sam-s1", sample.Name)
	sample.SetUDF(UDFStatus, string(StatusAmplified))
	sample.Flush()

	step.Artifacts = []*lims.Artifact{posControl, negControl, sample}
	return step
}

func TestAnalyzeStepEndToEnd(t *testing.T) {
	rig := NewLimsTestRig()
	step := analysisStep("QuantStudio 7")
	rig.Steps[step.ID] = step
	rig.StageFile(step.ID, FileSlotResultFile, buildQuantStudioWorkbook(t, [][]interface{}{
		{1, "A1", "RTPCRpos_201102T123015_1", "FAM", "25"},
		{1, "A1", "RTPCRpos_201102T123015_1", "VIC", "26"},
		{13, "B1", "RTPCRneg_201102T123015_2", "FAM", "Undetermined"},
		{13, "B1", "RTPCRneg_201102T123015_2", "VIC", "27"},
		{25, "C1", "5236417647_201102T123015", "FAM", "20"},
		{25, "C1", "5236417647_201102T123015", "VIC", "27.3"},
	}))

	service := NewAnalysisService(rig, testBounds(), time.Now)
	outcome, err := service.AnalyzeStep(context.Background(), step)
	assert.Nil(t, err)
	assert.True(t, outcome.PlateAccepted)

	sample := step.Artifacts[2]
	assert.Equal(t, string(DiagnosisPositive), sample.UDF(UDFRtPCRResultLatest))
	assert.Equal(t, "20", sample.UDF(UDFFamCtLatest))
	assert.Equal(t, "27.3", sample.UDF(UDFVicCtLatest))
	assert.Equal(t, string(StatusAnalyzed), sample.UDF(UDFStatus))
	assert.Equal(t, "true", step.UDF(StepUDFRtPCRPassed))
}

func TestAnalyzeStepRejectedPlate(t *testing.T) {
	rig := NewLimsTestRig()
	step := analysisStep("7500")
	rig.Steps[step.ID] = step
	rig.StageFile(step.ID, FileSlotResultFile, build7500Workbook(t, [][]interface{}{
		{1, "RTPCRpos_201102T123015_1", "RTPCRpos_201102T123015_1", "UNKNOWN", "FAM", "Undetermined"},
		{13, "RTPCRneg_201102T123015_2", "RTPCRneg_201102T123015_2", "UNKNOWN", "FAM", "Undetermined"},
		{25, "5236417647_201102T123015", "5236417647_201102T123015", "UNKNOWN", "FAM", "20"},
	}))

	service := NewAnalysisService(rig, testBounds(), time.Now)
	outcome, err := service.AnalyzeStep(context.Background(), step)
	assert.Nil(t, err)
	assert.False(t, outcome.PlateAccepted)

	sample := step.Artifacts[2]
	assert.Equal(t, string(DiagnosisFailedEntirePlate), sample.UDF(UDFRtPCRResultLatest))
	assert.Equal(t, "false", step.UDF(StepUDFRtPCRPassed))
}

func TestAnalyzeStepMissingReading(t *testing.T) {
	rig := NewLimsTestRig()
	step := analysisStep("7500")
	rig.Steps[step.ID] = step
	rig.StageFile(step.ID, FileSlotResultFile, build7500Workbook(t, [][]interface{}{
		{1, "somebody-else", "somebody-else", "UNKNOWN", "FAM", "20"},
	}))

	service := NewAnalysisService(rig, testBounds(), time.Now)
	_, err := service.AnalyzeStep(context.Background(), step)
	assert.NotNil(t, err)
	assert.IsType(t, &ParseError{}, err)
}
