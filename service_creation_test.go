package covidpipe

import (
	"context"
	"testing"
	"time"

	"github.com/snpseq/covidpipe/lims"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func creationClock() func() time.Time {
	// 2020-11-02 12:30:15 UTC is 13:30:15 in Stockholm
	at := time.Date(2020, 11, 2, 12, 30, 15, 0, time.UTC)
	return func() time.Time { return at }
}

func creationStep(rig *LimsTestRig, rows []ValidatedSampleRow) *lims.Step {
	step := lims.NewStep("step-13")
	rig.Steps[step.ID] = step
	rendered, err := RenderValidatedSampleList(rows)
	if err != nil {
		panic(err)
	}
	rig.StageFile(step.ID, FileSlotValidatedSampleList, rendered)
	return step
}

func TestCreateSamplesBuildsBothPlates(t *testing.T) {
	rig := NewLimsTestRig()
	step := creationStep(rig, []ValidatedSampleRow{
		{SampleID: "5236417647", Position: "A01", Status: RowStatusOK, ServiceRequestID: "sr-1", OrgURI: OrgKarlssonNovak.URI},
		{SampleID: string(ControlRtPCRPos), Position: "B01", Status: RowStatusOK, ServiceRequestID: "sr-ctrl", OrgURI: OrgKarlssonNovak.URI},
	})

	service := NewCreationService(rig, "SARS-CoV-2 rtPCR v1", creationClock())
	containerIDs, err := service.CreateSamples(context.Background(), step, false)
	assert.Nil(t, err)
	assert.Len(t, containerIDs, 2)
	assert.Equal(t, "SARS-CoV-2 rtPCR v1", rig.RoutedWorkflowName)

	require.Len(t, rig.CreatedContainers, 2)
	prext, biobank := rig.CreatedContainers[0], rig.CreatedContainers[1]
	assert.Equal(t, "COVID_201102_PREXT_133015", prext.Name)
	assert.Equal(t, "COVID_201102_BIOBANK_133015", biobank.Name)
	assert.Equal(t, 2, prext.Size())
	assert.Equal(t, 2, biobank.Size())

	well, _ := lims.ParseWellPosition("A01")
	sample, ok := prext.At(well)
	require.True(t, ok)
	assert.Equal(t, "5236417647_201102T133015", sample.Name)
	assert.Equal(t, "No", sample.UDF(UDFControl))
	assert.Equal(t, "sr-1", sample.UDF(UDFKNMServiceRequestID))
	assert.Equal(t, OrgKarlssonNovak.URI, sample.UDF(UDFKNMOrgURI))
	assert.Equal(t, SourceKNM, sample.UDF(UDFSource))
	assert.Equal(t, string(StatusCreated), sample.UDF(UDFStatus))

	biobankCopy, ok := biobank.At(well)
	require.True(t, ok)
	assert.Equal(t, "5236417647_201102T133015_BIOBANK", biobankCopy.Name)

	ctrlWell, _ := lims.ParseWellPosition("B01")
	control, ok := prext.At(ctrlWell)
	require.True(t, ok)
	assert.Equal(t, "RTPCRpos_201102T133015_1", control.Name)
	assert.True(t, control.IsControl)
	assert.Equal(t, "Yes", control.UDF(UDFControl))
}

func TestCreateSamplesDiscardBatch(t *testing.T) {
	rig := NewLimsTestRig()
	step := creationStep(rig, []ValidatedSampleRow{
		{SampleID: "5236417647", Position: "A01", Status: RowStatusOK, ServiceRequestID: "sr-1", OrgURI: OrgKarlssonNovak.URI},
	})

	service := NewCreationService(rig, "SARS-CoV-2 rtPCR v1", creationClock())
	_, err := service.CreateSamples(context.Background(), step, true)
	assert.Nil(t, err)

	well, _ := lims.ParseWellPosition("A01")
	sample, _ := rig.CreatedContainers[0].At(well)
	assert.Equal(t, string(StatusDiscard), sample.UDF(UDFStatus))
}

func TestCreateSamplesRunsAtMostOnce(t *testing.T) {
	rig := NewLimsTestRig()
	step := creationStep(rig, []ValidatedSampleRow{
		{SampleID: "5236417647", Position: "A01", Status: RowStatusOK, ServiceRequestID: "sr-1", OrgURI: OrgKarlssonNovak.URI},
	})

	service := NewCreationService(rig, "SARS-CoV-2 rtPCR v1", creationClock())
	_, err := service.CreateSamples(context.Background(), step, false)
	assert.Nil(t, err)
	assert.NotEmpty(t, step.UDF(StepUDFCreatedContainers))

	_, err = service.CreateSamples(context.Background(), step, false)
	assert.ErrorIs(t, err, ErrContainersAlreadyCreated)
	assert.Len(t, rig.CreatedContainers, 2, "second run must not create anything")
}

func TestCreateSamplesRefusesInadmissibleList(t *testing.T) {
	rig := NewLimsTestRig()
	step := creationStep(rig, []ValidatedSampleRow{
		{SampleID: "5236417647", Position: "A01", Status: RowStatusOK, ServiceRequestID: "sr-1", OrgURI: OrgKarlssonNovak.URI},
		{SampleID: "1234567897", Position: "B01", Status: RowStatusUnregistered, OrgURI: OrgAnonymous.URI},
	})

	service := NewCreationService(rig, "SARS-CoV-2 rtPCR v1", creationClock())
	_, err := service.CreateSamples(context.Background(), step, false)
	assert.ErrorIs(t, err, ErrSampleListNotAdmissible)
	assert.Empty(t, rig.CreatedContainers)
}

func TestCreateSamplesRefusesDuplicateBarcodes(t *testing.T) {
	rig := NewLimsTestRig()
	step := creationStep(rig, []ValidatedSampleRow{
		{SampleID: "5236417647", Position: "A01", Status: RowStatusOK, ServiceRequestID: "sr-1", OrgURI: OrgKarlssonNovak.URI},
		{SampleID: "5236417647", Position: "B01", Status: RowStatusOK, ServiceRequestID: "sr-2", OrgURI: OrgKarlssonNovak.URI},
	})

	service := NewCreationService(rig, "SARS-CoV-2 rtPCR v1", creationClock())
	_, err := service.CreateSamples(context.Background(), step, false)
	assert.ErrorIs(t, err, ErrSampleListNotAdmissible)
}
