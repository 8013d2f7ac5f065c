package covidpipe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/snpseq/covidpipe/lims"
	"github.com/snpseq/covidpipe/utils"

	"github.com/rs/zerolog/log"
)

// CreationService materializes plates and samples from a fully validated
// sample list and commits them to the LIMS.
type CreationService interface {
	CreateSamples(ctx context.Context, step *lims.Step, discard bool) ([]string, error)
}

type creationService struct {
	limsClient   lims.Client
	workflowName string
	clock        func() time.Time
}

func NewCreationService(limsClient lims.Client, workflowName string, clock func() time.Time) CreationService {
	if clock == nil {
		clock = time.Now
	}
	return &creationService{
		limsClient:   limsClient,
		workflowName: workflowName,
		clock:        clock,
	}
}

// CreateSamples builds the PREXT and BIOBANK plates for one batch. Running
// it twice on the same step is refused: the created container IDs recorded
// on the step are the idempotency guard.
func (s *creationService) CreateSamples(ctx context.Context, step *lims.Step, discard bool) ([]string, error) {
	if step.UDF(StepUDFCreatedContainers) != "" {
		return nil, fmt.Errorf("%w: %s", ErrContainersAlreadyCreated, step.UDF(StepUDFCreatedContainers))
	}

	content, err := s.limsClient.DownloadFile(ctx, step.ID, FileSlotValidatedSampleList)
	if err != nil {
		return nil, err
	}
	rows, err := ParseValidatedSampleList(content)
	if err != nil {
		return nil, err
	}
	if err := admissibleForCreation(rows); err != nil {
		return nil, err
	}

	now := s.clock()
	timestamp := utils.InStockholmTime(now).Format("060102T150405")
	prext := lims.NewPlate96(ProductionPlateName(StagePrext, now))
	biobank := lims.NewPlate96(ProductionPlateName(StageBiobank, now))

	status := StatusCreated
	if discard {
		status = StatusDiscard
	}

	controlRunning := 0
	for _, row := range rows {
		well, err := lims.ParseWellPosition(row.Position)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", row.SampleID, err)
		}

		control, isControl := controlForSampleID(row.SampleID)
		var baseName string
		if isControl {
			controlRunning++
			baseName = fmt.Sprintf("%s_%s_%d", control.Abbreviation(), timestamp, controlRunning)
		} else {
			baseName = fmt.Sprintf("%s_%s", row.SampleID, timestamp)
		}

		for _, placement := range []struct {
			plate     *lims.Container
			specifier string
		}{
			{prext, ""},
			{biobank, StageBiobank},
		} {
			name := baseName
			if placement.specifier != "" {
				name = baseName + "_" + placement.specifier
			}
			artifact := lims.NewArtifact("", name, well)
			artifact.IsControl = isControl
			if isControl {
				artifact.ControlType = string(control)
				artifact.SetUDF(UDFControl, "Yes")
			} else {
				artifact.SetUDF(UDFControl, "No")
			}
			artifact.SetUDF(UDFKNMDataAddedAt, utils.InStockholmTime(now).Format("2006-01-02 15:04:05"))
			artifact.SetUDF(UDFKNMOrgURI, row.OrgURI)
			artifact.SetUDF(UDFKNMServiceRequestID, row.ServiceRequestID)
			artifact.SetUDF(UDFSource, SourceKNM)
			artifact.SetUDF(UDFStatus, string(status))
			if err := placement.plate.Set(well, artifact); err != nil {
				return nil, err
			}
		}
	}

	containerIDs, err := s.limsClient.CreateContainers(ctx, []*lims.Container{prext, biobank}, s.workflowName)
	if err != nil {
		return nil, err
	}
	step.SetUDF(StepUDFCreatedContainers, strings.Join(containerIDs, ","))
	if err := s.limsClient.CommitStep(ctx, step); err != nil {
		return nil, err
	}

	log.Info().
		Str("stepId", step.ID).
		Str("prext", prext.Name).
		Str("biobank", biobank.Name).
		Int("samples", prext.Size()).
		Msg("plates created and routed")
	return containerIDs, nil
}

// admissibleForCreation checks that every row is ok and that no barcode
// repeats within the batch. Failures are aggregated into one usage error.
func admissibleForCreation(rows []ValidatedSampleRow) error {
	deferred := &DeferredErrors{}
	seen := map[string]struct{}{}
	for _, row := range rows {
		if row.Status != RowStatusOK {
			deferred.Defer(row.SampleID, fmt.Errorf("row has status %q", row.Status))
		}
		if _, duplicate := seen[row.SampleID]; duplicate {
			deferred.Defer(row.SampleID, ErrDuplicateBarcodeInBatch)
		}
		seen[row.SampleID] = struct{}{}
	}
	if !deferred.Empty() {
		return fmt.Errorf("%w: %v", ErrSampleListNotAdmissible, deferred.Err())
	}
	return nil
}

var controlsBySampleID = map[string]Control{
	string(ControlMGINeg):     ControlMGINeg,
	string(ControlMGIPos):     ControlMGIPos,
	string(ControlNegWater):   ControlNegWater,
	string(ControlPosPlasmid): ControlPosPlasmid,
	string(ControlPosVirus):   ControlPosVirus,
	string(ControlNegVircon):  ControlNegVircon,
	string(ControlNegPCR):     ControlNegPCR,
	string(ControlRtPCRPos):   ControlRtPCRPos,
	string(ControlRtPCRNeg):   ControlRtPCRNeg,
}

func controlForSampleID(sampleID string) (Control, bool) {
	control, ok := controlsBySampleID[strings.ToLower(sampleID)]
	return control, ok
}
