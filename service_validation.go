package covidpipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snpseq/covidpipe/lims"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Step attachment slots used by the intake services. Uploads always go to a
// fresh timestamped name, the original files are never mutated.
const (
	FileSlotRawSampleList       = "Raw sample list"
	FileSlotValidatedSampleList = "Validated sample list"
)

// ValidationService resolves every barcode of a raw sample list against the
// partner referral service and emits the validated sample list.
type ValidationService interface {
	ValidateSampleList(ctx context.Context, step *lims.Step, orgName string) ([]ValidatedSampleRow, error)
}

type validationService struct {
	partner    PartnerClient
	limsClient lims.Client
	clock      func() time.Time
}

func NewValidationService(partner PartnerClient, limsClient lims.Client, clock func() time.Time) ValidationService {
	if clock == nil {
		clock = time.Now
	}
	return &validationService{
		partner:    partner,
		limsClient: limsClient,
		clock:      clock,
	}
}

func (s *validationService) ValidateSampleList(ctx context.Context, step *lims.Step, orgName string) ([]ValidatedSampleRow, error) {
	organization, err := OrganizationByName(orgName)
	if err != nil {
		return nil, err
	}

	content, err := s.limsClient.DownloadFile(ctx, step.ID, FileSlotRawSampleList)
	if err != nil {
		return nil, err
	}
	rawRows, err := ParseRawSampleList(content)
	if err != nil {
		return nil, err
	}

	deferred := &DeferredErrors{}
	validated := make([]ValidatedSampleRow, 0, len(rawRows))
	for _, raw := range rawRows {
		validated = append(validated, s.validateRow(ctx, organization, raw, deferred))
	}

	rendered, err := RenderValidatedSampleList(validated)
	if err != nil {
		return nil, err
	}
	fileName := fmt.Sprintf("validated_sample_list_%s.csv", s.clock().Format("20060102T150405"))
	if err := s.limsClient.UploadFile(ctx, step.ID, fileName, rendered); err != nil {
		return nil, err
	}

	log.Debug().
		Str("stepId", step.ID).
		Str("org", organization.Name).
		Int("rows", len(validated)).
		Int("deferred", deferred.Len()).
		Msg("sample list validated")
	return validated, deferred.Err()
}

func (s *validationService) validateRow(ctx context.Context, organization Organization, raw RawSampleRow, deferred *DeferredErrors) ValidatedSampleRow {
	row := ValidatedSampleRow{
		SampleID: raw.SampleID,
		Position: raw.Position,
		OrgURI:   organization.URI,
	}

	// The testing org never reaches the network and produces deterministic
	// fake identifiers.
	if organization == OrgTesting {
		switch RowStatus(raw.FakeStatus) {
		case RowStatusError, RowStatusUnregistered:
			row.Status = RowStatus(raw.FakeStatus)
		default:
			row.Status = RowStatusOK
			row.ServiceRequestID = "faked-" + uuid.New().String()
		}
		return row
	}

	if !ValidReferralCode(raw.SampleID) {
		row.Status = RowStatusError
		row.Comment = MsgInvalidReferralCode
		deferred.Defer(raw.SampleID, ErrInvalidReferralCode)
		return row
	}

	serviceRequest, err := s.partner.SearchServiceRequest(ctx, organization.URI, raw.SampleID)
	switch {
	case err == nil:
		row.Status = RowStatusOK
		row.ServiceRequestID = serviceRequest.ID
	case errors.Is(err, ErrServiceRequestNotFound):
		row.Status = RowStatusUnregistered
		row.OrgURI = OrgAnonymous.URI
		log.Warn().Str("sampleId", raw.SampleID).Str("org", organization.Name).Msg("barcode not registered at partner")
	default:
		row.Status = RowStatusError
		row.Comment = err.Error()
		deferred.Defer(raw.SampleID, err)
	}
	return row
}
