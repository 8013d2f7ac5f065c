package covidpipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snpseq/covidpipe/lims"

	"github.com/rs/zerolog/log"
)

// AnonymousService creates anonymous service requests for every
// unregistered row of a validated sample list.
type AnonymousService interface {
	AssignAnonymousServiceRequests(ctx context.Context, step *lims.Step) ([]ValidatedSampleRow, error)
}

type anonymousService struct {
	partner    PartnerClient
	limsClient lims.Client
	clock      func() time.Time
}

func NewAnonymousService(partner PartnerClient, limsClient lims.Client, clock func() time.Time) AnonymousService {
	if clock == nil {
		clock = time.Now
	}
	return &anonymousService{
		partner:    partner,
		limsClient: limsClient,
		clock:      clock,
	}
}

func (s *anonymousService) AssignAnonymousServiceRequests(ctx context.Context, step *lims.Step) ([]ValidatedSampleRow, error) {
	content, err := s.limsClient.DownloadFile(ctx, step.ID, FileSlotValidatedSampleList)
	if err != nil {
		return nil, err
	}
	rows, err := ParseValidatedSampleList(content)
	if err != nil {
		return nil, err
	}

	deferred := &DeferredErrors{}
	assigned := 0
	for i := range rows {
		if rows[i].Status != RowStatusUnregistered {
			continue
		}
		serviceRequestID, err := s.partner.CreateAnonymousServiceRequest(ctx, rows[i].SampleID)
		switch {
		case err == nil:
			rows[i].Status = RowStatusOK
			rows[i].ServiceRequestID = serviceRequestID
			assigned++
		case errors.Is(err, ErrAnonymousCannotCreate):
			rows[i].Status = RowStatusError
			rows[i].Comment = "partner did not recognize the barcode, investigate the physical sample"
			deferred.Defer(rows[i].SampleID, err)
		case errors.Is(err, ErrAnonymousAlreadyExists):
			rows[i].Status = RowStatusError
			rows[i].Comment = "a service request already exists, the sample should not have been unregistered"
			deferred.Defer(rows[i].SampleID, err)
		default:
			rows[i].Status = RowStatusError
			rows[i].Comment = err.Error()
			deferred.Defer(rows[i].SampleID, err)
		}
	}

	rendered, err := RenderValidatedSampleList(rows)
	if err != nil {
		return nil, err
	}
	fileName := fmt.Sprintf("validated_sample_list_%s.csv", s.clock().Format("20060102T150405"))
	if err := s.limsClient.UploadFile(ctx, step.ID, fileName, rendered); err != nil {
		return nil, err
	}

	log.Debug().
		Str("stepId", step.ID).
		Int("assigned", assigned).
		Int("deferred", deferred.Len()).
		Msg("anonymous service requests assigned")
	return rows, deferred.Err()
}
