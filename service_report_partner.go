package covidpipe

import (
	"context"
	"time"

	"github.com/snpseq/covidpipe/lims"
	"github.com/snpseq/covidpipe/utils"

	"github.com/rs/zerolog/log"
)

// PartnerReportService posts one diagnosis report per analyte to the partner
// referral service. The knm_result_uploaded guard makes re-runs safe: a
// substance is submitted at most once, failed rows are picked up again on
// the next run.
type PartnerReportService interface {
	ReportResults(ctx context.Context, step *lims.Step) error
}

type partnerReportService struct {
	partner    PartnerClient
	limsClient lims.Client
	clock      func() time.Time
}

func NewPartnerReportService(partner PartnerClient, limsClient lims.Client, clock func() time.Time) PartnerReportService {
	if clock == nil {
		clock = time.Now
	}
	return &partnerReportService{
		partner:    partner,
		limsClient: limsClient,
		clock:      clock,
	}
}

func (s *partnerReportService) ReportResults(ctx context.Context, step *lims.Step) error {
	deferred := &DeferredErrors{}
	for _, artifact := range step.Artifacts {
		if artifact.IsControl {
			continue
		}
		if artifact.UDF(UDFKNMResultUploaded) == "yes" {
			continue
		}
		if artifact.UDF(UDFKNMOrgURI) == OrgTesting.URI {
			log.Info().Str("sample", artifact.Name).Msg("testing org, not reporting externally")
			continue
		}

		diagnosis := Diagnosis(artifact.UDF(UDFRtPCRResultLatest)).ExternalResult()
		serviceRequestID := artifact.UDF(UDFKNMServiceRequestID)
		observations := []ObservationValue{{Value: artifact.UDF(UDFFamCtLatest)}}

		err := s.partner.PostDiagnosisReport(ctx, serviceRequestID, diagnosis, observations)
		if err != nil {
			deferred.Defer(artifact.Name, err)
			continue
		}

		uploadedAt := utils.InStockholmTime(s.clock()).Format("2006-01-02 15:04:05")
		artifact.SetUDF(UDFKNMResultUploaded, "yes")
		artifact.SetUDF(UDFKNMResultUploadedDate, uploadedAt)
		artifact.SetUDF(UDFKNMResultUploadedSource, artifact.URI)
		if artifact.Sample != nil {
			artifact.Sample.SetUDF(UDFKNMResultUploaded, "yes")
			artifact.Sample.SetUDF(UDFKNMResultUploadedDate, uploadedAt)
			artifact.Sample.SetUDF(UDFKNMResultUploadedSource, artifact.URI)
		}
		if err := MarkReported(artifact); err != nil {
			deferred.Defer(artifact.Name, err)
			continue
		}
		if err := s.limsClient.CommitArtifacts(ctx, []*lims.Artifact{artifact}); err != nil {
			deferred.Defer(artifact.Name, err)
			continue
		}
		log.Debug().
			Str("sample", artifact.Name).
			Str("result", string(diagnosis)).
			Str("serviceRequestId", serviceRequestID).
			Msg("diagnosis report uploaded")
	}
	return deferred.Err()
}
