package covidpipe

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/snpseq/covidpipe/lims"
	"github.com/snpseq/covidpipe/ncdr"
	"github.com/snpseq/covidpipe/utils"

	"github.com/rs/zerolog/log"
)

// NCDRReportService submits one lab export per reportable positive sample to
// the national communicable disease reporting endpoint. The sminet_status
// UDF is the submission state machine: success and ignore are terminal,
// everything else is retried on the next run.
type NCDRReportService interface {
	ReportPositives(ctx context.Context, step *lims.Step) error
}

type ncdrReportService struct {
	partner      PartnerClient
	ncdrClient   ncdr.Client
	limsClient   lims.Client
	freeTextKeys []string
	clock        func() time.Time
}

func NewNCDRReportService(partner PartnerClient, ncdrClient ncdr.Client, limsClient lims.Client, freeTextKeys []string, clock func() time.Time) NCDRReportService {
	if clock == nil {
		clock = time.Now
	}
	return &ncdrReportService{
		partner:      partner,
		ncdrClient:   ncdrClient,
		limsClient:   limsClient,
		freeTextKeys: freeTextKeys,
		clock:        clock,
	}
}

func (s *ncdrReportService) ReportPositives(ctx context.Context, step *lims.Step) error {
	deferred := &DeferredErrors{}
	for _, artifact := range step.Artifacts {
		if artifact.IsControl {
			continue
		}
		if Diagnosis(artifact.UDF(UDFRtPCRResultLatest)) != DiagnosisPositive {
			continue
		}
		if !SmiNetStatusAllowsSubmission(artifact.UDF(UDFSmiNetStatus)) {
			continue
		}

		err := s.reportOne(ctx, artifact)
		submittedAt := utils.InStockholmTime(s.clock()).Format("2006-01-02 15:04:05")
		switch {
		case err == nil:
			artifact.SetUDF(UDFSmiNetStatus, SmiNetStatusSuccess)
		case errors.Is(err, ErrUnregisteredPatient):
			artifact.SetUDF(UDFSmiNetStatus, SmiNetStatusIgnore)
			log.Warn().Str("sample", artifact.Name).Msg("patient has no identifier, sample permanently ignored")
		default:
			artifact.SetUDF(UDFSmiNetStatus, SmiNetStatusError)
			artifact.SetUDF(UDFSmiNetLastError, err.Error())
			deferred.Defer(artifact.Name, err)
		}
		artifact.SetUDF(UDFSmiNetUploadedDate, submittedAt)
		artifact.SetUDF(UDFSmiNetUploadedSource, artifact.URI)
		if artifact.Sample != nil {
			artifact.Sample.SetUDF(UDFSmiNetStatus, artifact.UDF(UDFSmiNetStatus))
			artifact.Sample.SetUDF(UDFSmiNetUploadedDate, submittedAt)
			artifact.Sample.SetUDF(UDFSmiNetUploadedSource, artifact.URI)
		}
		if err := s.limsClient.CommitArtifacts(ctx, []*lims.Artifact{artifact}); err != nil {
			deferred.Defer(artifact.Name, err)
		}
	}
	return deferred.Err()
}

func (s *ncdrReportService) reportOne(ctx context.Context, artifact *lims.Artifact) error {
	provider := NewServiceRequestProvider(s.partner, artifact.UDF(UDFKNMServiceRequestID))

	serviceRequest, err := provider.ServiceRequest(ctx)
	if err != nil {
		return err
	}
	patient, err := provider.Patient(ctx)
	if err != nil {
		return err
	}
	organization, err := provider.Organization(ctx)
	if err != nil {
		return err
	}

	notification := ncdr.Notification{
		Status:           ncdr.StatusFinalResponse,
		SampleNumber:     sampleNumber(artifact.Name),
		SampleMaterial:   "Svalg",
		ReportingDoctor:  serviceRequest.Requester.Display,
		DiagnosticMethod: "C",
		DiagnosisCode:    "SCOV2",
		DiagnosisText:    "SARS-CoV-2 (covid-19)",
	}

	arrival := artifact.UDF(UDFKNMDataAddedAt)
	if len(arrival) >= 10 {
		notification.SampleDateArrival = arrival[:10]
	}
	if len(serviceRequest.AuthoredOn) >= 10 {
		notification.SampleDateReferral = serviceRequest.AuthoredOn[:10]
	}

	notification.ClinicName = patient.ManagingOrganization.Display
	notification.ReferringDoctor = serviceRequest.Requester.Display

	county, found := countyFromAliases(organization.Alias)
	if !found {
		return &ncdr.ValidationError{Field: "county", Reason: "no organization alias maps to a county"}
	}
	notification.County = county

	if len(patient.Identifier) == 0 || patient.Identifier[0].Value == "" {
		return ErrUnregisteredPatient
	}
	notification.PatientID = patient.Identifier[0].Value
	notification.PatientSex = mapPatientSex(patient.Gender)
	if len(patient.Name) > 0 {
		notification.PatientName = patient.Name[0].Text
	}

	freeText, err := s.buildFreeText(ctx, provider)
	if err != nil {
		return err
	}
	notification.SampleFreeTextLab = freeText

	return s.ncdrClient.SubmitNotification(ctx, notification)
}

// buildFreeText enriches the notification with the patient's SMS number and
// the service request notes whose key is in the configured set.
func (s *ncdrReportService) buildFreeText(ctx context.Context, provider *ServiceRequestProvider) (string, error) {
	var parts []string
	smsNumber, err := provider.PatientSMSNumber(ctx)
	if err != nil {
		return "", err
	}
	if smsNumber != "" {
		parts = append(parts, "sms: "+smsNumber)
	}
	notes, err := provider.RequestNotes(ctx, s.freeTextKeys)
	if err != nil {
		return "", err
	}
	parts = append(parts, notes...)
	return strings.Join(parts, "; "), nil
}

// sampleNumber is the portion of the sample name before the first underscore.
func sampleNumber(name string) string {
	number, _, _ := strings.Cut(name, "_")
	return number
}

func mapPatientSex(gender string) string {
	switch strings.ToLower(gender) {
	case "male":
		return "m"
	case "female":
		return "k"
	default:
		return "o"
	}
}

// countyFromAliases picks the first alias that folds to a county the
// reporting schema accepts.
func countyFromAliases(aliases []string) (string, bool) {
	for _, alias := range aliases {
		if county, ok := ncdr.FoldCounty(alias); ok {
			return county, true
		}
	}
	return "", false
}
