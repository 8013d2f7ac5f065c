package covidpipe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/snpseq/covidpipe/config"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// FHIR transfer objects, restricted to the fields this pipeline reads.

type referenceTO struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

type identifierTO struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

type annotationTO struct {
	Text string `json:"text,omitempty"`
}

type codingTO struct {
	System string `json:"system,omitempty"`
	Code   string `json:"code,omitempty"`
}

type codeableConceptTO struct {
	Coding []codingTO `json:"coding,omitempty"`
	Text   string     `json:"text,omitempty"`
}

type contactPointTO struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

type humanNameTO struct {
	Text string `json:"text,omitempty"`
}

// ServiceRequestTO is the partner's order resource. Read only, the pipeline
// never mutates a service request.
type ServiceRequestTO struct {
	ResourceType string         `json:"resourceType"`
	ID           string         `json:"id"`
	Identifier   []identifierTO `json:"identifier,omitempty"`
	Subject      referenceTO    `json:"subject,omitempty"`
	Requester    referenceTO    `json:"requester,omitempty"`
	AuthoredOn   string         `json:"authoredOn,omitempty"`
	Note         []annotationTO `json:"note,omitempty"`
}

type PatientTO struct {
	ResourceType         string           `json:"resourceType"`
	ID                   string           `json:"id"`
	Identifier           []identifierTO   `json:"identifier,omitempty"`
	Gender               string           `json:"gender,omitempty"`
	Name                 []humanNameTO    `json:"name,omitempty"`
	ManagingOrganization referenceTO      `json:"managingOrganization,omitempty"`
	Telecom              []contactPointTO `json:"telecom,omitempty"`
}

type OrganizationTO struct {
	ResourceType string   `json:"resourceType"`
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Alias        []string `json:"alias,omitempty"`
}

type bundleEntryTO struct {
	Resource json.RawMessage `json:"resource"`
}

type bundleTO struct {
	ResourceType string          `json:"resourceType"`
	Total        *int            `json:"total,omitempty"`
	Entry        []bundleEntryTO `json:"entry,omitempty"`
}

type observationResourceTO struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Code         codeableConceptTO `json:"code"`
	ValueString  string            `json:"valueString,omitempty"`
}

type diagnosticReportTO struct {
	ResourceType   string                  `json:"resourceType"`
	Status         string                  `json:"status"`
	Code           codeableConceptTO       `json:"code"`
	BasedOn        []referenceTO           `json:"basedOn,omitempty"`
	Contained      []observationResourceTO `json:"contained,omitempty"`
	Result         []referenceTO           `json:"result,omitempty"`
	ConclusionCode []codeableConceptTO     `json:"conclusionCode,omitempty"`
}

type operationOutcomeTO struct {
	ResourceType string `json:"resourceType"`
	Issue        []struct {
		Severity    string `json:"severity"`
		Diagnostics string `json:"diagnostics"`
	} `json:"issue,omitempty"`
}

// ObservationValue is one measured value embedded into a diagnosis report,
// typically the FAM Ct.
type ObservationValue struct {
	Value string
}

// PartnerClient is the typed REST surface of the partner referral service
// (v7). Search and Get are idempotent and may be retried by the transport,
// the two POSTs must not be.
type PartnerClient interface {
	SearchServiceRequest(ctx context.Context, orgURI, referralCode string) (ServiceRequestTO, error)
	CreateAnonymousServiceRequest(ctx context.Context, referralCode string) (string, error)
	PostDiagnosisReport(ctx context.Context, serviceRequestID string, diagnosis Diagnosis, observations []ObservationValue) error
	Get(ctx context.Context, reference string, out interface{}) error
}

type partnerClient struct {
	readClient        *resty.Client
	writeClient       *resty.Client
	baseURL           string
	codeSystemBaseURL string
}

func NewPartnerClient(secrets *config.Secrets, readClient, writeClient *resty.Client) (PartnerClient, error) {
	if secrets.PartnerBaseURL == "" {
		return nil, fmt.Errorf("basepath for the partner service must be set. check your secrets file for test_partner_base_url")
	}
	readClient.SetBasicAuth(secrets.PartnerUser, secrets.PartnerPassword)
	writeClient.SetBasicAuth(secrets.PartnerUser, secrets.PartnerPassword)
	return &partnerClient{
		readClient:        readClient,
		writeClient:       writeClient,
		baseURL:           secrets.PartnerBaseURL,
		codeSystemBaseURL: secrets.PartnerCodeSystemBaseURL,
	}, nil
}

func (p *partnerClient) SearchServiceRequest(ctx context.Context, orgURI, referralCode string) (ServiceRequestTO, error) {
	var serviceRequest ServiceRequestTO

	resp, err := p.readClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/fhir+json").
		SetQueryParam("identifier", orgURI+"|"+referralCode).
		Get(p.baseURL + "/ServiceRequest")
	if err != nil {
		log.Error().Err(err).Str("referralCode", referralCode).Msg(MsgPartnerCallFailed)
		return serviceRequest, fmt.Errorf("%w: %v", ErrPartnerCallFailed, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return serviceRequest, fmt.Errorf("%w: unexpected status %d searching %s|%s", ErrPartnerCallFailed, resp.StatusCode(), orgURI, referralCode)
	}

	var bundle bundleTO
	if err := json.Unmarshal(resp.Body(), &bundle); err != nil {
		return serviceRequest, &IntegrationError{OrgURI: orgURI, ReferralCode: referralCode, Field: "Bundle", Err: err}
	}

	switch len(bundle.Entry) {
	case 0:
		return serviceRequest, fmt.Errorf("%w: %s|%s", ErrServiceRequestNotFound, orgURI, referralCode)
	case 1:
		// fallthrough below
	default:
		return serviceRequest, fmt.Errorf("%w: %s|%s matched %d", ErrMultipleServiceRequests, orgURI, referralCode, len(bundle.Entry))
	}

	if err := json.Unmarshal(bundle.Entry[0].Resource, &serviceRequest); err != nil {
		return serviceRequest, &IntegrationError{OrgURI: orgURI, ReferralCode: referralCode, Field: "ServiceRequest", Err: err}
	}
	if serviceRequest.ID == "" {
		return serviceRequest, &IntegrationError{OrgURI: orgURI, ReferralCode: referralCode, Field: "ServiceRequest.id", Err: fmt.Errorf("missing")}
	}
	return serviceRequest, nil
}

// anonymousServiceRequestBody builds the hard-coded anonymous patient plus
// service request payload. The partner recognizes the referral code and
// attaches the request to its anonymous organization.
func (p *partnerClient) anonymousServiceRequestBody(referralCode string) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "ServiceRequest",
		"status":       "active",
		"intent":       "original-order",
		"identifier": []map[string]string{
			{"system": p.codeSystemBaseURL + "/referral-code", "value": referralCode},
		},
		"contained": []map[string]interface{}{
			{
				"resourceType": "Patient",
				"id":           "anonymous-patient",
				"name":         []map[string]string{{"text": "Anonymous"}},
			},
		},
		"subject": map[string]string{"reference": "#anonymous-patient"},
	}
}

func (p *partnerClient) CreateAnonymousServiceRequest(ctx context.Context, referralCode string) (string, error) {
	var created ServiceRequestTO
	resp, err := p.writeClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/fhir+json").
		SetBody(p.anonymousServiceRequestBody(referralCode)).
		SetResult(&created).
		Post(p.baseURL + "/ServiceRequest")
	if err != nil {
		log.Error().Err(err).Str("referralCode", referralCode).Msg(MsgPartnerCallFailed)
		return "", fmt.Errorf("%w: %v", ErrPartnerCallFailed, err)
	}

	switch resp.StatusCode() {
	case http.StatusCreated:
		if created.ID == "" {
			return "", &IntegrationError{OrgURI: OrgAnonymous.URI, ReferralCode: referralCode, Field: "ServiceRequest.id", Err: fmt.Errorf("missing")}
		}
		return created.ID, nil
	case http.StatusBadRequest:
		return "", fmt.Errorf("%w: %s", ErrAnonymousCannotCreate, referralCode)
	case http.StatusConflict:
		return "", fmt.Errorf("%w: %s", ErrAnonymousAlreadyExists, referralCode)
	default:
		return "", fmt.Errorf("%w: unexpected status %d creating anonymous request for %s", ErrPartnerCallFailed, resp.StatusCode(), referralCode)
	}
}

func (p *partnerClient) PostDiagnosisReport(ctx context.Context, serviceRequestID string, diagnosis Diagnosis, observations []ObservationValue) error {
	contained := make([]observationResourceTO, len(observations))
	results := make([]referenceTO, len(observations))
	for i := range observations {
		observationID := fmt.Sprintf("observation-%d", i+1)
		contained[i] = observationResourceTO{
			ResourceType: "Observation",
			ID:           observationID,
			Status:       "final",
			Code: codeableConceptTO{
				Coding: []codingTO{{System: "http://loinc.org", Code: "94745-7"}},
				Text:   "SARS-CoV-2 RNA Ct",
			},
			ValueString: observations[i].Value,
		}
		results[i] = referenceTO{Reference: "#" + observationID}
	}

	report := diagnosticReportTO{
		ResourceType: "DiagnosticReport",
		Status:       "final",
		Code: codeableConceptTO{
			Coding: []codingTO{{System: "http://loinc.org", Code: "94500-6"}},
			Text:   "SARS-CoV-2 RNA panel",
		},
		BasedOn:   []referenceTO{{Reference: "ServiceRequest/" + serviceRequestID}},
		Contained: contained,
		Result:    results,
		ConclusionCode: []codeableConceptTO{
			{Coding: []codingTO{{System: p.codeSystemBaseURL + "/covid-result", Code: string(diagnosis)}}},
		},
	}

	var outcome operationOutcomeTO
	resp, err := p.writeClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/fhir+json").
		SetBody(report).
		SetError(&outcome).
		Post(p.baseURL + "/DiagnosticReport")
	if err != nil {
		log.Error().Err(err).Str("serviceRequestId", serviceRequestID).Msg(MsgPartnerCallFailed)
		return fmt.Errorf("%w: %v", ErrPartnerCallFailed, err)
	}
	if resp.StatusCode() != http.StatusCreated {
		diagnostics := ""
		if len(outcome.Issue) > 0 {
			diagnostics = outcome.Issue[0].Diagnostics
		}
		return fmt.Errorf("%w: status %d for ServiceRequest/%s %s", ErrDiagnosisReportRejected, resp.StatusCode(), serviceRequestID, diagnostics)
	}
	return nil
}

func (p *partnerClient) Get(ctx context.Context, reference string, out interface{}) error {
	resp, err := p.readClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/fhir+json").
		Get(p.baseURL + "/" + reference)
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg(MsgPartnerCallFailed)
		return fmt.Errorf("%w: %v", ErrPartnerCallFailed, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d dereferencing %s", ErrPartnerCallFailed, resp.StatusCode(), reference)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &IntegrationError{Field: reference, Err: err}
	}
	return nil
}
