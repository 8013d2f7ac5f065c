package covidpipe

import (
	"context"
	"fmt"
	"strings"
)

// ServiceRequestProvider lazily dereferences the chain
// ServiceRequest -> Patient -> ManagingOrganization for one substance and
// caches each resource after the first fetch. One provider is owned per
// sample during reporting, nothing here is shared.
type ServiceRequestProvider struct {
	partner          PartnerClient
	serviceRequestID string

	serviceRequest *ServiceRequestTO
	patient        *PatientTO
	organization   *OrganizationTO
}

func NewServiceRequestProvider(partner PartnerClient, serviceRequestID string) *ServiceRequestProvider {
	return &ServiceRequestProvider{
		partner:          partner,
		serviceRequestID: serviceRequestID,
	}
}

func (p *ServiceRequestProvider) ServiceRequest(ctx context.Context) (*ServiceRequestTO, error) {
	if p.serviceRequest != nil {
		return p.serviceRequest, nil
	}
	var serviceRequest ServiceRequestTO
	if err := p.partner.Get(ctx, "ServiceRequest/"+p.serviceRequestID, &serviceRequest); err != nil {
		return nil, err
	}
	if serviceRequest.ID == "" {
		return nil, &IntegrationError{Field: "ServiceRequest.id", Err: fmt.Errorf("missing on ServiceRequest/%s", p.serviceRequestID)}
	}
	p.serviceRequest = &serviceRequest
	return p.serviceRequest, nil
}

func (p *ServiceRequestProvider) Patient(ctx context.Context) (*PatientTO, error) {
	if p.patient != nil {
		return p.patient, nil
	}
	serviceRequest, err := p.ServiceRequest(ctx)
	if err != nil {
		return nil, err
	}
	if serviceRequest.Subject.Reference == "" {
		return nil, &IntegrationError{Field: "ServiceRequest.subject", Err: fmt.Errorf("missing on ServiceRequest/%s", p.serviceRequestID)}
	}
	var patient PatientTO
	if err := p.partner.Get(ctx, serviceRequest.Subject.Reference, &patient); err != nil {
		return nil, err
	}
	p.patient = &patient
	return p.patient, nil
}

func (p *ServiceRequestProvider) Organization(ctx context.Context) (*OrganizationTO, error) {
	if p.organization != nil {
		return p.organization, nil
	}
	patient, err := p.Patient(ctx)
	if err != nil {
		return nil, err
	}
	if patient.ManagingOrganization.Reference == "" {
		return nil, &IntegrationError{Field: "Patient.managingOrganization", Err: fmt.Errorf("missing for ServiceRequest/%s", p.serviceRequestID)}
	}
	var organization OrganizationTO
	if err := p.partner.Get(ctx, patient.ManagingOrganization.Reference, &organization); err != nil {
		return nil, err
	}
	p.organization = &organization
	return p.organization, nil
}

// PatientSMSNumber returns the first telecom entry with system sms, or "".
func (p *ServiceRequestProvider) PatientSMSNumber(ctx context.Context) (string, error) {
	patient, err := p.Patient(ctx)
	if err != nil {
		return "", err
	}
	for _, telecom := range patient.Telecom {
		if strings.EqualFold(telecom.System, "sms") && telecom.Value != "" {
			return telecom.Value, nil
		}
	}
	return "", nil
}

// RequestNotes returns the values of the service request's key=value notes
// whose key is in the requested set, in note order.
func (p *ServiceRequestProvider) RequestNotes(ctx context.Context, keys []string) ([]string, error) {
	serviceRequest, err := p.ServiceRequest(ctx)
	if err != nil {
		return nil, err
	}
	wanted := map[string]struct{}{}
	for _, key := range keys {
		wanted[key] = struct{}{}
	}
	var notes []string
	for _, note := range serviceRequest.Note {
		key, value, found := strings.Cut(note.Text, "=")
		if !found {
			continue
		}
		if _, ok := wanted[strings.TrimSpace(key)]; ok {
			notes = append(notes, strings.TrimSpace(value))
		}
	}
	return notes, nil
}
