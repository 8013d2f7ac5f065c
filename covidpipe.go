// Package covidpipe integrates a clinical lab LIMS with the external
// parties of a high-throughput SARS-CoV-2 rtPCR pipeline: the partner
// referral service samples are registered with, and the national
// communicable disease reporting endpoint positives are notified to.
//
// The host LIMS stays the source of truth. All per-sample state lives in
// UDFs, every operation re-reads it from the step and commits changes back,
// which is what makes the trigger endpoints safe to re-run.
package covidpipe

import (
	"context"
	"time"

	"github.com/snpseq/covidpipe/config"
	"github.com/snpseq/covidpipe/lims"
	"github.com/snpseq/covidpipe/ncdr"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Pipeline bundles every service of the integration behind one startable
// unit.
type Pipeline interface {
	Start() error
	Validation() ValidationService
	Anonymous() AnonymousService
	Creation() CreationService
	Analysis() AnalysisService
	PartnerReport() PartnerReportService
	NCDRReport() NCDRReportService
}

type pipeline struct {
	api                  GinApi
	validationService    ValidationService
	anonymousService     AnonymousService
	creationService      CreationService
	analysisService      AnalysisService
	partnerReportService PartnerReportService
	ncdrReportService    NCDRReportService
}

func (p *pipeline) Start() error {
	if err := p.api.Run(); err != nil {
		log.Error().Err(err).Msg("Failed to start API")
		return err
	}
	return nil
}

func (p *pipeline) Validation() ValidationService       { return p.validationService }
func (p *pipeline) Anonymous() AnonymousService         { return p.anonymousService }
func (p *pipeline) Creation() CreationService           { return p.creationService }
func (p *pipeline) Analysis() AnalysisService           { return p.analysisService }
func (p *pipeline) PartnerReport() PartnerReportService { return p.partnerReportService }
func (p *pipeline) NCDRReport() NCDRReportService       { return p.ncdrReportService }

// New wires the full pipeline from configuration: REST clients towards the
// partner, the lab export client towards the reporting endpoint, the six
// services and the trigger API. The lims.Client is injected by the host
// adapter.
func New(configuration *config.Configuration, limsClient lims.Client) (Pipeline, error) {
	secrets, err := config.ReadSecrets(configuration.SecretsPath)
	if err != nil {
		return nil, errors.Wrap(err, "read secrets")
	}

	ctx := context.Background()
	partnerClient, err := NewPartnerClient(&secrets,
		NewRestyClient(ctx, configuration),
		NewWriteRestyClient(ctx, configuration))
	if err != nil {
		return nil, errors.Wrap(err, "configure partner client")
	}

	ncdrClient, err := ncdr.NewClient(ncdr.Config{
		Environment: secrets.SmiNetEnvironment,
		Username:    secrets.SmiNetUsername,
		Password:    secrets.SmiNetPassword,
		Laboratory: ncdr.Laboratory{
			Number: secrets.SmiNetLabNumber,
			Name:   secrets.SmiNetLabName,
		},
	}, NewWriteRestyClient(ctx, configuration), time.Now)
	if err != nil {
		return nil, errors.Wrap(err, "configure lab export client")
	}

	bounds, err := assayBounds(configuration)
	if err != nil {
		return nil, err
	}

	validationService := NewValidationService(partnerClient, limsClient, time.Now)
	anonymousService := NewAnonymousService(partnerClient, limsClient, time.Now)
	creationService := NewCreationService(limsClient, configuration.CovidWorkflowName, time.Now)
	analysisService := NewAnalysisService(limsClient, bounds, time.Now)
	partnerReportService := NewPartnerReportService(partnerClient, limsClient, time.Now)
	ncdrReportService := NewNCDRReportService(partnerClient, ncdrClient, limsClient,
		configuration.NotificationFreeTextKeys, time.Now)

	api := NewAPI(configuration, limsClient,
		validationService,
		anonymousService,
		creationService,
		analysisService,
		partnerReportService,
		ncdrReportService)

	return &pipeline{
		api:                  api,
		validationService:    validationService,
		anonymousService:     anonymousService,
		creationService:      creationService,
		analysisService:      analysisService,
		partnerReportService: partnerReportService,
		ncdrReportService:    ncdrReportService,
	}, nil
}

func assayBounds(configuration *config.Configuration) (AssayBounds, error) {
	lower, err := decimal.NewFromString(configuration.RtPCRLowerBound)
	if err != nil {
		return AssayBounds{}, errors.Wrap(err, "parse rtPCR lower bound")
	}
	upper, err := decimal.NewFromString(configuration.RtPCRUpperBound)
	if err != nil {
		return AssayBounds{}, errors.Wrap(err, "parse rtPCR upper bound")
	}
	if !lower.LessThan(upper) {
		return AssayBounds{}, errors.Errorf("rtPCR bounds out of order: %s >= %s", lower, upper)
	}
	return AssayBounds{Lower: lower, Upper: upper}, nil
}
