package covidpipe

import (
	"net/http"

	"github.com/snpseq/covidpipe/lims"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type validateSampleListTO struct {
	Organization string `json:"organization" binding:"required"`
}

type createSamplesTO struct {
	Discard bool `json:"discard"`
}

type sampleRowTO struct {
	SampleID         string `json:"sampleId"`
	Position         string `json:"position"`
	Status           string `json:"status"`
	ServiceRequestID string `json:"serviceRequestId,omitempty"`
	Comment          string `json:"comment,omitempty"`
}

type stepResultTO struct {
	StepID       string        `json:"stepId"`
	Rows         []sampleRowTO `json:"rows,omitempty"`
	ContainerIDs []string      `json:"containerIds,omitempty"`
	RowFailures  string        `json:"rowFailures,omitempty"`
}

type httpErrorTO struct {
	Message string `json:"message"`
}

// loadStep resolves the step from the path parameter, answering 404 itself
// when the LIMS does not know the step.
func (api *api) loadStep(c *gin.Context) (*lims.Step, bool) {
	stepID := c.Param("stepID")
	step, err := api.limsClient.GetStep(c, stepID)
	if err != nil {
		log.Error().Err(err).Str("stepId", stepID).Msg("failed to load step")
		c.JSON(http.StatusNotFound, httpErrorTO{Message: err.Error()})
		return nil, false
	}
	return step, true
}

func rowTOs(rows []ValidatedSampleRow) []sampleRowTO {
	tos := make([]sampleRowTO, len(rows))
	for i, row := range rows {
		tos[i] = sampleRowTO{
			SampleID:         row.SampleID,
			Position:         row.Position,
			Status:           string(row.Status),
			ServiceRequestID: row.ServiceRequestID,
			Comment:          row.Comment,
		}
	}
	return tos
}

// ValidateSampleList
// @Summary Validate the raw sample list attached to a step
// @Description Resolves every barcode against the partner referral service and attaches the validated sample list.
// @Tags Steps
// @Produce json
// @Accept json
// @Success 200 {object} stepResultTO "OK"
// @Failure 400 {object} httpErrorTO "Bad Request"
// @Router /v1/steps/{stepID}/validate [POST]
func (api *api) ValidateSampleList(c *gin.Context) {
	var to validateSampleListTO
	if err := c.BindJSON(&to); err != nil {
		c.JSON(http.StatusBadRequest, httpErrorTO{Message: err.Error()})
		return
	}
	step, ok := api.loadStep(c)
	if !ok {
		return
	}

	rows, err := api.validationService.ValidateSampleList(c, step, to.Organization)
	result := stepResultTO{StepID: step.ID, Rows: rowTOs(rows)}
	if err != nil {
		// Row failures do not fail the request, the validated list still
		// carries every row and the operator resolves them in the LIMS.
		if rows == nil {
			log.Error().Err(err).Str("stepId", step.ID).Msg("sample list validation failed")
			c.JSON(http.StatusBadRequest, httpErrorTO{Message: err.Error()})
			return
		}
		result.RowFailures = err.Error()
	}
	c.JSON(http.StatusOK, result)
}

// AssignAnonymous
// @Summary Assign anonymous service requests to unregistered rows
// @Tags Steps
// @Produce json
// @Success 200 {object} stepResultTO "OK"
// @Failure 400 {object} httpErrorTO "Bad Request"
// @Router /v1/steps/{stepID}/assign-anonymous [POST]
func (api *api) AssignAnonymous(c *gin.Context) {
	step, ok := api.loadStep(c)
	if !ok {
		return
	}

	rows, err := api.anonymousService.AssignAnonymousServiceRequests(c, step)
	result := stepResultTO{StepID: step.ID, Rows: rowTOs(rows)}
	if err != nil {
		if rows == nil {
			log.Error().Err(err).Str("stepId", step.ID).Msg("anonymous assignment failed")
			c.JSON(http.StatusBadRequest, httpErrorTO{Message: err.Error()})
			return
		}
		result.RowFailures = err.Error()
	}
	c.JSON(http.StatusOK, result)
}

// CreateSamples
// @Summary Create plates and samples from the validated sample list
// @Tags Steps
// @Produce json
// @Accept json
// @Success 200 {object} stepResultTO "OK"
// @Failure 400 {object} httpErrorTO "Bad Request"
// @Router /v1/steps/{stepID}/create-samples [POST]
func (api *api) CreateSamples(c *gin.Context) {
	var to createSamplesTO
	if err := c.BindJSON(&to); err != nil {
		c.JSON(http.StatusBadRequest, httpErrorTO{Message: err.Error()})
		return
	}
	step, ok := api.loadStep(c)
	if !ok {
		return
	}

	containerIDs, err := api.creationService.CreateSamples(c, step, to.Discard)
	if err != nil {
		log.Error().Err(err).Str("stepId", step.ID).Msg("sample creation failed")
		c.JSON(http.StatusBadRequest, httpErrorTO{Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, stepResultTO{StepID: step.ID, ContainerIDs: containerIDs})
}

// AnalyzeStep
// @Summary Analyze the instrument result file attached to a step
// @Tags Steps
// @Produce json
// @Success 200 {object} stepResultTO "OK"
// @Failure 400 {object} httpErrorTO "Bad Request"
// @Router /v1/steps/{stepID}/analyze [POST]
func (api *api) AnalyzeStep(c *gin.Context) {
	step, ok := api.loadStep(c)
	if !ok {
		return
	}

	outcome, err := api.analysisService.AnalyzeStep(c, step)
	if err != nil {
		log.Error().Err(err).Str("stepId", step.ID).Msg("analysis failed")
		c.JSON(http.StatusBadRequest, httpErrorTO{Message: err.Error()})
		return
	}

	rows := make([]sampleRowTO, len(outcome.Samples))
	for i, analyzed := range outcome.Samples {
		rows[i] = sampleRowTO{
			SampleID: analyzed.Reading.SampleName,
			Position: analyzed.Reading.WellAlphaNum,
			Status:   string(analyzed.Diagnosis),
		}
	}
	c.JSON(http.StatusOK, stepResultTO{StepID: step.ID, Rows: rows})
}

// ReportToPartner
// @Summary Report diagnoses for a step to the partner referral service
// @Tags Steps
// @Produce json
// @Success 200 {object} stepResultTO "OK"
// @Failure 400 {object} httpErrorTO "Bad Request"
// @Router /v1/steps/{stepID}/report-partner [POST]
func (api *api) ReportToPartner(c *gin.Context) {
	step, ok := api.loadStep(c)
	if !ok {
		return
	}

	result := stepResultTO{StepID: step.ID}
	if err := api.partnerReportService.ReportResults(c, step); err != nil {
		result.RowFailures = err.Error()
	}
	c.JSON(http.StatusOK, result)
}

// ReportToNCDR
// @Summary Submit lab exports for the positive samples of a step
// @Tags Steps
// @Produce json
// @Success 200 {object} stepResultTO "OK"
// @Failure 400 {object} httpErrorTO "Bad Request"
// @Router /v1/steps/{stepID}/report-ncdr [POST]
func (api *api) ReportToNCDR(c *gin.Context) {
	step, ok := api.loadStep(c)
	if !ok {
		return
	}

	result := stepResultTO{StepID: step.ID}
	if err := api.ncdrReportService.ReportPositives(c, step); err != nil {
		result.RowFailures = err.Error()
	}
	c.JSON(http.StatusOK, result)
}
