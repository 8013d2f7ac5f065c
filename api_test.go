package covidpipe

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snpseq/covidpipe/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAPI(rig *LimsTestRig, partner PartnerClient) *api {
	configuration := &config.Configuration{
		APIPort:           8080,
		PermittedOrigin:   "*",
		CovidWorkflowName: "SARS-CoV-2 rtPCR v1",
	}
	ginAPI := NewAPI(configuration, rig,
		NewValidationService(partner, rig, time.Now),
		NewAnonymousService(partner, rig, time.Now),
		NewCreationService(rig, configuration.CovidWorkflowName, creationClock()),
		NewAnalysisService(rig, testBounds(), time.Now),
		NewPartnerReportService(partner, rig, time.Now),
		NewNCDRReportService(partner, &ncdrClientMock{}, rig, nil, time.Now))
	return ginAPI.(*api)
}

func TestGetHealth(t *testing.T) {
	api := testAPI(NewLimsTestRig(), &partnerClientMock{})

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodGet, "/health", nil)
	api.engine.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var health map[string]interface{}
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &health))
	assert.Equal(t, "running", health["status"])
}

func TestValidateEndpointRejectsBadBody(t *testing.T) {
	api := testAPI(NewLimsTestRig(), &partnerClientMock{})

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodPost, "/v1/steps/step-11/validate", bytes.NewBufferString("{"))
	api.engine.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestValidateEndpointUnknownStep(t *testing.T) {
	api := testAPI(NewLimsTestRig(), &partnerClientMock{})

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodPost, "/v1/steps/absent/validate",
		bytes.NewBufferString(`{"organization":"karlsson-novak"}`))
	api.engine.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestValidateEndpoint(t *testing.T) {
	rig := NewLimsTestRig()
	rawListStep(rig, "rack-1,A01,5236417647\n")
	partner := &partnerClientMock{
		searchServiceRequestFunc: func(orgURI, referralCode string) (ServiceRequestTO, error) {
			return ServiceRequestTO{ID: "sr-1"}, nil
		},
	}
	api := testAPI(rig, partner)

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodPost, "/v1/steps/step-11/validate",
		bytes.NewBufferString(`{"organization":"karlsson-novak"}`))
	api.engine.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var result stepResultTO
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "ok", result.Rows[0].Status)
	assert.Equal(t, "sr-1", result.Rows[0].ServiceRequestID)
	assert.Empty(t, result.RowFailures)
}

func TestCreateSamplesEndpoint(t *testing.T) {
	rig := NewLimsTestRig()
	creationStep(rig, []ValidatedSampleRow{
		{SampleID: "5236417647", Position: "A01", Status: RowStatusOK, ServiceRequestID: "sr-1", OrgURI: OrgKarlssonNovak.URI},
	})
	api := testAPI(rig, &partnerClientMock{})

	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(http.MethodPost, "/v1/steps/step-13/create-samples",
		bytes.NewBufferString(`{"discard":false}`))
	api.engine.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	var result stepResultTO
	require.Nil(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.Len(t, result.ContainerIDs, 2)

	// running the trigger again must be refused
	recorder = httptest.NewRecorder()
	request, _ = http.NewRequest(http.MethodPost, "/v1/steps/step-13/create-samples",
		bytes.NewBufferString(`{"discard":false}`))
	api.engine.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
