package covidpipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRawSampleListStopsAtSentinel(t *testing.T) {
	content := []byte("Rack Id,Position,Sample Id\n" +
		"rack-1,A01,5236417647\n" +
		"rack-1,B01,1234567897\n" +
		"Sample Tracking Report Name,,\n" +
		"should-not,C01,appear\n")

	rows, err := ParseRawSampleList(content)
	assert.Nil(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "5236417647", rows[0].SampleID)
	assert.Equal(t, "A01", rows[0].Position)
	assert.Equal(t, "1234567897", rows[1].SampleID)
}

func TestParseRawSampleListReadsFakeStatus(t *testing.T) {
	content := []byte("Rack Id,Position,Sample Id,fake_status\n" +
		"rack-1,A01,5236417647,unregistered\n")

	rows, err := ParseRawSampleList(content)
	assert.Nil(t, err)
	assert.Equal(t, "unregistered", rows[0].FakeStatus)
}

func TestParseRawSampleListRejectsMissingColumns(t *testing.T) {
	_, err := ParseRawSampleList([]byte("Rack Id,Sample Id\nrack-1,5236417647\n"))
	assert.NotNil(t, err)
}

func TestValidatedSampleListRoundTrip(t *testing.T) {
	rows := []ValidatedSampleRow{
		{SampleID: "5236417647", Position: "A01", Status: RowStatusOK, ServiceRequestID: "sr-1", OrgURI: OrgKarlssonNovak.URI},
		{SampleID: "1234567897", Position: "B01", Status: RowStatusUnregistered, OrgURI: OrgAnonymous.URI},
		{SampleID: "999", Position: "C01", Status: RowStatusError, OrgURI: OrgKarlssonNovak.URI, Comment: MsgInvalidReferralCode},
	}

	rendered, err := RenderValidatedSampleList(rows)
	assert.Nil(t, err)

	parsed, err := ParseValidatedSampleList(rendered)
	assert.Nil(t, err)
	assert.Equal(t, rows, parsed)
}

func TestParseValidatedSampleListEnforcesRowInvariant(t *testing.T) {
	// ok without a service request id
	_, err := ParseValidatedSampleList([]byte("Sample Id,Position,status,service_request_id,org_uri,comment\n" +
		"5236417647,A01,ok,,http://org,\n"))
	assert.NotNil(t, err)

	// service request id on a non-ok row
	_, err = ParseValidatedSampleList([]byte("Sample Id,Position,status,service_request_id,org_uri,comment\n" +
		"5236417647,A01,error,sr-1,http://org,\n"))
	assert.NotNil(t, err)
}

func TestParseValidatedSampleListRejectsUnknownStatus(t *testing.T) {
	_, err := ParseValidatedSampleList([]byte("Sample Id,Position,status,service_request_id,org_uri,comment\n" +
		"5236417647,A01,pending,,http://org,\n"))
	assert.NotNil(t, err)
}
