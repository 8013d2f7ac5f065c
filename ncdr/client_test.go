package ncdr

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRejectsUnknownEnvironment(t *testing.T) {
	_, err := NewClient(Config{Environment: "qa"}, resty.New(), nil)
	assert.NotNil(t, err)

	for _, environment := range []string{EnvironmentStage, EnvironmentProd} {
		_, err := NewClient(Config{Environment: environment}, resty.New(), nil)
		assert.Nil(t, err, environment)
	}
}

func testClientAgainst(serverURL string) *client {
	return &client{
		restyClient: resty.New(),
		endpointURL: serverURL,
		username:    "labuser",
		password:    "labpass",
		laboratory:  Laboratory{Number: "91", Name: "NPC"},
		clock:       func() time.Time { return time.Date(2020, 11, 3, 8, 15, 30, 0, time.UTC) },
	}
}

type recordedSubmit struct {
	User     string `xml:"user"`
	Password string `xml:"password"`
	FileName string `xml:"fileName"`
	Data     string `xml:"data"`
}

func TestSubmitNotification(t *testing.T) {
	var recorded recordedSubmit
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "submitFile", r.Header.Get("SOAPAction"))
		body, _ := io.ReadAll(r.Body)

		var envelope struct {
			Body struct {
				SubmitFile recordedSubmit `xml:"submitFile"`
			} `xml:"Body"`
		}
		require.Nil(t, xml.Unmarshal(body, &envelope))
		recorded = envelope.Body.SubmitFile

		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<Envelope><Body><submitFileResponse><returnCode>0</returnCode><message>OK</message></submitFileResponse></Body></Envelope>`))
	}))
	defer server.Close()

	c := testClientAgainst(server.URL)
	err := c.SubmitNotification(context.Background(), validNotification())
	assert.Nil(t, err)

	assert.Equal(t, "labuser", recorded.User)
	assert.Equal(t, "labpass", recorded.Password)
	assert.Equal(t, "5236417647-20201103T081530.xml", recorded.FileName)

	payload, err := base64.StdEncoding.DecodeString(recorded.Data)
	require.Nil(t, err)
	assert.True(t, strings.Contains(string(payload), "<sampleNumber>5236417647</sampleNumber>"))
	assert.True(t, strings.Contains(string(payload), "<version-number>4.0.0</version-number>"))
}

func TestSubmitNotificationNonZeroReturnCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<Envelope><Body><submitFileResponse><returnCode>14</returnCode><message>validation failed</message></submitFileResponse></Body></Envelope>`))
	}))
	defer server.Close()

	err := testClientAgainst(server.URL).SubmitNotification(context.Background(), validNotification())
	require.NotNil(t, err)
	requestErr, ok := err.(*RequestError)
	require.True(t, ok)
	assert.Equal(t, 14, requestErr.Code)
	assert.Contains(t, requestErr.Message, "validation failed")
}

func TestSubmitNotificationHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := testClientAgainst(server.URL).SubmitNotification(context.Background(), validNotification())
	require.NotNil(t, err)
	requestErr, ok := err.(*RequestError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, requestErr.Code)
}

func TestSubmitNotificationValidatesBeforeSending(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	notification := validNotification()
	notification.County = "XX"
	err := testClientAgainst(server.URL).SubmitNotification(context.Background(), notification)
	assert.NotNil(t, err)
	assert.Equal(t, 0, calls, "an invalid document must never leave the process")
}
