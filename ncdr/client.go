package ncdr

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	EnvironmentStage = "stage"
	EnvironmentProd  = "prod"
)

var endpointURLs = map[string]string{
	EnvironmentStage: "https://stage.sminet.se/services/fileupload",
	EnvironmentProd:  "https://sminet.se/services/fileupload",
}

// Client submits one lab export per call. Submissions are never retried
// automatically, the caller's status UDF decides whether a sample is
// resubmitted on a later run.
type Client interface {
	SubmitNotification(ctx context.Context, notification Notification) error
}

type client struct {
	restyClient *resty.Client
	endpointURL string
	username    string
	password    string
	laboratory  Laboratory
	clock       func() time.Time
}

type Config struct {
	Environment string
	Username    string
	Password    string
	Laboratory  Laboratory
}

func NewClient(cfg Config, restyClient *resty.Client, clock func() time.Time) (Client, error) {
	endpointURL, ok := endpointURLs[cfg.Environment]
	if !ok {
		return nil, fmt.Errorf("unknown environment %q, expected %q or %q", cfg.Environment, EnvironmentStage, EnvironmentProd)
	}
	if clock == nil {
		clock = time.Now
	}
	return &client{
		restyClient: restyClient,
		endpointURL: endpointURL,
		username:    cfg.Username,
		password:    cfg.Password,
		laboratory:  cfg.Laboratory,
		clock:       clock,
	}, nil
}

type submitFileEnvelope struct {
	XMLName   xml.Name       `xml:"soapenv:Envelope"`
	EnvNS     string         `xml:"xmlns:soapenv,attr"`
	ServiceNS string         `xml:"xmlns:upl,attr"`
	Body      submitFileBody `xml:"soapenv:Body"`
}

type submitFileBody struct {
	SubmitFile submitFileRequest `xml:"upl:submitFile"`
}

type submitFileRequest struct {
	User     string `xml:"user"`
	Password string `xml:"password"`
	FileName string `xml:"fileName"`
	Data     string `xml:"data"`
}

type submitFileResponseEnvelope struct {
	Body struct {
		Response struct {
			ReturnCode int    `xml:"returnCode"`
			Message    string `xml:"message"`
		} `xml:"submitFileResponse"`
	} `xml:"Body"`
}

func (c *client) SubmitNotification(ctx context.Context, notification Notification) error {
	exportXML, err := BuildExport(c.laboratory, notification, c.clock())
	if err != nil {
		return err
	}

	fileName := fmt.Sprintf("%s-%s.xml", notification.SampleNumber, c.clock().Format("20060102T150405"))
	envelope := submitFileEnvelope{
		EnvNS:     "http://schemas.xmlsoap.org/soap/envelope/",
		ServiceNS: "http://sminet.se/services/fileupload",
		Body: submitFileBody{
			SubmitFile: submitFileRequest{
				User:     c.username,
				Password: c.password,
				FileName: fileName,
				Data:     base64.StdEncoding.EncodeToString(exportXML),
			},
		},
	}
	requestBody, err := xml.Marshal(envelope)
	if err != nil {
		return err
	}

	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/xml; charset=utf-8").
		SetHeader("SOAPAction", "submitFile").
		SetBody(append([]byte(xml.Header), requestBody...)).
		Post(c.endpointURL)
	if err != nil {
		log.Error().Err(err).Str("sampleNumber", notification.SampleNumber).Msg("submit file call failed")
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return &RequestError{Code: resp.StatusCode(), Message: fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode())}
	}

	var response submitFileResponseEnvelope
	if err := xml.Unmarshal(resp.Body(), &response); err != nil {
		return fmt.Errorf("can not unmarshal submit file response: %w", err)
	}
	if response.Body.Response.ReturnCode != 0 {
		return &RequestError{
			Code:    response.Body.Response.ReturnCode,
			Message: response.Body.Response.Message,
		}
	}

	log.Debug().Str("sampleNumber", notification.SampleNumber).Str("fileName", fileName).Msg("lab export submitted")
	return nil
}
