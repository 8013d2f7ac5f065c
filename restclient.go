package covidpipe

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/snpseq/covidpipe/config"

	"github.com/rs/zerolog"

	"github.com/go-resty/resty/v2"
)

// NewRestyClient builds the pooled HTTP session used for idempotent partner
// reads. Transport errors are retried with exponential backoff, capped by
// SearchRetryCount.
func NewRestyClient(ctx context.Context, configuration *config.Configuration) *resty.Client {
	client := resty.New().
		OnBeforeRequest(configureRequest(ctx, configuration)).
		SetTimeout(time.Duration(configuration.ClientTimeoutSeconds) * time.Second).
		SetRetryCount(configuration.SearchRetryCount).
		SetRetryWaitTime(time.Duration(configuration.SearchRetryWaitSeconds) * time.Second).
		SetRetryMaxWaitTime(time.Duration(configuration.SearchRetryWaitSeconds) * 8 * time.Second)

	if configuration.Development {
		client = client.SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	}
	if configuration.Proxy != "" {
		client.SetProxy(configuration.Proxy)
	}

	return client
}

// NewWriteRestyClient builds the session used for POSTs. No automatic
// retries: the UDF guard on the substance is the idempotence key, the caller
// decides per row whether to resubmit.
func NewWriteRestyClient(ctx context.Context, configuration *config.Configuration) *resty.Client {
	client := resty.New().
		OnBeforeRequest(configureRequest(ctx, configuration)).
		SetTimeout(time.Duration(configuration.ClientTimeoutSeconds) * time.Second)

	if configuration.Development {
		client = client.SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: true,
		})
	}
	if configuration.Proxy != "" {
		client.SetProxy(configuration.Proxy)
	}

	return client
}

func configureRequest(ctx context.Context, configuration *config.Configuration) resty.RequestMiddleware {
	return func(client *resty.Client, request *resty.Request) error {
		request.SetContext(ctx)
		if configuration.LogLevel <= zerolog.DebugLevel {
			request.EnableTrace()
		}
		return nil
	}
}
