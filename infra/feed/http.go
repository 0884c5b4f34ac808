package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kilianp07/outagewatch/auth"
	"github.com/kilianp07/outagewatch/core/schedule"
)

// HTTPConfig configures an HTTPFeed.
type HTTPConfig struct {
	URL      string            `json:"url"`
	Token    string            `json:"token"`
	Headers  map[string]string `json:"headers"`
	Timeout  time.Duration     `json:"timeout"`
	Retries  int               `json:"retries"`
	Format   string            `json:"format"`
	RetryMax time.Duration     `json:"retry_max_wait"`
	// OAuth2 enables the client credentials grant instead of a static token.
	OAuth2 auth.Conf `json:"oauth2"`
}

// HTTPFeed downloads the schedule document from a publisher endpoint.
type HTTPFeed struct {
	client *resty.Client
	url    string
	format Format
	cred   *auth.ClientCred
}

func NewHTTPFeed(cfg HTTPConfig) (*HTTPFeed, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("http feed: url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(cfg.RetryMax).
		SetHeader("Accept", "application/json, application/yaml").
		SetHeaders(cfg.Headers)
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500
	})
	f := &HTTPFeed{client: client, url: cfg.URL, format: Format(cfg.Format)}
	if cfg.OAuth2.Enabled() {
		f.cred = auth.NewClientCred(cfg.OAuth2)
		client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			tok, err := f.cred.GetToken(r.Context())
			if err != nil {
				return err
			}
			r.SetAuthToken(tok)
			return nil
		})
	}
	return f, nil
}

func (f *HTTPFeed) Fetch(ctx context.Context) (schedule.FeedData, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err == nil && resp.StatusCode() == http.StatusUnauthorized && f.cred != nil {
		// token revoked before expiry
		if _, err = f.cred.ForceRefresh(ctx); err == nil {
			resp, err = f.client.R().SetContext(ctx).Get(f.url)
		}
	}
	if err != nil {
		return schedule.FeedData{}, fmt.Errorf("get %s: %w", f.url, err)
	}
	if resp.IsError() {
		return schedule.FeedData{}, fmt.Errorf("get %s: unexpected status %s", f.url, resp.Status())
	}
	format := f.format
	if format == FormatAuto {
		format = FormatFromName(resp.Header().Get("Content-Type"))
	}
	return Decode(resp.Body(), format)
}
