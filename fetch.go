package htmlentry

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/entrykit/htmlentry/internal/config"
	"github.com/entrykit/htmlentry/internal/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Fetcher is the capability used to retrieve remote resources. The default
// implementation is a resty client; callers may substitute their own, for
// example to add authentication or serve from fixtures.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, http.Header, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, location string) ([]byte, http.Header, error)

// Fetch implements Fetcher.
func (f FetchFunc) Fetch(ctx context.Context, location string) ([]byte, http.Header, error) {
	return f(ctx, location)
}

// Client is the default Fetcher: resty over a retrying transport, with a
// rate limiter and circuit breaker guarding external hosts.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewClient creates a production-ready fetch client from configuration.
func NewClient(cfg *config.Config) *Client {
	if cfg == nil {
		cfg = config.Default()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.HTTP.RetryMax
	retryClient.RetryWaitMin = cfg.HTTP.RetryWaitMin
	retryClient.RetryWaitMax = cfg.HTTP.RetryWaitMax
	retryClient.Logger = nil

	restyClient := resty.New().
		SetTimeout(cfg.HTTP.Timeout).
		SetHeader("User-Agent", cfg.HTTP.UserAgent).
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.HTTP.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.HTTP.RateLimitRPS), int(cfg.HTTP.RateLimitRPS)+1)
	}

	breaker := resilience.New("htmlentry-fetch", resilience.Settings{
		MaxRequests: 5,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
	}
}

// Fetch retrieves location, returning the raw body bytes and headers.
// Non-2xx/3xx statuses are FetchErrors.
func (c *Client) Fetch(ctx context.Context, location string) ([]byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, &FetchError{URL: location, Err: err}
	}

	var resp *resty.Response
	err := c.breaker.Do(func() error {
		var err error
		resp, err = c.resty.R().SetContext(ctx).Get(location)
		return err
	})
	if err != nil {
		return nil, nil, &FetchError{URL: location, Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status >= 400 {
		return nil, nil, &FetchError{URL: location, Status: status}
	}

	return resp.Body(), resp.Header(), nil
}

// decodeText converts a fetched body to UTF-8 text. With auto decoding on,
// the charset comes from the Content-Type header when present, otherwise
// from content sniffing; conversion failures fall back to the raw bytes.
func decodeText(body []byte, hdr http.Header, auto bool) string {
	if !auto || len(body) == 0 || isUTF8Label(headerCharset(hdr)) {
		return string(body)
	}

	label := headerCharset(hdr)
	if label == "" {
		label = sniffCharset(body)
	}
	if label == "" || isUTF8Label(label) {
		return string(body)
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// headerCharset extracts the charset parameter from a Content-Type header.
func headerCharset(hdr http.Header) string {
	if hdr == nil {
		return ""
	}
	ct := hdr.Get("Content-Type")
	if ct == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}

// sniffCharset detects the charset of raw bytes.
func sniffCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}

func isUTF8Label(label string) bool {
	return label == "utf-8" || label == "utf8"
}
