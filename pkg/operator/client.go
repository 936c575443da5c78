package operator

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

const (
	DefaultURL     = "https://operatorcheck.shawnketabchi.workers.dev/"
	DefaultTimeout = 30 * time.Second
	userAgent      = "opcheck/1.0"
)

// ClientOptions configures a remote Client.
type ClientOptions struct {
	URL     string
	Timeout time.Duration
	// Proxy routes requests through an HTTP proxy (e.g. http://127.0.0.1:8080).
	Proxy string
}

// Client talks to the remote operator-lookup endpoint.
type Client struct {
	url  string
	http *retryablehttp.Client
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 0
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.CheckRetry = noRetry
	// Hand the last response back untouched so status codes can be mapped.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		retryClient.HTTPClient.Transport = &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{url: opts.URL, http: retryClient}, nil
}

// noRetry sends every request exactly once; failures go straight back to
// the caller.
func noRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	return false, nil
}

// FetchOperators sends one lookup request carrying numbers and decodes the
// endpoint's [{number, name}] answer.
func (c *Client) FetchOperators(ctx context.Context, numbers []string) ([]Entry, error) {
	payload, err := json.Marshal(numbers)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return parseEntries(body)
}

func parseEntries(body []byte) ([]Entry, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON in lookup response")
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("unexpected lookup response: expected a JSON array, got %s", res.Type)
	}

	entries := make([]Entry, 0, len(res.Array()))
	res.ForEach(func(_, value gjson.Result) bool {
		entries = append(entries, Entry{
			Number: value.Get("number").String(),
			Name:   value.Get("name").String(),
		})
		return true
	})
	return entries, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
