// Package feed fetches junction sections from the Traffic England network API.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"junctionflow/config"
)

// Response maps a junction identifier to its undecoded detail object. Details
// are decoded one at a time by the extractor so that a single malformed
// junction does not fail the whole feed.
type Response map[string]json.RawMessage

var errBodyTooLarge = errors.New("response body exceeds size limit")

// NetworkError reports a feed request that could not complete: transport
// failure, timeout, oversized body or a non-2xx status.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("feed request to %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("feed request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports a feed body that is not a JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("feed body is not a valid junction mapping: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type Client struct {
	endpoint     string
	road         string
	userAgent    string
	maxBodyBytes int64
	http         *http.Client
}

func NewClient(cfg config.FeedConfig) *Client {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 * 1024 * 1024
	}
	return &Client{
		endpoint:     cfg.URL,
		road:         cfg.Road,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: maxBody,
		http:         &http.Client{Timeout: cfg.Timeout},
	}
}

// RequestURL returns the endpoint with the road query parameter applied.
func (c *Client) RequestURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("roadName", c.road)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch performs exactly one GET against the feed. There is no retry.
func (c *Client) Fetch(ctx context.Context) (Response, error) {
	target, err := c.RequestURL()
	if err != nil {
		return nil, &NetworkError{URL: c.endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: target, StatusCode: resp.StatusCode}
	}

	// Read one byte past the limit so an exactly-full body is still accepted.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, &NetworkError{URL: target, Err: errBodyTooLarge}
	}

	return Parse(body)
}

// Parse decodes a feed body into a Response.
func Parse(body []byte) (Response, error) {
	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ParseError{Err: err}
	}
	if out == nil {
		return nil, &ParseError{Err: errors.New("top-level value is null")}
	}
	return out, nil
}
