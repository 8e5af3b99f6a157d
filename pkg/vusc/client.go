package vusc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// JobsByHashEndpoint returns all jobs for a SHA-256 application fingerprint.
	JobsByHashEndpoint = "/api/v1/jobs/hash/"
	// JobsEndpoint accepts new scan jobs.
	JobsEndpoint = "/api/v1/jobs"
	// LibrariesEndpoint maps a class or package name to the libraries owning it.
	LibrariesEndpoint = "/api/v1/knowledgebase/libraries"
)

// ClientConfig holds transport settings for the service client.
type ClientConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
}

// DefaultConfig returns the timeouts used against production scanners, which
// can take minutes to serialize large job results.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		ConnectTimeout: 120 * time.Second,
		ReadTimeout:    180 * time.Second,
		UserAgent:      "vulnstats",
	}
}

// Client talks to the scanning service. Requests are never retried.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	UserAgent  string
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, cfg ClientConfig) *Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
	}
	return &Client{
		HTTPClient: &http.Client{Transport: transport},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		UserAgent:  cfg.UserAgent,
	}
}

// StatusError is returned when the service answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server response error: status=%d body=%s", e.StatusCode, e.Body)
}

// JobsByHash returns the jobs for the application with the given fingerprint,
// in the order reported by the service.
func (c *Client) JobsByHash(ctx context.Context, fingerprint string) ([]Job, error) {
	var jobs []Job
	if err := c.getJSON(ctx, JobsByHashEndpoint+url.PathEscape(fingerprint), &jobs); err != nil {
		return nil, fmt.Errorf("get jobs for %s: %w", fingerprint, err)
	}
	return jobs, nil
}

// LibrariesByClassName returns the libraries that own the given class or
// package name. An empty result means the name is not known library code.
func (c *Client) LibrariesByClassName(ctx context.Context, name string) ([]Library, error) {
	var libs []Library
	endpoint := LibrariesEndpoint + "?" + url.Values{"className": {name}}.Encode()
	if err := c.getJSON(ctx, endpoint, &libs); err != nil {
		return nil, fmt.Errorf("get libraries for %s: %w", name, err)
	}
	return libs, nil
}

// CreateJob uploads an application binary for scanning.
func (c *Client) CreateJob(ctx context.Context, fileName string, r io.Reader) (*Job, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+JobsEndpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("create job for %s: %w", fileName, err)
	}
	defer resp.Body.Close()

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode job for %s: %w", fileName, err)
	}
	return &job, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}

// do sends the request and turns non-200 responses into a *StatusError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	respBuf, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil, fmt.Errorf("failed to read error response from server: %w", err)
	}
	return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBuf))}
}
