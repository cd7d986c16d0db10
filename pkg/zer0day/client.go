// Copyright 2025 Chainguard, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package zer0day is a client for the zer0day vulnerability service.
package zer0day

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/chainguard-dev/clog"

	rlhttp "github.com/aman-roy/zer0day-precommit/pkg/http"
	"github.com/aman-roy/zer0day-precommit/pkg/digest"
)

// DefaultBaseURL is the public service endpoint.
const DefaultBaseURL = "https://api.zer0day.tech"

// ErrNoToken is returned by New without an API token.
var ErrNoToken = errors.New("API token not set")

// StatusError is returned for any response other than 200.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error hitting endpoint %s %s: %d", e.Method, e.URL, e.StatusCode)
}

// Client talks to the service on behalf of one project.
type Client struct {
	baseURL   string
	token     string
	project   string
	userAgent string
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// New returns a client for project. An empty baseURL means DefaultBaseURL.
func New(baseURL, token, project string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if project == "" {
		return nil, errors.New("project name not set")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		project: project,
		http:    &http.Client{Timeout: rlhttp.DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Project returns the project the client reports for.
func (c *Client) Project() string {
	return c.project
}

// LastDigest returns the digest of the previous upload.
func (c *Client) LastDigest(ctx context.Context) (digest.Digest, error) {
	body, err := c.call(ctx, http.MethodGet, "last-digest", nil)
	if err != nil {
		return "", err
	}
	return digest.Digest(body), nil
}

// GetVulns returns the verdict computed for the previous upload.
func (c *Client) GetVulns(ctx context.Context) (string, error) {
	return c.call(ctx, http.MethodGet, "get-vulns", nil)
}

// UploadAndGetVulns uploads the serialized library list and returns a fresh
// verdict.
func (c *Client) UploadAndGetVulns(ctx context.Context, payload []byte) (string, error) {
	return c.call(ctx, http.MethodPost, "upload-and-get-vulns", payload)
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload []byte) (string, error) {
	u := fmt.Sprintf("%s/%s/%s", c.baseURL, endpoint, url.PathEscape(c.project))
	clog.FromContext(ctx).Debugf("%s %s", method, u)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return "", fmt.Errorf("creating request for %s: %w", u, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Method: method, URL: u, StatusCode: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response from %s: %w", u, err)
	}
	return strings.TrimSpace(string(b)), nil
}
