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

// Package provenance decides whether an undeclared component is likely
// open-source, from its source repository visibility or its public registry
// listing.
//
// Every lookup fails closed: an error, unexpected status or unknown schema
// means "not open-source".
package provenance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v54/github"
	"golang.org/x/time/rate"

	rlhttp "github.com/aman-roy/zer0day-precommit/pkg/http"
	"github.com/aman-roy/zer0day-precommit/pkg/license"
	"github.com/aman-roy/zer0day-precommit/pkg/purl"
)

// ErrUnsupported is reported for package URLs with no lookup strategy.
var ErrUnsupported = errors.New("unsupported package URL")

// Result is the outcome of a provenance lookup.
type Result struct {
	// OpenSource is true only when the lookup produced positive evidence.
	OpenSource bool
	// Kind is the strategy that was used.
	Kind purl.Kind
	// Err is the reason a lookup produced no evidence, if any.
	Err error
}

// Checker performs provenance lookups.
type Checker struct {
	github   *github.Client
	registry *rlhttp.RLHTTPClient
	lexicon  *license.Lexicon
}

// Option configures a Checker.
type Option func(*Checker)

// WithGitHubClient sets the client used for source host lookups.
func WithGitHubClient(c *github.Client) Option {
	return func(ch *Checker) {
		ch.github = c
	}
}

// WithGitHubToken authenticates source host lookups, which raises the
// GitHub API rate limit. An empty token leaves lookups anonymous.
func WithGitHubToken(token string) Option {
	return func(ch *Checker) {
		ch.github = newGitHubClient(token)
	}
}

// WithRegistryClient sets the client used for registry metadata lookups.
func WithRegistryClient(c *rlhttp.RLHTTPClient) Option {
	return func(ch *Checker) {
		ch.registry = c
	}
}

// WithLexicon sets the lexicon applied to registry license fields.
func WithLexicon(l *license.Lexicon) Option {
	return func(ch *Checker) {
		ch.lexicon = l
	}
}

// New returns a Checker. Without options it talks to the public GitHub API
// anonymously and rate limits registry requests to 10 per second.
func New(opts ...Option) *Checker {
	ch := &Checker{}
	for _, opt := range opts {
		opt(ch)
	}
	if ch.github == nil {
		ch.github = newGitHubClient("")
	}
	if ch.registry == nil {
		ch.registry = rlhttp.NewClient(rate.NewLimiter(rate.Every(100*time.Millisecond), 5))
	}
	if ch.lexicon == nil {
		ch.lexicon = license.Default
	}
	return ch
}

func newGitHubClient(token string) *github.Client {
	return github.NewClient(&http.Client{
		Timeout:   rlhttp.DefaultTimeout,
		Transport: rlhttp.BearerTransport{Token: token},
	})
}

// SetGitHubBaseURL points source host lookups at a different API root, such
// as a GitHub Enterprise server or a test server.
func (ch *Checker) SetGitHubBaseURL(base string) error {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parsing GitHub base URL: %w", err)
	}
	ch.github.BaseURL = u
	return nil
}

// IsLikelyOpenSource reports whether the package identified by p is open-source
// according to its source host or registry.
func (ch *Checker) IsLikelyOpenSource(ctx context.Context, p string) bool {
	return ch.Check(ctx, p).OpenSource
}

// Check resolves p and performs the lookup for its kind.
func (ch *Checker) Check(ctx context.Context, p string) Result {
	log := clog.FromContext(ctx)

	d := purl.Parse(p)
	res := Result{Kind: d.Kind}
	switch d.Kind {
	case purl.KindSourceHost:
		res.OpenSource, res.Err = ch.checkRepository(ctx, d)
	case purl.KindRegistry:
		res.OpenSource, res.Err = ch.checkRegistry(ctx, d.MetadataURL())
	default:
		res.Err = ErrUnsupported
	}

	if res.Err != nil {
		log.Debugf("provenance lookup for %s (%s) failed: %v", p, res.Kind, res.Err)
	} else {
		log.Debugf("provenance lookup for %s (%s): open-source=%t", p, res.Kind, res.OpenSource)
	}
	return res
}

// checkRepository is true only if the repository exists and explicitly is
// not private.
func (ch *Checker) checkRepository(ctx context.Context, d purl.Descriptor) (bool, error) {
	owner, name, _ := d.Repository()
	repo, _, err := ch.github.Repositories.Get(ctx, owner, name)
	if err != nil {
		return false, fmt.Errorf("getting repository %s/%s: %w", owner, name, err)
	}
	if repo.Private == nil {
		return false, fmt.Errorf("repository %s/%s has no visibility flag", owner, name)
	}
	return !repo.GetPrivate(), nil
}

func (ch *Checker) checkRegistry(ctx context.Context, endpoint string) (bool, error) {
	body, err := ch.registry.GetBody(ctx, endpoint)
	if err != nil {
		return false, err
	}
	return inspect(endpoint, body, ch.lexicon)
}
