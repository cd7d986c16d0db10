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

// Package classify selects the open-source subset of SBOM components.
package classify

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/aman-roy/zer0day-precommit/pkg/license"
	"github.com/aman-roy/zer0day-precommit/pkg/provenance"
	"github.com/aman-roy/zer0day-precommit/pkg/purl"
	"github.com/aman-roy/zer0day-precommit/pkg/sbom"
)

// DefaultParallelism is the number of concurrent provenance lookups.
const DefaultParallelism = 8

// Provenance looks up open-source evidence for a package URL. Lookups must
// not fail; a Result without OpenSource is a rejection.
type Provenance interface {
	Check(ctx context.Context, purl string) provenance.Result
}

// Classifier classifies SBOM components.
type Classifier struct {
	provenance  Provenance
	lexicon     *license.Lexicon
	parallelism int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithProvenance sets the provenance lookup used for components without a
// recognized declared license.
func WithProvenance(p Provenance) Option {
	return func(c *Classifier) {
		c.provenance = p
	}
}

// WithLexicon sets the lexicon applied to declared licenses.
func WithLexicon(l *license.Lexicon) Option {
	return func(c *Classifier) {
		c.lexicon = l
	}
}

// WithParallelism bounds concurrent provenance lookups. Values below 1 mean
// sequential lookups.
func WithParallelism(n int) Option {
	return func(c *Classifier) {
		c.parallelism = n
	}
}

// New returns a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{parallelism: DefaultParallelism}
	for _, opt := range opts {
		opt(c)
	}
	if c.lexicon == nil {
		c.lexicon = license.Default
	}
	if c.provenance == nil {
		c.provenance = provenance.New(provenance.WithLexicon(c.lexicon))
	}
	if c.parallelism < 1 {
		c.parallelism = 1
	}
	return c
}

// Report counts how components were classified.
type Report struct {
	Total    int
	Declared int
	// Inferred counts inferred acceptances per lookup strategy.
	Inferred map[purl.Kind]int
	Rejected int
}

func (r Report) String() string {
	inferred := 0
	for _, n := range r.Inferred {
		inferred += n
	}
	return fmt.Sprintf("%d components: %d declared open-source, %d inferred (%d source-host, %d registry), %d rejected",
		r.Total, r.Declared, inferred, r.Inferred[purl.KindSourceHost], r.Inferred[purl.KindRegistry], r.Rejected)
}

type decision struct {
	declared string
	result   provenance.Result
}

func (d decision) accepted() bool {
	return d.declared != "" || d.result.OpenSource
}

// Classify returns the open-source components in SBOM order, together with
// a summary. A component is accepted when one of its declared licenses is
// recognized, or else when provenance finds its package URL open-source.
//
// The only error is the cancellation of ctx.
func (c *Classifier) Classify(ctx context.Context, comps []sbom.Component) ([]sbom.Library, Report, error) {
	log := clog.FromContext(ctx)

	decisions := make([]decision, len(comps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	for i, comp := range comps {
		if id := c.declaredLicense(ctx, comp); id != "" {
			decisions[i].declared = id
			continue
		}
		if comp.PURL == "" {
			continue
		}
		g.Go(func() error {
			// Each goroutine owns decisions[i], so no locking is needed.
			decisions[i].result = c.provenance.Check(gctx, comp.PURL)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, Report{}, fmt.Errorf("classifying components: %w", err)
	}

	report := Report{Total: len(comps), Inferred: map[purl.Kind]int{}}
	libs := make([]sbom.Library, 0, len(comps))
	for i, comp := range comps {
		d := decisions[i]
		if !d.accepted() {
			report.Rejected++
			continue
		}

		lib := sbom.Library{
			Name:    comp.Name,
			Version: comp.Version,
			URL:     comp.Reference(),
		}
		if d.declared != "" {
			lib.License = license.Declared(d.declared)
			report.Declared++
		} else {
			lib.License = license.Inferred()
			report.Inferred[d.result.Kind]++
		}
		if lib.URL == "" {
			lib.URL = purl.MetadataURL(comp.PURL)
		}
		libs = append(libs, lib)
	}

	log.Infof("classified %s", report)
	return libs, report, nil
}

// declaredLicense returns the first declared license the lexicon recognizes.
func (c *Classifier) declaredLicense(ctx context.Context, comp sbom.Component) string {
	for _, id := range comp.Licenses {
		if c.lexicon.IsOpenSource(id) {
			if bad := license.Validate(id); len(bad) > 0 {
				clog.FromContext(ctx).Debugf("%s@%s: declared license %q is not a valid SPDX expression", comp.Name, comp.Version, id)
			}
			return id
		}
	}
	return ""
}
