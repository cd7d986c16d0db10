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

// Package precommit runs the full vulnerability gate over a project: SBOM
// generation, open-source classification, change detection against the last
// upload and interpretation of the service verdict.
package precommit

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aman-roy/zer0day-precommit/pkg/classify"
	"github.com/aman-roy/zer0day-precommit/pkg/config"
	"github.com/aman-roy/zer0day-precommit/pkg/digest"
	"github.com/aman-roy/zer0day-precommit/pkg/provenance"
	"github.com/aman-roy/zer0day-precommit/pkg/sbom"
	"github.com/aman-roy/zer0day-precommit/pkg/verdict"
	"github.com/aman-roy/zer0day-precommit/pkg/zer0day"
)

// Service is the remote side of the gate.
type Service interface {
	digest.Fetcher
	GetVulns(ctx context.Context) (string, error)
	UploadAndGetVulns(ctx context.Context, payload []byte) (string, error)
}

// Runner runs the gate for one configuration.
type Runner struct {
	cfg          *config.Configuration
	generator    sbom.Generator
	classifier   *classify.Classifier
	service      Service
	skipGenerate bool
}

// Option configures a Runner.
type Option func(*Runner) error

// WithGenerator sets the SBOM generator. Defaults to sbom.ExecGenerator.
func WithGenerator(g sbom.Generator) Option {
	return func(r *Runner) error {
		r.generator = g
		return nil
	}
}

// WithClassifier sets the classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(r *Runner) error {
		r.classifier = c
		return nil
	}
}

// WithService sets the vulnerability service.
func WithService(s Service) Option {
	return func(r *Runner) error {
		r.service = s
		return nil
	}
}

// WithSkipGenerate uses an existing SBOM file instead of generating one.
func WithSkipGenerate(skip bool) Option {
	return func(r *Runner) error {
		r.skipGenerate = skip
		return nil
	}
}

// New returns a Runner. Unset collaborators are built from cfg; the service
// is only built when cfg carries a token.
func New(cfg *config.Configuration, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("missing configuration")
	}
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if r.generator == nil {
		r.generator = sbom.ExecGenerator{}
	}
	if r.classifier == nil {
		r.classifier = classify.New(classify.WithProvenance(
			provenance.New(provenance.WithGitHubToken(cfg.GitHubToken)),
		))
	}
	if r.service == nil && cfg.Token != "" {
		c, err := zer0day.New(cfg.BaseURL, cfg.Token, cfg.ProjectName)
		if err != nil {
			return nil, fmt.Errorf("creating service client: %w", err)
		}
		r.service = c
	}
	return r, nil
}

// Result is the outcome of a run.
type Result struct {
	Libraries []sbom.Library
	Report    classify.Report
	// Payload is the artifact written to the output file.
	Payload []byte
	Digest  digest.Digest

	// Action and Verdict are only set by Run.
	Action  digest.Action
	Verdict verdict.Verdict
}

// Classify generates and classifies the SBOM and writes the artifact,
// without contacting the vulnerability service.
func (r *Runner) Classify(ctx context.Context) (*Result, error) {
	log := clog.FromContext(ctx)

	if r.skipGenerate {
		log.Infof("using existing SBOM %s", r.cfg.SBOMPath())
	} else {
		if err := r.generate(ctx); err != nil {
			return nil, err
		}
	}

	comps, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer("zer0day").Start(ctx, "classify")
	libs, report, err := r.classifier.Classify(ctx, comps)
	span.End()
	if err != nil {
		return nil, err
	}

	payload, err := digest.Encode(libs)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(r.cfg.OutputPath(), payload, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", r.cfg.OutputPath(), err)
	}
	log.Infof("wrote %d libraries to %s", len(libs), r.cfg.OutputPath())

	return &Result{
		Libraries: libs,
		Report:    report,
		Payload:   payload,
		Digest:    digest.Of(payload),
	}, nil
}

// Run executes the whole gate. A failing verdict is not an error; callers
// inspect Result.Verdict.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.service == nil {
		return nil, config.ErrMissingToken
	}

	ctx, span := otel.Tracer("zer0day").Start(ctx, "Run")
	defer span.End()

	res, err := r.Classify(ctx)
	if err != nil {
		return nil, err
	}

	log := clog.FromContext(ctx)

	action, err := r.decide(ctx, res.Digest)
	if err != nil {
		return nil, err
	}
	res.Action = action
	span.SetAttributes(attribute.String("zer0day.action", action.String()))

	body, err := r.fetchVerdict(ctx, action, res.Payload)
	if err != nil {
		return nil, err
	}
	res.Verdict = verdict.Interpret(body)
	span.SetAttributes(attribute.Int("zer0day.vulnerabilities", res.Verdict.Count))

	if res.Verdict.Passed {
		log.Info("no vulnerabilities found")
	} else {
		log.Warnf("%d vulnerabilities found", res.Verdict.Count)
	}
	return res, nil
}

func (r *Runner) generate(ctx context.Context) error {
	ctx, span := otel.Tracer("zer0day").Start(ctx, "generate")
	defer span.End()

	clog.FromContext(ctx).Infof("generating SBOM for %s", r.cfg.WorkDir)
	if err := r.generator.Generate(ctx, r.cfg.WorkDir, r.cfg.SBOMPath()); err != nil {
		return fmt.Errorf("generating SBOM: %w", err)
	}
	return nil
}

func (r *Runner) load(ctx context.Context) ([]sbom.Component, error) {
	_, span := otel.Tracer("zer0day").Start(ctx, "load")
	defer span.End()

	comps, err := sbom.Load(r.cfg.SBOMPath())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("zer0day.components", len(comps)))
	return comps, nil
}

func (r *Runner) decide(ctx context.Context, local digest.Digest) (digest.Action, error) {
	ctx, span := otel.Tracer("zer0day").Start(ctx, "decide")
	defer span.End()

	action, err := digest.Decide(ctx, local, r.service)
	if err != nil {
		return action, err
	}
	clog.FromContext(ctx).Debugf("selected action %s", action)
	return action, nil
}

func (r *Runner) fetchVerdict(ctx context.Context, action digest.Action, payload []byte) (string, error) {
	ctx, span := otel.Tracer("zer0day").Start(ctx, action.String())
	defer span.End()

	if action == digest.Cached {
		body, err := r.service.GetVulns(ctx)
		if err != nil {
			return "", fmt.Errorf("fetching vulnerabilities: %w", err)
		}
		return body, nil
	}

	body, err := r.service.UploadAndGetVulns(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("uploading libraries: %w", err)
	}
	return body, nil
}
