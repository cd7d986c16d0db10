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

// Package syft generates CycloneDX SBOMs in-process with the Syft library,
// for hosts where the syft binary is not installed.
package syft

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anchore/syft/syft"
	"github.com/anchore/syft/syft/format/cyclonedxjson"
	"github.com/anchore/syft/syft/source/directorysource"
	"github.com/chainguard-dev/clog"

	"github.com/aman-roy/zer0day-precommit/pkg/sbom"
)

// Generator catalogs a directory with Syft and writes CycloneDX JSON.
type Generator struct {
	// Parallelism is the number of catalogers run concurrently.
	Parallelism int
}

var _ sbom.Generator = Generator{}

// NewGenerator returns a Generator with default settings.
func NewGenerator() Generator {
	return Generator{Parallelism: 4}
}

// Generate scans dir and writes the document to out. A relative out is
// resolved against dir.
func (g Generator) Generate(ctx context.Context, dir, out string) error {
	log := clog.FromContext(ctx)
	if !filepath.IsAbs(out) {
		out = filepath.Join(dir, out)
	}
	log.Infof("generating SBOM with the Syft library for %s and saving to %s", dir, out)

	src, err := directorysource.NewFromPath(dir)
	if err != nil {
		return fmt.Errorf("%w: creating Syft source from path %s: %w", sbom.ErrGenerate, dir, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warnf("failed to close Syft source: %v", err)
		}
	}()

	parallelism := g.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	cfg := syft.DefaultCreateSBOMConfig().WithParallelism(parallelism)

	s, err := syft.CreateSBOM(ctx, src, cfg)
	if err != nil {
		return fmt.Errorf("%w: creating SBOM with Syft: %w", sbom.ErrGenerate, err)
	}
	log.Infof("Syft scan found %d packages", s.Artifacts.Packages.PackageCount())

	enc, err := cyclonedxjson.NewFormatEncoderWithConfig(cyclonedxjson.DefaultEncoderConfig())
	if err != nil {
		return fmt.Errorf("%w: creating CycloneDX encoder: %w", sbom.ErrGenerate, err)
	}

	f, err := os.Create(out) // #nosec G304 - output path comes from configuration
	if err != nil {
		return fmt.Errorf("%w: %w", sbom.ErrGenerate, err)
	}
	if err := enc.Encode(f, *s); err != nil {
		f.Close()
		return fmt.Errorf("%w: encoding CycloneDX: %w", sbom.ErrGenerate, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", sbom.ErrGenerate, err)
	}
	return nil
}
