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

package sbom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/chainguard-dev/clog"

	"github.com/aman-roy/zer0day-precommit/internal/logwriter"
)

// ErrGenerate wraps every failure to produce an SBOM.
var ErrGenerate = errors.New("generating SBOM")

// Generator writes a CycloneDX JSON SBOM of the project in dir to out.
type Generator interface {
	Generate(ctx context.Context, dir, out string) error
}

// ExecGenerator runs an external syft binary.
type ExecGenerator struct {
	// Binary defaults to "syft", looked up in PATH.
	Binary string

	// Stdout and Stderr default to the context logger at debug and info
	// level.
	Stdout io.Writer
	Stderr io.Writer
}

func (g ExecGenerator) binary() string {
	if g.Binary == "" {
		return "syft"
	}
	return g.Binary
}

// Args returns the arguments passed to the binary.
func (g ExecGenerator) Args(out string) []string {
	return []string{".", "-o", "cyclonedx-json", "--file=" + out}
}

func (g ExecGenerator) Generate(ctx context.Context, dir, out string) error {
	log := clog.FromContext(ctx)
	bin := g.binary()
	if !filepath.IsAbs(out) {
		out = filepath.Join(dir, out)
	}
	log.Infof("generating SBOM using %s and saving to %s", bin, out)

	cmd := exec.CommandContext(ctx, bin, g.Args(out)...) // #nosec G204 - binary is operator configured
	cmd.Dir = dir
	cmd.Stdout = g.Stdout
	cmd.Stderr = g.Stderr
	if cmd.Stdout == nil {
		w := logwriter.New(log.Debugf, bin+": ")
		defer w.Close()
		cmd.Stdout = w
	}
	if cmd.Stderr == nil {
		w := logwriter.New(log.Infof, bin+": ")
		defer w.Close()
		cmd.Stderr = w
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: running %s: %w", ErrGenerate, bin, err)
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("%w: %s did not write %s: %w", ErrGenerate, bin, out, err)
	}

	log.Infof("SBOM generated successfully")
	return nil
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, dir, out string) error

func (f GeneratorFunc) Generate(ctx context.Context, dir, out string) error {
	return f(ctx, dir, out)
}
