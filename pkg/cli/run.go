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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/aman-roy/zer0day-precommit/pkg/classify"
	"github.com/aman-roy/zer0day-precommit/pkg/config"
	"github.com/aman-roy/zer0day-precommit/pkg/precommit"
	"github.com/aman-roy/zer0day-precommit/pkg/provenance"
	"github.com/aman-roy/zer0day-precommit/pkg/sbom"
	sbomsyft "github.com/aman-roy/zer0day-precommit/pkg/sbom/syft"
)

const (
	generatorExec    = "exec"
	generatorLibrary = "library"
)

// runOptions are the flags shared by check and classify.
type runOptions struct {
	dir          string
	envFile      string
	baseURL      string
	sbomFile     string
	outputFile   string
	generator    string
	syftBinary   string
	skipGenerate bool
	parallelism  int
	trace        string
}

func (ro *runOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ro.dir, "dir", "", "project directory (default is the current directory)")
	cmd.Flags().StringVar(&ro.envFile, "env-file", "", "file to use for preloaded environment variables")
	cmd.Flags().StringVar(&ro.baseURL, "base-url", "", "vulnerability service URL (default $"+config.EnvBaseURL+" or "+config.DefaultBaseURL+")")
	cmd.Flags().StringVar(&ro.sbomFile, "sbom-file", config.DefaultSBOMFile, "where to write the generated SBOM")
	cmd.Flags().StringVar(&ro.outputFile, "output-file", config.DefaultOutputFile, "where to write the open-source library list")
	cmd.Flags().StringVar(&ro.generator, "generator", generatorExec, "how to generate the SBOM: exec runs the syft binary, library catalogs in-process")
	cmd.Flags().StringVar(&ro.syftBinary, "syft", "syft", "syft binary used by the exec generator")
	cmd.Flags().BoolVar(&ro.skipGenerate, "skip-generate", false, "use an existing SBOM file instead of generating one")
	cmd.Flags().IntVar(&ro.parallelism, "parallelism", classify.DefaultParallelism, "number of concurrent provenance lookups")
	cmd.Flags().StringVar(&ro.trace, "trace", "", "where to write trace output")
}

func (ro *runOptions) config(opts ...config.Option) (*config.Configuration, error) {
	opts = append(opts,
		config.WithWorkDir(ro.dir),
		config.WithBaseURL(ro.baseURL),
		config.WithSBOMFile(ro.sbomFile),
		config.WithOutputFile(ro.outputFile),
	)
	if ro.envFile != "" {
		opts = append(opts, config.WithEnvFile(ro.envFile))
	}
	return config.New(opts...)
}

func (ro *runOptions) runner(cfg *config.Configuration) (*precommit.Runner, error) {
	var gen sbom.Generator
	switch ro.generator {
	case generatorExec:
		gen = sbom.ExecGenerator{Binary: ro.syftBinary}
	case generatorLibrary:
		gen = sbomsyft.NewGenerator()
	default:
		return nil, fmt.Errorf("unknown generator %q, want %s or %s", ro.generator, generatorExec, generatorLibrary)
	}

	return precommit.New(cfg,
		precommit.WithGenerator(gen),
		precommit.WithSkipGenerate(ro.skipGenerate),
		precommit.WithClassifier(classify.New(
			classify.WithParallelism(ro.parallelism),
			classify.WithProvenance(provenance.New(provenance.WithGitHubToken(cfg.GitHubToken))),
		)),
	)
}

// startTracing installs a tracer provider writing to path. The returned
// function flushes it.
func (ro *runOptions) startTracing(ctx context.Context) (func(), error) {
	if ro.trace == "" {
		return func() {}, nil
	}
	w, err := os.Create(ro.trace)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("creating stdout exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	return func() {
		// ctx may already be cancelled; flushing must still happen.
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(os.Stderr, "shutting down trace provider: %v\n", err)
		}
		w.Close()
	}, nil
}

func check() *cobra.Command {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Generate an SBOM and query the vulnerability service",
		Long: `Generate an SBOM for the project, keep the open-source libraries and
ask the vulnerability service about them. Exits non-zero when
vulnerabilities are reported.`,
		Example: `  ZER0DAY_API_TOKEN=... zer0day check`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkCmd(cmd.Context(), cmd.OutOrStdout(), ro)
		},
	}
	ro.addFlags(cmd)
	return cmd
}

func checkCmd(ctx context.Context, out io.Writer, ro *runOptions) error {
	stop, err := ro.startTracing(ctx)
	if err != nil {
		return err
	}
	defer stop()

	cfg, err := ro.config()
	if err != nil {
		return err
	}
	r, err := ro.runner(cfg)
	if err != nil {
		return err
	}

	res, err := r.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Verdict.Body)
	return res.Verdict.Err()
}

func classifyLibs() *cobra.Command {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Write the open-source library list without contacting the vulnerability service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return classifyLibsCmd(cmd.Context(), cmd.OutOrStdout(), ro)
		},
	}
	ro.addFlags(cmd)
	return cmd
}

func classifyLibsCmd(ctx context.Context, out io.Writer, ro *runOptions) error {
	stop, err := ro.startTracing(ctx)
	if err != nil {
		return err
	}
	defer stop()

	cfg, err := ro.config(config.WithOptionalToken())
	if err != nil {
		return err
	}
	r, err := ro.runner(cfg)
	if err != nil {
		return err
	}

	res, err := r.Classify(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Report)
	return nil
}
