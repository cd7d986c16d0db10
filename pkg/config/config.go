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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	EnvToken       = "ZER0DAY_API_TOKEN"
	EnvBaseURL     = "ZER0DAY_BASE_URL"
	EnvGitHubToken = "GITHUB_TOKEN"

	DefaultBaseURL    = "https://api.zer0day.tech"
	DefaultSBOMFile   = "sbom-output.json"
	DefaultOutputFile = "open_source_libraries.json"
)

// ErrMissingToken is returned when no API token can be found.
var ErrMissingToken = fmt.Errorf("%s environment variable not set", EnvToken)

// Configuration is everything a run needs to know about its environment.
type Configuration struct {
	// Token authenticates against the vulnerability service.
	Token string
	// BaseURL is the vulnerability service endpoint.
	BaseURL string
	// GitHubToken is optional and raises the GitHub API rate limit.
	GitHubToken string

	// WorkDir is the absolute project directory.
	WorkDir string
	// ProjectName identifies the project to the service.
	ProjectName string

	SBOMFile   string
	OutputFile string
}

// SBOMPath returns SBOMFile resolved against WorkDir.
func (cfg *Configuration) SBOMPath() string {
	return cfg.resolve(cfg.SBOMFile)
}

// OutputPath returns OutputFile resolved against WorkDir.
func (cfg *Configuration) OutputPath() string {
	return cfg.resolve(cfg.OutputFile)
}

func (cfg *Configuration) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cfg.WorkDir, p)
}

type configOptions struct {
	lookup     func(string) (string, bool)
	envFile    string
	noToken    bool
	baseURL    string
	workDir    string
	sbomFile   string
	outputFile string
}

// Option configures New.
type Option func(*configOptions)

// WithLookup replaces os.LookupEnv.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(options *configOptions) {
		options.lookup = lookup
	}
}

// WithEnvFile reads additional variables from a dotenv file. Variables set in
// the process environment take precedence.
func WithEnvFile(path string) Option {
	return func(options *configOptions) {
		options.envFile = path
	}
}

// WithOptionalToken lets New succeed without an API token, for runs that
// never contact the vulnerability service.
func WithOptionalToken() Option {
	return func(options *configOptions) {
		options.noToken = true
	}
}

// WithBaseURL overrides the service endpoint from the environment.
func WithBaseURL(u string) Option {
	return func(options *configOptions) {
		options.baseURL = u
	}
}

// WithWorkDir sets the project directory. Defaults to the current directory.
func WithWorkDir(dir string) Option {
	return func(options *configOptions) {
		options.workDir = dir
	}
}

func WithSBOMFile(path string) Option {
	return func(options *configOptions) {
		options.sbomFile = path
	}
}

func WithOutputFile(path string) Option {
	return func(options *configOptions) {
		options.outputFile = path
	}
}

// New builds a Configuration from the environment and the given options.
func New(opts ...Option) (*Configuration, error) {
	options := &configOptions{
		lookup:     os.LookupEnv,
		sbomFile:   DefaultSBOMFile,
		outputFile: DefaultOutputFile,
	}
	for _, opt := range opts {
		opt(options)
	}

	var fileEnv map[string]string
	if options.envFile != "" {
		m, err := godotenv.Read(options.envFile)
		if err != nil {
			return nil, fmt.Errorf("loading environment file: %w", err)
		}
		fileEnv = m
	}
	getenv := func(key string) string {
		if v, ok := options.lookup(key); ok && v != "" {
			return v
		}
		return fileEnv[key]
	}

	cfg := &Configuration{
		Token:       getenv(EnvToken),
		BaseURL:     options.baseURL,
		GitHubToken: getenv(EnvGitHubToken),
		SBOMFile:    options.sbomFile,
		OutputFile:  options.outputFile,
	}
	if cfg.Token == "" && !options.noToken {
		return nil, ErrMissingToken
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = getenv(EnvBaseURL)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SBOMFile == "" || cfg.OutputFile == "" {
		return nil, errors.New("SBOM and output file names must not be empty")
	}

	dir := options.workDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	cfg.WorkDir = abs
	cfg.ProjectName = filepath.Base(abs)

	return cfg, nil
}
