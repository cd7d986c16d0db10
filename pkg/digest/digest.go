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

// Package digest detects whether the classified library list changed since
// it was last uploaded.
package digest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/aman-roy/zer0day-precommit/pkg/sbom"
)

// Digest is an opaque fingerprint of a serialized library list.
type Digest string

// Of returns the digest of serialized bytes.
func Of(b []byte) Digest {
	return Digest(base64.StdEncoding.EncodeToString(b))
}

// Encode serializes libraries deterministically: four space indentation,
// fields in declaration order, no HTML escaping and no trailing newline.
func Encode(libs []sbom.Library) ([]byte, error) {
	if libs == nil {
		libs = []sbom.Library{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(libs); err != nil {
		return nil, fmt.Errorf("encoding libraries: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Action is the remote call selected by Decide.
type Action int

const (
	// FullUpload submits the library list for a fresh verdict.
	FullUpload Action = iota
	// Cached asks for the verdict computed for the previous upload.
	Cached
)

func (a Action) String() string {
	if a == Cached {
		return "cached"
	}
	return "full-upload"
}

// Fetcher returns the digest stored remotely for the project.
type Fetcher interface {
	LastDigest(ctx context.Context) (Digest, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (Digest, error)

func (f FetcherFunc) LastDigest(ctx context.Context) (Digest, error) {
	return f(ctx)
}

// Decide compares local with the remote digest. A mismatch only costs an
// upload, so anything but byte equality selects FullUpload.
func Decide(ctx context.Context, local Digest, fetch Fetcher) (Action, error) {
	log := clog.FromContext(ctx)

	remote, err := fetch.LastDigest(ctx)
	if err != nil {
		return FullUpload, fmt.Errorf("fetching last digest: %w", err)
	}
	if local == remote {
		log.Infof("no changes in the SBOM since the last upload")
		return Cached, nil
	}
	log.Infof("detected changes in the SBOM since the last upload")
	return FullUpload, nil
}
