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

// Package license answers whether a free-text license identifier names a
// well known open-source license family.
package license

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"
)

// LikelyOpenSource is recorded in place of a license identifier when a
// component was judged open-source from provenance rather than from a
// declared license.
const LikelyOpenSource = "LIKELY_OPENSOURCE"

// DefaultTokens are the license family fragments that mark a license as
// open-source. Matching is by case-insensitive substring, so "Apache-2.0 OR
// MIT" and "GPL-3.0-only" both match.
var DefaultTokens = []string{
	"MIT", "Apache", "GPL", "BSD", "LGPL", "Mozilla",
	"Eclipse", "Creative Commons", "ISC", "Artistic",
	"Boost", "zlib", "Public Domain", "Unlicense",
}

// Lexicon is a set of license family fragments.
type Lexicon struct {
	tokens []string
}

// Default is the lexicon built from DefaultTokens.
var Default = NewLexicon(DefaultTokens...)

// NewLexicon returns a lexicon matching any of the given fragments. Empty
// fragments are ignored, they would otherwise match every input.
func NewLexicon(tokens ...string) *Lexicon {
	l := &Lexicon{tokens: make([]string, 0, len(tokens))}
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			l.tokens = append(l.tokens, strings.ToLower(t))
		}
	}
	return l
}

// With returns a copy of the lexicon extended with more fragments.
func (l *Lexicon) With(tokens ...string) *Lexicon {
	out := NewLexicon(tokens...)
	out.tokens = append(append([]string{}, l.tokens...), out.tokens...)
	return out
}

// IsOpenSource reports whether any fragment occurs in text.
func (l *Lexicon) IsOpenSource(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, t := range l.tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// IsOpenSource reports whether text names an open-source license according
// to the Default lexicon.
func IsOpenSource(text string) bool {
	return Default.IsOpenSource(text)
}

// Validate returns the identifiers that are not valid SPDX license
// expressions. It is only used for diagnostics.
func Validate(ids ...string) []string {
	var nonEmpty []string
	for _, id := range ids {
		if id != "" {
			nonEmpty = append(nonEmpty, id)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	if valid, bad := spdxexp.ValidateLicenses(nonEmpty); !valid {
		return bad
	}
	return nil
}

// Determination records how a component's license was established: either
// declared in the SBOM under a recognized identifier, or inferred from
// provenance.
type Determination struct {
	declared string
}

// Declared returns a determination backed by a declared identifier.
func Declared(id string) Determination {
	return Determination{declared: id}
}

// Inferred returns a determination backed only by provenance.
func Inferred() Determination {
	return Determination{}
}

// IsDeclared reports whether the determination carries a declared identifier.
func (d Determination) IsDeclared() bool {
	return d.declared != ""
}

// ID returns the declared identifier, or "" for an inferred determination.
func (d Determination) ID() string {
	return d.declared
}

// String returns the declared identifier or LikelyOpenSource.
func (d Determination) String() string {
	if d.declared == "" {
		return LikelyOpenSource
	}
	return d.declared
}

func (d Determination) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d.String()); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (d *Determination) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == LikelyOpenSource {
		s = ""
	}
	d.declared = s
	return nil
}
