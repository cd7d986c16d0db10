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

package license

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOpenSource(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"MIT", true},
		{"mit", true},
		{"Apache-2.0", true},
		{"apache-2.0 OR mit", true},
		{"GPL-3.0-only", true},
		{"BSD-3-Clause", true},
		{"MPL-2.0", false},
		{"Mozilla Public License 2.0", true},
		{"EPL eclipse public license", true},
		{"Creative Commons Attribution 4.0", true},
		{"ISC", true},
		{"Artistic-2.0", true},
		{"BSL-1.0 (Boost)", true},
		{"Zlib", true},
		{"public domain", true},
		{"The Unlicense", true},
		{"Proprietary-XYZ", false},
		{"Commercial", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOpenSource(tt.text))
		})
	}
}

func TestIsOpenSourceAnyCase(t *testing.T) {
	for _, tok := range DefaultTokens {
		for _, s := range []string{tok, strings.ToUpper(tok), strings.ToLower(tok), "prefix " + tok + " suffix"} {
			assert.True(t, IsOpenSource(s), "expected %q to match", s)
		}
	}
}

func TestLexiconWith(t *testing.T) {
	l := NewLexicon("MIT", "", "  ")
	assert.False(t, l.IsOpenSource("anything"), "blank tokens must not match everything")
	assert.False(t, l.IsOpenSource("WTFPL"))

	ext := l.With("WTFPL")
	assert.True(t, ext.IsOpenSource("WTFPL"))
	assert.True(t, ext.IsOpenSource("MIT"))
	assert.False(t, l.IsOpenSource("WTFPL"), "With must not modify the receiver")
}

func TestValidate(t *testing.T) {
	assert.Empty(t, Validate("MIT", "Apache-2.0", ""))
	assert.Equal(t, []string{"not a license"}, Validate("MIT", "not a license"))
	assert.Nil(t, Validate())
}

func TestDetermination(t *testing.T) {
	d := Declared("MIT")
	assert.True(t, d.IsDeclared())
	assert.Equal(t, "MIT", d.ID())
	assert.Equal(t, "MIT", d.String())

	i := Inferred()
	assert.False(t, i.IsDeclared())
	assert.Equal(t, "", i.ID())
	assert.Equal(t, LikelyOpenSource, i.String())

	b, err := json.Marshal([]Determination{d, i})
	require.NoError(t, err)
	assert.Equal(t, `["MIT","LIKELY_OPENSOURCE"]`, string(b))

	var back []Determination
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []Determination{d, i}, back)
}
