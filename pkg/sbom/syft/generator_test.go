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

package syft

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chainguard-dev/clog/slogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-roy/zer0day-precommit/pkg/sbom"
)

func TestNewGenerator(t *testing.T) {
	g := NewGenerator()
	require.Equal(t, 4, g.Parallelism)
}

func TestGenerate_EmptyDirectory(t *testing.T) {
	ctx := slogtest.Context(t)

	tmpDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "sbom.json")

	require.NoError(t, NewGenerator().Generate(ctx, tmpDir, out))

	comps, err := sbom.Load(out)
	require.NoError(t, err)
	assert.Empty(t, comps)
}

func TestGenerate_WithGoModule(t *testing.T) {
	ctx := slogtest.Context(t)

	tmpDir := t.TempDir()
	goModContent := `module example.com/test

go 1.21

require github.com/sirupsen/logrus v1.9.3
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "go.mod"), []byte(goModContent), 0o644))

	goSumContent := `github.com/sirupsen/logrus v1.9.3 h1:dueUQJ1C2q9oE3F7wvmSGAaVtTmUizReu6fjN8uqzbQ=
github.com/sirupsen/logrus v1.9.3/go.mod h1:naHLuLoDiP4jHNo9R0sCBMtWGeIprob74mVsIT4qYEQ=
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "go.sum"), []byte(goSumContent), 0o644))

	require.NoError(t, NewGenerator().Generate(ctx, tmpDir, "sbom-output.json"))

	comps, err := sbom.Load(filepath.Join(tmpDir, "sbom-output.json"))
	require.NoError(t, err)

	var found bool
	for _, c := range comps {
		if c.Name == "github.com/sirupsen/logrus" {
			found = true
			assert.Equal(t, "v1.9.3", c.Version)
			assert.Contains(t, c.PURL, "pkg:golang/github.com/sirupsen/logrus")
		}
	}
	assert.True(t, found, "expected logrus in %v", comps)
}

func TestGenerate_MissingDirectory(t *testing.T) {
	ctx := slogtest.Context(t)

	err := NewGenerator().Generate(ctx, filepath.Join(t.TempDir(), "missing"), "out.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, sbom.ErrGenerate)
}
