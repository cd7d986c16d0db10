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

package classify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chainguard-dev/clog/slogtest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-roy/zer0day-precommit/pkg/license"
	"github.com/aman-roy/zer0day-precommit/pkg/provenance"
	"github.com/aman-roy/zer0day-precommit/pkg/purl"
	"github.com/aman-roy/zer0day-precommit/pkg/sbom"
)

// fakeProvenance answers from a table and records the lookups it served.
type fakeProvenance struct {
	open  map[string]bool
	delay func(purl string) time.Duration

	mu    sync.Mutex
	calls []string
}

func (f *fakeProvenance) Check(ctx context.Context, p string) provenance.Result {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(p)):
		case <-ctx.Done():
			return provenance.Result{Err: ctx.Err()}
		}
	}
	return provenance.Result{OpenSource: f.open[p], Kind: purl.Parse(p).Kind}
}

func TestClassify(t *testing.T) {
	ctx := slogtest.Context(t)

	comps := []sbom.Component{{
		Name: "requests", Version: "2.31.0", PURL: "pkg:pypi/requests@2.31.0",
		Licenses: []string{"MIT"},
	}, {
		Name: "declared-no-purl", Version: "1.0.0",
		Licenses:   []string{"Proprietary", "BSD-3-Clause"},
		References: []string{"https://example.com/declared"},
	}, {
		Name: "Hello-World", Version: "1.0.0", PURL: "pkg:github/octocat/Hello-World@1.0.0",
	}, {
		Name: "Hello-World", Version: "2.0.0", PURL: "pkg:github/octocat/Hello-World@2.0.0",
	}, {
		Name: "serde", Version: "1.0.0", PURL: "pkg:cargo/serde@1.0.0",
		Licenses: []string{"Commercial"},
	}, {
		Name: "internal-tool", Version: "0.1.0",
	}, {
		Name: "internal-declared", Version: "0.1.0", Licenses: []string{"Proprietary-XYZ"},
	}}

	fake := &fakeProvenance{open: map[string]bool{
		"pkg:github/octocat/Hello-World@1.0.0": false,
		"pkg:github/octocat/Hello-World@2.0.0": true,
		"pkg:cargo/serde@1.0.0":                true,
	}}

	libs, report, err := New(WithProvenance(fake)).Classify(ctx, comps)
	require.NoError(t, err)

	want := []sbom.Library{{
		Name: "requests", Version: "2.31.0", License: license.Declared("MIT"), URL: "https://pypi.org/pypi/requests/json",
	}, {
		Name: "declared-no-purl", Version: "1.0.0", License: license.Declared("BSD-3-Clause"), URL: "https://example.com/declared",
	}, {
		Name: "Hello-World", Version: "2.0.0", License: license.Inferred(), URL: "",
	}, {
		Name: "serde", Version: "1.0.0", License: license.Inferred(), URL: "https://crates.io/api/v1/crates/serde",
	}}
	if diff := cmp.Diff(want, libs, cmp.AllowUnexported(license.Determination{})); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}

	assert.ElementsMatch(t, []string{
		"pkg:github/octocat/Hello-World@1.0.0",
		"pkg:github/octocat/Hello-World@2.0.0",
		"pkg:cargo/serde@1.0.0",
	}, fake.calls, "declared and purl-less components must not be looked up")

	assert.Equal(t, 7, report.Total)
	assert.Equal(t, 2, report.Declared)
	assert.Equal(t, 1, report.Inferred[purl.KindSourceHost])
	assert.Equal(t, 1, report.Inferred[purl.KindRegistry])
	assert.Equal(t, 3, report.Rejected)
	assert.Contains(t, report.String(), "2 declared open-source, 2 inferred")
}

func TestClassifyDeclaredLicenseIsVerbatim(t *testing.T) {
	ctx := slogtest.Context(t)

	for _, p := range []string{"", "pkg:pypi/x@1", "pkg:github/acme/secret@1", "garbage"} {
		fake := &fakeProvenance{}
		libs, _, err := New(WithProvenance(fake)).Classify(ctx, []sbom.Component{{
			Name: "x", Version: "1", PURL: p, Licenses: []string{"MIT"},
		}})
		require.NoError(t, err)
		require.Len(t, libs, 1)
		assert.True(t, libs[0].License.IsDeclared())
		assert.Equal(t, "MIT", libs[0].License.String())
		assert.Empty(t, fake.calls)
	}
}

func TestClassifyRejectsUnidentifiable(t *testing.T) {
	ctx := slogtest.Context(t)

	comps := []sbom.Component{
		{Name: "a", Version: "1"},
		{Name: "b", Version: "1", Licenses: []string{"Proprietary-XYZ"}},
		{Name: "c", Version: "1", Licenses: []string{"Apache-2.0"}},
	}
	libs, _, err := New(WithProvenance(&fakeProvenance{})).Classify(ctx, comps)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, l := range libs {
		names[l.Name] = true
	}
	assert.Equal(t, map[string]bool{"c": true}, names)
}

func TestClassifyPreservesOrder(t *testing.T) {
	ctx := slogtest.Context(t)

	const n = 40
	var comps []sbom.Component
	open := map[string]bool{}
	delays := map[string]time.Duration{}
	for i := range n {
		p := fmt.Sprintf("pkg:cargo/crate-%02d@1.0.0", i)
		comps = append(comps, sbom.Component{Name: fmt.Sprintf("crate-%02d", i), Version: "1.0.0", PURL: p})
		open[p] = i%3 != 0
		// Later components finish first.
		delays[p] = time.Duration(n-i) * time.Millisecond
	}

	for _, parallelism := range []int{1, 4, n} {
		t.Run(fmt.Sprintf("parallelism=%d", parallelism), func(t *testing.T) {
			fake := &fakeProvenance{open: open, delay: func(p string) time.Duration { return delays[p] }}
			libs, _, err := New(WithProvenance(fake), WithParallelism(parallelism)).Classify(ctx, comps)
			require.NoError(t, err)

			var want []string
			for i := range n {
				if i%3 != 0 {
					want = append(want, fmt.Sprintf("crate-%02d", i))
				}
			}
			var got []string
			for _, l := range libs {
				got = append(got, l.Name)
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestClassifyURL(t *testing.T) {
	ctx := slogtest.Context(t)

	comps := []sbom.Component{
		{Name: "ref", Version: "1", PURL: "pkg:npm/ref@1", Licenses: []string{"MIT"}, References: []string{"https://github.com/x/ref", "https://other"}},
		{Name: "empty-ref", Version: "1", PURL: "pkg:npm/empty-ref@1", Licenses: []string{"MIT"}, References: []string{""}},
		{Name: "no-ref", Version: "1", PURL: "pkg:npm/no-ref@1", Licenses: []string{"MIT"}},
		{Name: "nothing", Version: "1", Licenses: []string{"MIT"}},
	}
	libs, _, err := New(WithProvenance(&fakeProvenance{})).Classify(ctx, comps)
	require.NoError(t, err)
	require.Len(t, libs, 4)

	assert.Equal(t, "https://github.com/x/ref", libs[0].URL)
	assert.Equal(t, "https://registry.npmjs.org/empty-ref", libs[1].URL)
	assert.Equal(t, "https://registry.npmjs.org/no-ref", libs[2].URL)
	assert.Equal(t, "", libs[3].URL)
}

func TestClassifyEmpty(t *testing.T) {
	ctx := slogtest.Context(t)

	libs, report, err := New(WithProvenance(&fakeProvenance{})).Classify(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, libs)
	assert.Empty(t, libs)
	assert.Equal(t, 0, report.Total)
}

func TestClassifyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(slogtest.Context(t))
	cancel()

	fake := &fakeProvenance{delay: func(string) time.Duration { return time.Minute }}
	_, _, err := New(WithProvenance(fake)).Classify(ctx, []sbom.Component{{Name: "x", PURL: "pkg:cargo/x@1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyWithLexicon(t *testing.T) {
	ctx := slogtest.Context(t)

	comps := []sbom.Component{{Name: "x", Version: "1", Licenses: []string{"WTFPL"}}}

	libs, _, err := New(WithProvenance(&fakeProvenance{})).Classify(ctx, comps)
	require.NoError(t, err)
	assert.Empty(t, libs)

	libs, _, err = New(WithProvenance(&fakeProvenance{}), WithLexicon(license.NewLexicon("WTFPL"))).Classify(ctx, comps)
	require.NoError(t, err)
	require.Len(t, libs, 1)
	assert.Equal(t, "WTFPL", libs[0].License.ID())
}
