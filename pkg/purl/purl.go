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

// Package purl maps package URLs onto the public metadata endpoint of the
// registry or source host that publishes them.
package purl

import (
	"fmt"
	"net/url"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// Kind is the resolution strategy for a package URL.
type Kind int

const (
	// KindUnsupported covers malformed package URLs and ecosystems without a
	// known metadata endpoint.
	KindUnsupported Kind = iota
	// KindRegistry is a package published to a registry index.
	KindRegistry
	// KindSourceHost is a repository on a source hosting service.
	KindSourceHost
)

func (k Kind) String() string {
	switch k {
	case KindRegistry:
		return "registry"
	case KindSourceHost:
		return "source-host"
	default:
		return "unsupported"
	}
}

type ecosystem struct {
	kind Kind
	// twoPart ecosystems identify a package by namespace and name, and are
	// unresolvable without both.
	twoPart  bool
	endpoint func(namespace, name string) string
}

var ecosystems = map[string]ecosystem{
	packageurl.TypePyPi: {
		kind: KindRegistry,
		endpoint: func(ns, name string) string {
			return fmt.Sprintf("https://pypi.org/pypi/%s/json", join(ns, name))
		},
	},
	packageurl.TypeNPM: {
		kind: KindRegistry,
		endpoint: func(ns, name string) string {
			return "https://registry.npmjs.org/" + url.PathEscape(join(ns, name))
		},
	},
	packageurl.TypeMaven: {
		kind:    KindRegistry,
		twoPart: true,
		endpoint: func(group, artifact string) string {
			return fmt.Sprintf("https://search.maven.org/solrsearch/select?q=g:%s+AND+a:%s&rows=1&wt=json", group, artifact)
		},
	},
	packageurl.TypeNuget: {
		kind: KindRegistry,
		endpoint: func(ns, name string) string {
			return fmt.Sprintf("https://api.nuget.org/v3/registration5-semver1/%s/index.json", strings.ToLower(join(ns, name)))
		},
	},
	packageurl.TypeCargo: {
		kind: KindRegistry,
		endpoint: func(ns, name string) string {
			return "https://crates.io/api/v1/crates/" + join(ns, name)
		},
	},
	packageurl.TypeComposer: {
		kind:    KindRegistry,
		twoPart: true,
		endpoint: func(vendor, pkg string) string {
			return fmt.Sprintf("https://packagist.org/packages/%s/%s.json", vendor, pkg)
		},
	},
	packageurl.TypeGolang: {
		kind: KindRegistry,
		endpoint: func(ns, name string) string {
			return fmt.Sprintf("https://pkg.go.dev/%s?tab=licenses", join(ns, name))
		},
	},
	packageurl.TypeGithub: {
		kind:    KindSourceHost,
		twoPart: true,
	},
}

// Descriptor is a package URL resolved to its ecosystem strategy.
type Descriptor struct {
	Kind      Kind
	Type      string
	Namespace string
	Name      string
	Version   string

	metadataURL string
}

// Parse resolves a package URL. It never fails: anything that cannot be
// resolved is returned as KindUnsupported.
func Parse(s string) Descriptor {
	if s == "" {
		return Descriptor{}
	}
	p, err := packageurl.FromString(s)
	if err != nil || p.Name == "" {
		return Descriptor{}
	}

	d := Descriptor{
		Type:      p.Type,
		Namespace: p.Namespace,
		Name:      p.Name,
		Version:   p.Version,
	}

	eco, ok := ecosystems[p.Type]
	if !ok || (eco.twoPart && p.Namespace == "") {
		return d
	}

	d.Kind = eco.kind
	if eco.endpoint != nil {
		d.metadataURL = eco.endpoint(p.Namespace, p.Name)
	}
	return d
}

// MetadataURL returns the registry metadata endpoint of d, or "" when d is
// not a registry package.
func (d Descriptor) MetadataURL() string {
	return d.metadataURL
}

// Repository returns the owner and repository of a source host package.
func (d Descriptor) Repository() (owner, repo string, ok bool) {
	if d.Kind != KindSourceHost {
		return "", "", false
	}
	return d.Namespace, d.Name, true
}

// MetadataURL returns the registry metadata endpoint for a package URL, or ""
// when no registry lookup is possible.
func MetadataURL(s string) string {
	return Parse(s).MetadataURL()
}

func join(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "/" + name
}
