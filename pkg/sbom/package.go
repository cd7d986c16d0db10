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

// Package sbom holds the component model read from CycloneDX documents and
// the classified library records derived from it.
package sbom

import (
	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/aman-roy/zer0day-precommit/pkg/license"
)

// Component is a third-party component as listed in the SBOM.
type Component struct {
	Name    string
	Version string

	// PURL is the package URL of the component, if the SBOM carries one.
	PURL string

	// References are the external reference URLs, in document order. Entries
	// may be empty.
	References []string

	// Licenses are the declared license identifiers, in document order.
	Licenses []string
}

// Reference returns the first external reference URL, or "".
func (c Component) Reference() string {
	if len(c.References) == 0 {
		return ""
	}
	return c.References[0]
}

// Library is a component accepted as open-source. The field order is the
// order of the serialized artifact.
type Library struct {
	Name    string                `json:"name"`
	Version string                `json:"version"`
	License license.Determination `json:"license"`
	URL     string                `json:"url"`
}

// FromCycloneDX converts the top level components of a CycloneDX document.
func FromCycloneDX(bom *cdx.BOM) []Component {
	if bom == nil || bom.Components == nil {
		return []Component{}
	}

	out := make([]Component, 0, len(*bom.Components))
	for _, c := range *bom.Components {
		comp := Component{
			Name:    c.Name,
			Version: c.Version,
			PURL:    c.PackageURL,
		}
		if c.ExternalReferences != nil {
			for _, ref := range *c.ExternalReferences {
				comp.References = append(comp.References, ref.URL)
			}
		}
		if c.Licenses != nil {
			for _, choice := range *c.Licenses {
				if id := licenseID(choice); id != "" {
					comp.Licenses = append(comp.Licenses, id)
				}
			}
		}
		out = append(out, comp)
	}
	return out
}

// licenseID prefers the SPDX id, then the free-text name, then an expression.
func licenseID(choice cdx.LicenseChoice) string {
	if choice.License != nil {
		if choice.License.ID != "" {
			return choice.License.ID
		}
		return choice.License.Name
	}
	return choice.Expression
}
