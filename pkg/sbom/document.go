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
	"fmt"
	"io"
	"os"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

// Decode reads a CycloneDX JSON document and returns its components.
func Decode(r io.Reader) ([]Component, error) {
	bom := new(cdx.BOM)
	if err := cdx.NewBOMDecoder(r, cdx.BOMFileFormatJSON).Decode(bom); err != nil {
		return nil, fmt.Errorf("decoding CycloneDX document: %w", err)
	}
	return FromCycloneDX(bom), nil
}

// Load reads the CycloneDX JSON document at path.
func Load(path string) ([]Component, error) {
	f, err := os.Open(path) // #nosec G304 - SBOM path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening SBOM: %w", err)
	}
	defer f.Close()

	comps, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return comps, nil
}
