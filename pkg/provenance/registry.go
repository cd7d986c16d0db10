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

package provenance

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aman-roy/zer0day-precommit/pkg/license"
)

// noLicenseMarker is shown by documentation pages for modules without a
// detected license.
const noLicenseMarker = "No license found"

var errNoSignal = errors.New("registry metadata carries no open-source signal")

// isDocumentationPage reports whether endpoint serves an HTML licenses tab
// rather than JSON metadata.
func isDocumentationPage(endpoint string) bool {
	return strings.Contains(endpoint, "tab=licenses")
}

// inspect applies the registry signals in priority order:
//
//	info.license     PyPI        license text checked against the lexicon
//	license          npm         license text checked against the lexicon
//	items            NuGet       non-empty listing
//	response.docs    Maven       non-empty search result
//	versions         NuGet, npm  listing
//	crate            crates.io   listing
//	package          Packagist   listing
//	licenses tab     pkg.go.dev  page without the no-license marker
func inspect(endpoint string, body []byte, lexicon *license.Lexicon) (bool, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		if isDocumentationPage(endpoint) {
			return !bytes.Contains(body, []byte(noLicenseMarker)), nil
		}
		return false, err
	}

	if raw, ok := doc["info"]; ok {
		var info map[string]json.RawMessage
		if json.Unmarshal(raw, &info) == nil {
			if lic, ok := info["license"]; ok {
				return licensed(lic, lexicon)
			}
		}
	}
	if lic, ok := doc["license"]; ok {
		return licensed(lic, lexicon)
	}
	if raw, ok := doc["items"]; ok && truthy(raw) {
		return true, nil
	}
	if raw, ok := doc["response"]; ok {
		var resp struct {
			Docs []json.RawMessage `json:"docs"`
		}
		if json.Unmarshal(raw, &resp) == nil && len(resp.Docs) > 0 {
			return true, nil
		}
	}
	for _, key := range []string{"versions", "crate", "package"} {
		if _, ok := doc[key]; ok {
			return true, nil
		}
	}
	if isDocumentationPage(endpoint) {
		return !bytes.Contains(body, []byte(noLicenseMarker)), nil
	}
	return false, errNoSignal
}

// licensed checks a license field. Only a string is a usable license.
func licensed(raw json.RawMessage, lexicon *license.Lexicon) (bool, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, errors.New("registry license field is not a string")
	}
	return lexicon.IsOpenSource(s), nil
}

// truthy reports whether a JSON value is non-empty.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return false
}
