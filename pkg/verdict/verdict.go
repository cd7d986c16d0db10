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

// Package verdict interprets the vulnerability service response.
//
// The first line of a response is the number of vulnerabilities found. Only
// a strictly positive integer fails the gate; anything else passes, and the
// whole response is kept for the operator either way.
package verdict

import (
	"strconv"
	"strings"
)

// Verdict is an interpreted service response.
type Verdict struct {
	// Count is the number of vulnerabilities, never negative.
	Count int
	// Asserted is false when the first line is not an integer.
	Asserted bool
	// Passed is false only for a positive count.
	Passed bool
	// Body is the response text, verbatim.
	Body string
}

// Interpret parses a response body.
func Interpret(body string) Verdict {
	v := Verdict{Body: body, Passed: true}

	first, _, _ := strings.Cut(body, "\n")
	n, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return v
	}
	v.Asserted = true
	if n > 0 {
		v.Count = n
		v.Passed = false
	}
	return v
}

// ExitCode is 0 for a passing verdict and 1 otherwise.
func (v Verdict) ExitCode() int {
	if v.Passed {
		return 0
	}
	return 1
}

// Err returns a *VulnerableError for a failing verdict, nil otherwise.
func (v Verdict) Err() error {
	if v.Passed {
		return nil
	}
	return &VulnerableError{Count: v.Count, Details: v.Body}
}

// VulnerableError reports that vulnerabilities were found.
type VulnerableError struct {
	Count   int
	Details string
}

func (e *VulnerableError) Error() string {
	return "vulnerabilities found:\n" + e.Details
}
