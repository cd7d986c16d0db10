// Copyright 2022 Chainguard, Inc.
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

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"

	"github.com/aman-roy/zer0day-precommit/pkg/cli"
	"github.com/aman-roy/zer0day-precommit/pkg/verdict"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer done()

	if err := cli.New().ExecuteContext(ctx); err != nil {
		var ve *verdict.VulnerableError
		if errors.As(err, &ve) {
			clog.FromContext(ctx).Errorf("%d vulnerabilities found", ve.Count)
		} else {
			clog.FromContext(ctx).Errorf("error during command execution: %v", err)
		}
		done()
		os.Exit(1)
	}
}
