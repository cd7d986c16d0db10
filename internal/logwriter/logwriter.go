// Copyright 2024 Chainguard, Inc.
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

// Package logwriter turns line oriented output into log records.
package logwriter

import (
	"bytes"
	"io"
	"sync"
)

// New returns a writer that calls log once per complete line, prefixed with
// prefix. Close flushes a trailing partial line.
func New(log func(string, ...any), prefix string) io.WriteCloser {
	return &lineWriter{log: log, prefix: prefix}
}

type lineWriter struct {
	mu     sync.Mutex
	log    func(string, ...any)
	prefix string
	buf    bytes.Buffer
}

func (l *lineWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.buf.Write(p)
	for {
		line, lerr := l.buf.ReadString('\n')
		if lerr != nil {
			l.buf.WriteString(line)
			break
		}
		l.emit(line[:len(line)-1])
	}
	return n, err
}

func (l *lineWriter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buf.Len() != 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
	return nil
}

func (l *lineWriter) emit(line string) {
	line = trimCR(line)
	if line == "" {
		return
	}
	// Lines are data, never a format string.
	l.log("%s%s", l.prefix, line)
}

func trimCR(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\r' {
		return s[:n-1]
	}
	return s
}
