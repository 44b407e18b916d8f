/*
Copyright 2026 The Ordis Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package test provides common test helpers.
package test

import (
	"log"
	"os"
	"strings"
	"testing"
)

// TLog changes the log package's output to log to t and returns a
// function to reset it back to stderr.
func TLog(t testing.TB) func() {
	log.SetOutput(twriter{t: t})
	return func() {
		log.SetOutput(os.Stderr)
	}
}

type twriter struct {
	t testing.TB
}

func (w twriter) Write(p []byte) (n int, err error) {
	if w.t != nil {
		w.t.Log(strings.TrimSuffix(string(p), "\n"))
	}
	return len(p), nil
}
