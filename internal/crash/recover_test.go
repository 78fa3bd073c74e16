/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func silenceStderr(t *testing.T) {
	t.Helper()
	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w
	done := make(chan struct{})
	go func() { _, _ = io.Copy(io.Discard, r); close(done) }()
	t.Cleanup(func() {
		_ = w.Close()
		<-done
		os.Stderr = oldStderr
	})
}

func interceptExit(t *testing.T) *int {
	t.Helper()
	code := -1
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = oldExit })
	return &code
}

func crashReports(t *testing.T, dir string) []string {
	t.Helper()
	files, _ := os.ReadDir(dir)
	var out []string
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log") {
			out = append(out, filepath.Join(dir, f.Name()))
		}
	}
	return out
}

func TestWriteReportContents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crashes")
	path, err := writeReport(dir, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report written to %s, want under %s", path, dir)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "Text Adventure Crash Report") || !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "stacktrace") {
		t.Fatalf("report content: %s", s)
	}
}

func TestRecoverWritesReportAndAutosaves(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	dir := t.TempDir()

	saved := 0
	func() {
		defer Recover(dir, AutosaverFunc(func() (string, error) {
			saved++
			return "section 4", nil
		}))
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	if saved != 1 {
		t.Fatalf("autosave ran %d times", saved)
	}
	reports := crashReports(t, dir)
	if len(reports) != 1 {
		t.Fatalf("expected one crash report, got %v", reports)
	}
}

func TestRecoverSurvivesFailingAutosaver(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	dir := t.TempDir()

	func() {
		defer Recover(dir, AutosaverFunc(func() (string, error) { panic("nested") }))
		panic("outer")
	}()
	if *code != 2 {
		t.Fatalf("expected exit code 2 after panicking autosaver, got %d", *code)
	}

	*code = -1
	func() {
		defer Recover(dir, AutosaverFunc(func() (string, error) { return "", errors.New("disk full") }))
		panic("again")
	}()
	if *code != 2 {
		t.Fatalf("expected exit code 2 after failing autosaver, got %d", *code)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	code := interceptExit(t)
	func() {
		defer Recover(t.TempDir(), nil)
	}()
	if *code != -1 {
		t.Fatalf("exit called without a panic: %d", *code)
	}
}
