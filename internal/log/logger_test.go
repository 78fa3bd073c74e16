/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	sc := bufio.NewScanner(bytes.NewReader(b))
	var last string
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log %q: %v", last, err)
	}
	return m
}

func TestInitWritesRotatedJSONFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "adventure.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Console: &console})
	t.Cleanup(func() { _ = Close() })

	l := WithOperation(WithComponent("player"), "run")
	l.Info("section shown", slog.Int("section", 3))
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSONLine(t, b)
	if m["app"] != "textadventure" {
		t.Fatalf("app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "player" || m["op"] != "run" {
		t.Fatalf("component/op: %v %v", m["component"], m["op"])
	}
	if m["section"] != float64(3) || m["msg"] != "section shown" {
		t.Fatalf("record: %v", m)
	}
	if c := lastJSONLine(t, console.Bytes()); c["msg"] != "section shown" {
		t.Fatalf("console copy missing: %v", c)
	}
}

func TestContextAttributesAreAttached(t *testing.T) {
	var console bytes.Buffer
	Init(Options{Level: "info", Format: "json", Console: &console})

	ctx := ContextWith(context.Background(), slog.String("adventure", "abc123"))
	ctx = ContextWith(ctx, slog.Int("section", 7))
	WithComponent("player").InfoContext(ctx, "choice")

	m := lastJSONLine(t, console.Bytes())
	if m["adventure"] != "abc123" || m["section"] != float64(7) {
		t.Fatalf("context attrs missing: %v", m)
	}

	console.Reset()
	WithComponent("player").Info("plain")
	if m := lastJSONLine(t, console.Bytes()); m["adventure"] != nil {
		t.Fatalf("context attrs leaked: %v", m)
	}
}

func TestLevelFiltering(t *testing.T) {
	var console bytes.Buffer
	Init(Options{Level: "warn", Console: &console})
	L().Info("hidden")
	L().Warn("shown")
	out := console.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "WRN shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TA_LOG_LEVEL", "warn")
	t.Setenv("TA_LOG_FORMAT", "json")
	t.Setenv("TA_LOG_SOURCE", "TRUE")
	t.Setenv("TA_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("TA_SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestPrettyTextHandler(t *testing.T) {
	var buf bytes.Buffer
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &buf}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("grp")
	r := slog.NewRecord(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true), slog.String("text", "two words"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	want := "2025-01-02T03:04:05Z ERR boom k=v grp.n=42 grp.pi=3.14 grp.ok=true grp.text=\"two words\"\n"
	if got := buf.String(); got != want {
		t.Fatalf("output\n got: %q\nwant: %q", got, want)
	}
}
