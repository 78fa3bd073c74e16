/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestScannerDecodesMultiByteCharacters(t *testing.T) {
	sc := NewScanner(strings.NewReader("aé€😀"))
	wantSizes := []int{1, 2, 3, 4}
	for i, want := range wantSizes {
		c, err := sc.Next()
		if err != nil {
			t.Fatalf("char %d: %v", i, err)
		}
		if c.Size != want {
			t.Fatalf("char %d (%q): size %d, want %d", i, c.Rune, c.Size, want)
		}
		if c.Pos.Row != 1 || c.Pos.Col != i+1 {
			t.Fatalf("char %d: pos %v, want 1:%d", i, c.Pos, i+1)
		}
	}
	if _, err := sc.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestScannerNewlineResetsColumn(t *testing.T) {
	sc := NewScanner(strings.NewReader("ab\ncd"))
	var last Char
	for i := 0; i < 4; i++ {
		c, err := sc.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		last = c
	}
	if last.Rune != 'c' || last.Pos != (Position{Row: 2, Col: 1}) {
		t.Fatalf("expected 'c' at 2:1, got %q at %v", last.Rune, last.Pos)
	}
}

func TestScannerUnreadRestoresPositionAcrossNewline(t *testing.T) {
	sc := NewScanner(strings.NewReader("ab\nc"))
	for i := 0; i < 3; i++ { // a, b, \n
		if _, err := sc.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	if got := sc.Pos(); got != (Position{Row: 2, Col: 1}) {
		t.Fatalf("after newline pos %v, want 2:1", got)
	}
	if err := sc.Unread(); err != nil {
		t.Fatalf("unread: %v", err)
	}
	if got := sc.Pos(); got != (Position{Row: 1, Col: 3}) {
		t.Fatalf("after unread pos %v, want 1:3", got)
	}
	c, err := sc.Next()
	if err != nil || c.Rune != '\n' || c.Pos != (Position{Row: 1, Col: 3}) {
		t.Fatalf("re-read newline: %q at %v err=%v", c.Rune, c.Pos, err)
	}
	if err := sc.Unread(); err != nil {
		t.Fatalf("unread: %v", err)
	}
	if err := sc.Unread(); err == nil {
		t.Fatalf("second unread should fail")
	}
}

func TestScannerInvalidBytesBecomeReplacement(t *testing.T) {
	sc := NewScanner(strings.NewReader("\xffa"))
	c, err := sc.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if c.Rune != utf8.RuneError || c.Size != 1 {
		t.Fatalf("expected RuneError of size 1, got %q size %d", c.Rune, c.Size)
	}
	c, _ = sc.Next()
	if c.Rune != 'a' || c.Pos.Col != 2 {
		t.Fatalf("expected 'a' at col 2, got %q at %v", c.Rune, c.Pos)
	}
}
