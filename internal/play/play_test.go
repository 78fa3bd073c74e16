/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package play

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"textadventure/internal/adventure"
)

func cave() adventure.Document {
	return adventure.Document{
		Title: "The Cave", Author: "Someone", Version: "1.0",
		Sections: []adventure.Section{
			{ID: 0, Text: "You stand at the mouth of a cave.", Options: []adventure.Option{
				{Text: "Enter", TargetID: 10},
				{Text: "Walk away", TargetID: 20},
			}},
			{ID: 10, Text: "It is dark.", Options: []adventure.Option{
				{Text: "Go back out", TargetID: 0},
				{Text: "Light a match", TargetID: 30},
			}},
			{ID: 20, Text: "You go home.", Options: []adventure.Option{}},
			{ID: 30, Text: "A dragon!", Options: []adventure.Option{}},
		},
	}
}

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(cave())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestSessionChooseAndBack(t *testing.T) {
	s := newSession(t)
	if s.Current().ID != 0 || s.Ended() {
		t.Fatalf("should start at entry: %+v", s.Current())
	}
	sec, err := s.Choose(1)
	if err != nil || sec.ID != 10 {
		t.Fatalf("choose 1: %v %+v", err, sec)
	}
	if _, err := s.Choose(3); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("choose 3: expected invalid choice, got %v", err)
	}
	if _, err := s.Choose(0); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("choose 0: expected invalid choice, got %v", err)
	}
	sec, _ = s.Choose(2)
	if sec.ID != 30 || !s.Ended() || s.Moves() != 2 {
		t.Fatalf("expected terminal 30 after 2 moves, got %d ended=%v moves=%d", sec.ID, s.Ended(), s.Moves())
	}
	if _, err := s.Choose(1); !errors.Is(err, ErrEnded) {
		t.Fatalf("choose after end: %v", err)
	}
	if !reflect.DeepEqual(s.Trail(), []int{0, 10}) {
		t.Fatalf("trail = %v", s.Trail())
	}

	sec, ok := s.Back()
	if !ok || sec.ID != 10 {
		t.Fatalf("back: ok=%v %+v", ok, sec)
	}
	sec, ok = s.Forward()
	if !ok || sec.ID != 30 {
		t.Fatalf("forward: ok=%v %+v", ok, sec)
	}
}

func TestSessionCyclesAreFine(t *testing.T) {
	s := newSession(t)
	for i := 0; i < 10; i++ {
		if _, err := s.Choose(1); err != nil { // 0 -> 10
			t.Fatalf("enter: %v", err)
		}
		if _, err := s.Choose(1); err != nil { // 10 -> 0
			t.Fatalf("leave: %v", err)
		}
	}
	if s.Current().ID != 0 || s.Moves() != 20 {
		t.Fatalf("at %d after %d moves", s.Current().ID, s.Moves())
	}
}

func TestSessionJumpAndRestore(t *testing.T) {
	s := newSession(t)
	if err := s.Jump(99); err == nil {
		t.Fatalf("jump to unknown section should fail")
	}
	if err := s.Jump(10); err != nil || s.Current().ID != 10 {
		t.Fatalf("jump: %v at %d", err, s.Current().ID)
	}
	s.Restore(5, []int{0, 42, 10})
	if s.Moves() != 5 || !reflect.DeepEqual(s.Trail(), []int{0, 10}) {
		t.Fatalf("restore: moves=%d trail=%v", s.Moves(), s.Trail())
	}
}

func TestSessionHistoryDepth(t *testing.T) {
	s, err := NewSession(cave(), WithHistoryDepth(2), WithClock(func() time.Time { return time.Unix(0, 0) }))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	for i := 0; i < 3; i++ {
		s.Choose(1)
		s.Choose(1)
	}
	if n := len(s.Trail()); n != 2 {
		t.Fatalf("trail length %d, want 2", n)
	}
}

func TestNewSessionRejectsEmptyDocument(t *testing.T) {
	if _, err := NewSession(adventure.Document{}); err == nil {
		t.Fatalf("expected error for empty document")
	}
}

func TestRunTranscript(t *testing.T) {
	s := newSession(t)
	var out bytes.Buffer
	err := Run(context.Background(), strings.NewReader("x\n7\n1\n2\n"), &out, s, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "The Cave\nby Someone\n1.0\n\n" +
		"You stand at the mouth of a cave.\n\n\n1) Enter\n2) Walk away\n\n" +
		"> > > \n" +
		"It is dark.\n\n\n1) Go back out\n2) Light a match\n\n" +
		"> \n" +
		"A dragon!\n\n\n\n"
	if got := out.String(); got != want {
		t.Fatalf("transcript mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRunQuitAndBack(t *testing.T) {
	s := newSession(t)
	var out bytes.Buffer
	err := Run(context.Background(), strings.NewReader("b\n1\nB\nq\n"), &out, s, Options{})
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if s.Current().ID != 0 {
		t.Fatalf("back should have returned to 0, at %d", s.Current().ID)
	}
	if strings.Count(out.String(), "You stand at the mouth") != 2 {
		t.Fatalf("entry should be shown twice:\n%s", out.String())
	}
}

func TestRunCustomKeysAndInputClosed(t *testing.T) {
	s := newSession(t)
	err := Run(context.Background(), strings.NewReader("q\n"), io.Discard, s, Options{QuitKey: "exit"})
	if !errors.Is(err, ErrInputClosed) {
		t.Fatalf("q is not the quit key here; expected ErrInputClosed, got %v", err)
	}
	err = Run(context.Background(), strings.NewReader("exit\n"), io.Discard, s, Options{QuitKey: "exit", SkipHeader: true})
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
}

func TestRunTerminalEntryNeedsNoInput(t *testing.T) {
	doc := adventure.Document{Title: "T", Author: "A", Version: "V", Sections: []adventure.Section{{ID: 0, Text: "The end."}}}
	s, _ := NewSession(doc)
	var out bytes.Buffer
	if err := Run(context.Background(), strings.NewReader(""), &out, s, Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out.String(), "> ") {
		t.Fatalf("terminal entry should not prompt: %q", out.String())
	}
}

func TestRunRecordsMoves(t *testing.T) {
	s := newSession(t)
	var moves []Move
	rec := RecorderFunc(func(_ context.Context, m Move) error {
		moves = append(moves, m)
		return errors.New("disk full") // must not stop the game
	})
	if err := Run(context.Background(), strings.NewReader("1\nb\n2\n"), io.Discard, s, Options{Recorder: rec}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(moves) != 3 {
		t.Fatalf("recorded %d moves, want 3", len(moves))
	}
	if m := moves[0]; m.From != 0 || m.To != 10 || m.Option != 1 || m.Ended {
		t.Fatalf("first move %+v", m)
	}
	if m := moves[1]; m.From != 10 || m.To != 0 || m.Option != 0 {
		t.Fatalf("back move %+v", m)
	}
	if m := moves[2]; m.To != 20 || !m.Ended || m.Moves != 2 {
		t.Fatalf("last move %+v", m)
	}
}

func TestRunHonoursContext(t *testing.T) {
	s := newSession(t)
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, pr, io.Discard, s, Options{}) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRunWrapsText(t *testing.T) {
	doc := adventure.Document{Title: "T", Author: "A", Version: "V", Sections: []adventure.Section{
		{ID: 0, Text: "one two three four five"},
	}}
	s, _ := NewSession(doc)
	var out bytes.Buffer
	if err := Run(context.Background(), strings.NewReader(""), &out, s, Options{WrapWidth: 9, SkipHeader: true}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "one two\nthree\nfour five\n") {
		t.Fatalf("not wrapped: %q", out.String())
	}
}
