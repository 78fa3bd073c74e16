/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package play

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"textadventure/internal/adventure"
	applog "textadventure/internal/log"
)

var (
	// ErrQuit is returned by Run when the player typed the quit key.
	ErrQuit = errors.New("play: quit")
	// ErrInputClosed is returned by Run when input ends before the adventure does.
	ErrInputClosed = errors.New("play: input closed")
)

// Move describes one step of the player, handed to a Recorder.
type Move struct {
	From   int // section id left
	To     int // section id reached
	Option int // 1-based option taken; 0 for back and forward
	Moves  int
	Trail  []int
	Ended  bool
	At     time.Time
}

// Recorder is notified after every move, typically to autosave.
type Recorder interface {
	Record(ctx context.Context, m Move) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, m Move) error

func (f RecorderFunc) Record(ctx context.Context, m Move) error { return f(ctx, m) }

// Options controls the terminal loop.
type Options struct {
	WrapWidth int    // 0 disables wrapping
	QuitKey   string // default "q"
	BackKey   string // default "b"
	// SkipHeader suppresses the title block, e.g. when resuming.
	SkipHeader bool
	Recorder   Recorder
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.QuitKey) == "" {
		o.QuitKey = "q"
	}
	if strings.TrimSpace(o.BackKey) == "" {
		o.BackKey = "b"
	}
	return o
}

// Run plays s on in/out until a terminal section is shown (nil), the player
// quits (ErrQuit), input ends (ErrInputClosed) or ctx is done.
//
// Output follows the classic layout: the header block, the section text, two
// blank lines, the numbered options, a blank line and the "> " prompt. Input
// that is not a valid option number is answered with a new prompt.
func Run(ctx context.Context, in io.Reader, out io.Writer, s *Session, opts Options) error {
	opts = opts.withDefaults()
	doc := s.Document()
	ctx = applog.ContextWith(ctx, slog.String("adventure", shortFingerprint(doc)))
	l := applog.WithOperation(applog.WithComponent("player"), "run")

	w := &errWriter{w: out}
	if !opts.SkipHeader {
		showHeader(w, doc)
	}
	showSection(w, s.Current(), opts.WrapWidth)
	if w.err != nil {
		return w.err
	}
	if s.Ended() {
		l.InfoContext(ctx, "adventure finished", slog.Int("section", s.Current().ID), slog.Int("moves", s.Moves()))
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, in)
	for {
		w.printf("> ")
		if w.err != nil {
			return w.err
		}
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-lines:
			if !ok {
				return ErrInputClosed
			}
			if r.err != nil {
				return fmt.Errorf("read input: %w", r.err)
			}
			line = strings.TrimSpace(r.text)
		}

		from := s.Current().ID
		var mv Move
		switch {
		case strings.EqualFold(line, opts.QuitKey):
			l.InfoContext(ctx, "player quit", slog.Int("section", from), slog.Int("moves", s.Moves()))
			return ErrQuit
		case strings.EqualFold(line, opts.BackKey):
			if _, ok := s.Back(); !ok {
				continue
			}
		default:
			n, err := strconv.Atoi(line)
			if err != nil {
				continue
			}
			if _, err := s.Choose(n); err != nil {
				if errors.Is(err, ErrInvalidChoice) {
					continue
				}
				return err
			}
			mv.Option = n
		}

		mv.From, mv.To = from, s.Current().ID
		mv.Moves, mv.Trail, mv.Ended, mv.At = s.Moves(), s.Trail(), s.Ended(), time.Now()
		l.DebugContext(ctx, "moved", slog.Int("from", mv.From), slog.Int("to", mv.To), slog.Int("option", mv.Option))
		if opts.Recorder != nil {
			if err := opts.Recorder.Record(ctx, mv); err != nil {
				l.WarnContext(ctx, "recording move failed", slog.Any("err", err))
			}
		}

		w.printf("\n")
		showSection(w, s.Current(), opts.WrapWidth)
		if w.err != nil {
			return w.err
		}
		if s.Ended() {
			l.InfoContext(ctx, "adventure finished", slog.Int("section", s.Current().ID), slog.Int("moves", s.Moves()))
			return nil
		}
	}
}

func showHeader(w *errWriter, doc adventure.Document) {
	w.printf("%s\nby %s\n%s\n\n", doc.Title, doc.Author, doc.Version)
}

func showSection(w *errWriter, sec adventure.Section, width int) {
	w.printf("%s\n\n\n", Wrap(sec.Text, width))
	for i, o := range sec.Options {
		w.printf("%d) %s\n", i+1, o.Text)
	}
	w.printf("\n")
}

type lineResult struct {
	text string
	err  error
}

// readLines feeds input lines to the loop so that a blocked read does not
// keep Run from noticing a cancelled context.
func readLines(ctx context.Context, in io.Reader) <-chan lineResult {
	ch := make(chan lineResult)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- lineResult{text: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case ch <- lineResult{err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func shortFingerprint(doc adventure.Document) string {
	fp := adventure.Fingerprint(doc)
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
