/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package play walks a validated adventure: a Session tracks where the
// player stands and Run drives it from a line-oriented terminal.
package play

import (
	"errors"
	"fmt"
	"time"

	"textadventure/internal/adventure"
	"textadventure/internal/history"
)

var (
	// ErrEnded is returned by Choose once a terminal section is reached.
	ErrEnded = errors.New("play: adventure has ended")
	// ErrInvalidChoice reports an option number outside 1..len(options).
	ErrInvalidChoice = errors.New("play: invalid choice")
)

// Session is the playback state of one document.
// It is not safe for concurrent use; the history it owns is.
type Session struct {
	doc   adventure.Document
	idx   adventure.Index
	cur   int
	moves int
	hist  *history.Stack
	now   func() time.Time
}

// SessionOption tunes NewSession.
type SessionOption func(*Session)

// WithHistoryDepth bounds how far Back can go.
func WithHistoryDepth(n int) SessionOption {
	return func(s *Session) { s.hist = history.New(history.Config{MaxDepth: n}) }
}

// WithClock replaces time.Now for history timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession starts at the entry section. doc is expected to be validated.
func NewSession(doc adventure.Document, opts ...SessionOption) (*Session, error) {
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("play: document has no sections")
	}
	s := &Session{doc: doc, idx: adventure.NewIndex(doc), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.hist == nil {
		s.hist = history.New(history.Config{})
	}
	return s, nil
}

// Document returns the document being played.
func (s *Session) Document() adventure.Document { return s.doc }

// Current is the section the player stands on.
func (s *Session) Current() adventure.Section { return s.doc.Sections[s.cur] }

// Moves counts choices and jumps made so far; Back and Forward do not count.
func (s *Session) Moves() int { return s.moves }

// Ended reports whether the current section is terminal.
func (s *Session) Ended() bool { return s.Current().IsTerminal() }

// Choose follows option n (1-based) of the current section.
func (s *Session) Choose(n int) (adventure.Section, error) {
	if s.Ended() {
		return adventure.Section{}, ErrEnded
	}
	if n < 1 || n > len(s.Current().Options) {
		return adventure.Section{}, fmt.Errorf("%w: %d (1-%d)", ErrInvalidChoice, n, len(s.Current().Options))
	}
	target := s.Current().Options[n-1].TargetID
	ti, ok := s.idx.Lookup(target)
	if !ok {
		return adventure.Section{}, fmt.Errorf("play: section %d points at missing section %d", s.Current().ID, target)
	}
	s.hist.Push(s.entry())
	s.cur = ti
	s.moves++
	return s.Current(), nil
}

// Back returns to the previous section, if any.
func (s *Session) Back() (adventure.Section, bool) {
	e, ok := s.hist.Back(s.entry())
	if !ok {
		return adventure.Section{}, false
	}
	s.cur = e.Index
	return s.Current(), true
}

// Forward re-does a Back.
func (s *Session) Forward() (adventure.Section, bool) {
	e, ok := s.hist.Forward(s.entry())
	if !ok {
		return adventure.Section{}, false
	}
	s.cur = e.Index
	return s.Current(), true
}

// Jump moves to the section with the given id, used to resume saved progress.
// The history is cleared.
func (s *Session) Jump(id int) error {
	ti, ok := s.idx.Lookup(id)
	if !ok {
		return fmt.Errorf("play: no section %d", id)
	}
	s.hist.Clear()
	s.cur = ti
	return nil
}

// Restore sets the move counter and back trail, e.g. from a save game.
// Trail entries naming unknown sections are skipped.
func (s *Session) Restore(moves int, trail []int) {
	s.moves = moves
	s.hist.Clear()
	for _, id := range trail {
		if ti, ok := s.idx.Lookup(id); ok {
			s.hist.Push(history.Entry{Index: ti, ID: id, At: s.now()})
		}
	}
}

// Trail lists the ids Back would revisit, oldest first.
func (s *Session) Trail() []int {
	entries := s.hist.Trail()
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func (s *Session) entry() history.Entry {
	return history.Entry{Index: s.cur, ID: s.Current().ID, At: s.now()}
}
