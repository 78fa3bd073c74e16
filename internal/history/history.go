/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history keeps the back/forward trail of a play session.
package history

import (
	"sync"
	"time"
)

// Entry is one visited position. Index points into Document.Sections; ID is
// the section id kept for display and persistence.
type Entry struct {
	Index int
	ID    int
	At    time.Time
}

// Config bounds the trail.
type Config struct {
	// MaxDepth caps the back stack; the oldest entries are dropped first.
	// 0 means DefaultMaxDepth, negative means unlimited.
	MaxDepth int
}

// DefaultMaxDepth is used when Config.MaxDepth is 0.
const DefaultMaxDepth = 256

// Stack is a bounded back/forward stack. It is safe for concurrent use so an
// autosave goroutine may read it while the player moves.
type Stack struct {
	cfg     Config
	mu      sync.Mutex
	back    []Entry
	forward []Entry
	dropped int
}

func New(cfg Config) *Stack {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Stack{cfg: cfg}
}

// Push records the position being left. A new move invalidates the forward
// stack. Pushing the section already on top only refreshes its timestamp.
func (s *Stack) Push(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forward = nil
	if n := len(s.back); n > 0 && s.back[n-1].Index == e.Index {
		s.back[n-1].At = e.At
		return
	}
	s.back = append(s.back, e)
	s.enforceCapLocked()
}

// Back pops the previous position and pushes current onto the forward stack.
func (s *Stack) Back(current Entry) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.back)
	if n == 0 {
		return Entry{}, false
	}
	e := s.back[n-1]
	s.back = s.back[:n-1]
	s.forward = append(s.forward, current)
	return e, true
}

// Forward undoes a Back.
func (s *Stack) Forward(current Entry) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.forward)
	if n == 0 {
		return Entry{}, false
	}
	e := s.forward[n-1]
	s.forward = s.forward[:n-1]
	s.back = append(s.back, current)
	s.enforceCapLocked()
	return e, true
}

// Trail returns a copy of the back stack, oldest first.
func (s *Stack) Trail() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.back...)
}

// Clear drops both stacks.
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.back, s.forward = nil, nil
}

// Stats returns the stack depths and how many entries the cap discarded.
func (s *Stack) Stats() (back, forward, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.back), len(s.forward), s.dropped
}

func (s *Stack) enforceCapLocked() {
	if s.cfg.MaxDepth < 0 || len(s.back) <= s.cfg.MaxDepth {
		return
	}
	toDrop := len(s.back) - s.cfg.MaxDepth
	s.dropped += toDrop
	s.back = append([]Entry(nil), s.back[toDrop:]...)
}
