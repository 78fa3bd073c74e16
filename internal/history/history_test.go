/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import (
	"testing"
	"time"
)

func at(i int) Entry { return Entry{Index: i, ID: i * 10, At: time.Unix(int64(i), 0)} }

func TestBackForward(t *testing.T) {
	s := New(Config{})
	s.Push(at(0))
	s.Push(at(1))
	// player now stands on 2
	e, ok := s.Back(at(2))
	if !ok || e.Index != 1 {
		t.Fatalf("back expected 1, got ok=%v %+v", ok, e)
	}
	e, ok = s.Back(e)
	if !ok || e.Index != 0 {
		t.Fatalf("back expected 0, got ok=%v %+v", ok, e)
	}
	if _, ok := s.Back(e); ok {
		t.Fatalf("back past the start should fail")
	}
	e, ok = s.Forward(at(0))
	if !ok || e.Index != 1 {
		t.Fatalf("forward expected 1, got ok=%v %+v", ok, e)
	}
	if back, fwd, _ := s.Stats(); back != 1 || fwd != 1 {
		t.Fatalf("stats back=%d fwd=%d", back, fwd)
	}
}

func TestPushClearsForward(t *testing.T) {
	s := New(Config{})
	s.Push(at(0))
	s.Back(at(1))
	s.Push(at(0))
	if _, ok := s.Forward(at(3)); ok {
		t.Fatalf("forward should be empty after a new move")
	}
}

func TestPushSameSectionRefreshes(t *testing.T) {
	s := New(Config{})
	s.Push(at(4))
	later := at(4)
	later.At = later.At.Add(time.Hour)
	s.Push(later)
	tr := s.Trail()
	if len(tr) != 1 || !tr[0].At.Equal(later.At) {
		t.Fatalf("expected one refreshed entry, got %+v", tr)
	}
}

func TestDepthCap(t *testing.T) {
	s := New(Config{MaxDepth: 3})
	for i := 0; i < 10; i++ {
		s.Push(at(i))
	}
	tr := s.Trail()
	if len(tr) != 3 || tr[0].Index != 7 || tr[2].Index != 9 {
		t.Fatalf("expected last three entries, got %+v", tr)
	}
	if _, _, dropped := s.Stats(); dropped != 7 {
		t.Fatalf("dropped = %d, want 7", dropped)
	}

	unlimited := New(Config{MaxDepth: -1})
	for i := 0; i < DefaultMaxDepth+5; i++ {
		unlimited.Push(at(i))
	}
	if back, _, _ := unlimited.Stats(); back != DefaultMaxDepth+5 {
		t.Fatalf("unlimited stack capped at %d", back)
	}
}

func TestClear(t *testing.T) {
	s := New(Config{})
	s.Push(at(0))
	s.Back(at(1))
	s.Clear()
	if back, fwd, _ := s.Stats(); back != 0 || fwd != 0 {
		t.Fatalf("clear left back=%d fwd=%d", back, fwd)
	}
}
