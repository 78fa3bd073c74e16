/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package adventure

import "testing"

func sample() Document {
	return Document{
		Title: "t", Author: "a", Version: "v",
		Sections: []Section{
			{ID: 10, Text: "start", Options: []Option{{Text: "go", TargetID: 3}}},
			{ID: 3, Text: "end"},
		},
	}
}

func TestLookupDoesNotUseIDAsIndex(t *testing.T) {
	d := sample()
	s, ok := d.SectionByID(3)
	if !ok || s.Text != "end" {
		t.Fatalf("expected section 3 'end', got ok=%v %+v", ok, s)
	}
	if _, ok := d.SectionByID(0); ok {
		t.Fatalf("section 0 should not exist")
	}
	if !s.IsTerminal() {
		t.Fatalf("section without options must be terminal")
	}
}

func TestResolve(t *testing.T) {
	d := sample()
	s, i, err := d.Resolve(0, 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.ID != 3 || i != 1 {
		t.Fatalf("expected section 3 at index 1, got id=%d idx=%d", s.ID, i)
	}
	if _, _, err := d.Resolve(0, 1); err == nil {
		t.Fatalf("expected error for missing option")
	}
	if _, _, err := d.Resolve(5, 0); err == nil {
		t.Fatalf("expected error for bad section index")
	}
}

func TestIndexDuplicates(t *testing.T) {
	d := sample()
	d.Sections = append(d.Sections, Section{ID: 10, Text: "again"})
	idx := NewIndex(d)
	if idx.Len() != 2 {
		t.Fatalf("expected 2 distinct ids, got %d", idx.Len())
	}
	if len(idx.Duplicates) != 1 || idx.Duplicates[0] != 10 {
		t.Fatalf("expected duplicate 10, got %v", idx.Duplicates)
	}
	if i, ok := idx.Lookup(10); !ok || i != 0 {
		t.Fatalf("first occurrence should win, got %d %v", i, ok)
	}
}

func TestFingerprintStable(t *testing.T) {
	a, b := sample(), sample()
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("fingerprint should be deterministic")
	}
	b.Sections[1].Text = "other"
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatalf("fingerprint should change with content")
	}
}
