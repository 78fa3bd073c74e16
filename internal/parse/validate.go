/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"textadventure/internal/adventure"
)

// Validate checks the section graph of an assembled document. Checks run in a
// fixed order and the first failure is returned:
//  1. at least MinSections sections
//  2. no duplicate ids
//  3. no option pointing at its own section
//  4. every section but the entry is the target of some option
//  5. every option target exists
//
// Cycles between different sections are valid.
func Validate(doc adventure.Document, opts ...Option) error {
	s := newSettings(opts)
	return validate(doc, s.minSections, nil)
}

func validate(doc adventure.Document, minSections int, lay []layout) error {
	secPos := func(i int) (Position, bool) {
		if i < len(lay) {
			return lay[i].section, true
		}
		return Position{}, false
	}
	optPos := func(i, j int) (Position, bool) {
		if i < len(lay) && j < len(lay[i].options) {
			return lay[i].options[j], true
		}
		return Position{}, false
	}

	if n := len(doc.Sections); n < minSections {
		return &Error{Kind: KindTooFewSections, Count: n, Limit: minSections}
	}

	idx := adventure.NewIndex(doc)
	if len(idx.Duplicates) > 0 {
		dup := idx.Duplicates[0]
		e := &Error{Kind: KindDuplicateSection, ID: dup}
		// point at the second occurrence
		seen := false
		for i, s := range doc.Sections {
			if s.ID != dup {
				continue
			}
			if seen {
				e.Pos, e.HasPos = secPos(i)
				break
			}
			seen = true
		}
		return e
	}

	for i, s := range doc.Sections {
		for j, o := range s.Options {
			if o.TargetID == s.ID {
				e := &Error{Kind: KindSelfPointingSection, ID: s.ID}
				e.Pos, e.HasPos = optPos(i, j)
				return e
			}
		}
	}

	targeted := make(map[int]bool, len(doc.Sections))
	for _, s := range doc.Sections {
		for _, o := range s.Options {
			targeted[o.TargetID] = true
		}
	}
	for i, s := range doc.Sections {
		if i == 0 {
			continue
		}
		if !targeted[s.ID] {
			e := &Error{Kind: KindUnreachableSection, ID: s.ID}
			e.Pos, e.HasPos = secPos(i)
			return e
		}
	}

	for i, s := range doc.Sections {
		for j, o := range s.Options {
			if _, ok := idx.Lookup(o.TargetID); !ok {
				e := &Error{Kind: KindNonexistentSection, ID: s.ID, Target: o.TargetID}
				e.Pos, e.HasPos = optPos(i, j)
				return e
			}
		}
	}
	return nil
}
