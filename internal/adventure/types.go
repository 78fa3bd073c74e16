/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package adventure defines the parsed, validated story document handed from the
// parser to the player and the exporters. Values are produced once by the parser
// and treated as read-only afterwards.
package adventure

import (
	"fmt"
	"math"
)

// MaxOptions is the maximum number of options a single section may offer.
const MaxOptions = 5

// MaxID is the largest section id either source format accepts.
const MaxID = math.MaxInt32

// Document is a complete adventure: header plus sections in source order.
// The order of Sections only matters for the entry section (index 0); ids are
// looked up, never used as indexes.
type Document struct {
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Version  string    `json:"version"`
	Sections []Section `json:"sections"`
}

// Section is one narrative unit. A section without options is terminal.
type Section struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Option is a labeled choice pointing at another section by id.
type Option struct {
	Text     string `json:"text"`
	TargetID int    `json:"id"`
}

// IsTerminal reports whether playback ends at this section.
func (s Section) IsTerminal() bool { return len(s.Options) == 0 }

// Entry returns the section playback starts at.
func (d Document) Entry() (Section, bool) {
	if len(d.Sections) == 0 {
		return Section{}, false
	}
	return d.Sections[0], true
}

// IndexOf returns the position of the section with the given id, or -1.
func (d Document) IndexOf(id int) int {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return i
		}
	}
	return -1
}

// SectionByID looks up a section by its id.
func (d Document) SectionByID(id int) (Section, bool) {
	i := d.IndexOf(id)
	if i < 0 {
		return Section{}, false
	}
	return d.Sections[i], true
}

// Resolve follows option optionIndex (0-based) of the section at sectionIndex
// and returns the target section together with its index.
func (d Document) Resolve(sectionIndex, optionIndex int) (Section, int, error) {
	if sectionIndex < 0 || sectionIndex >= len(d.Sections) {
		return Section{}, -1, fmt.Errorf("section index %d out of range", sectionIndex)
	}
	sec := d.Sections[sectionIndex]
	if optionIndex < 0 || optionIndex >= len(sec.Options) {
		return Section{}, -1, fmt.Errorf("section %d has no option %d", sec.ID, optionIndex+1)
	}
	target := sec.Options[optionIndex].TargetID
	ti := d.IndexOf(target)
	if ti < 0 {
		return Section{}, -1, fmt.Errorf("section %d: option %d points at missing section %d", sec.ID, optionIndex+1, target)
	}
	return d.Sections[ti], ti, nil
}
