/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package adventure

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Index maps section ids to their position in Document.Sections.
// When ids repeat, the first occurrence wins and the id is listed in Duplicates.
type Index struct {
	byID       map[int]int
	Duplicates []int
}

// NewIndex builds the id lookup for d once.
func NewIndex(d Document) Index {
	idx := Index{byID: make(map[int]int, len(d.Sections))}
	for i, s := range d.Sections {
		if _, seen := idx.byID[s.ID]; seen {
			idx.Duplicates = append(idx.Duplicates, s.ID)
			continue
		}
		idx.byID[s.ID] = i
	}
	return idx
}

// Lookup returns the section index for id.
func (x Index) Lookup(id int) (int, bool) {
	i, ok := x.byID[id]
	return i, ok
}

// Len is the number of distinct ids.
func (x Index) Len() int { return len(x.byID) }

// Fingerprint returns a stable content hash of d, used to key saved progress
// and catalog entries independent of the file the document was read from.
func Fingerprint(d Document) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(d.Title)
	write(d.Author)
	write(d.Version)
	for _, s := range d.Sections {
		write(strconv.Itoa(s.ID))
		write(s.Text)
		for _, o := range s.Options {
			write(strconv.Itoa(o.TargetID))
			write(o.Text)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
