/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package play

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Wrap breaks text into lines of at most cols terminal cells. Existing line
// breaks are kept, runs of spaces between words collapse to one, and a word
// longer than cols gets a line of its own. East Asian wide characters take two
// cells. cols <= 0 returns text unchanged.
func Wrap(text string, cols int) string {
	if cols <= 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + len(text)/cols + 1)
	for i, para := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		line := 0
		for _, word := range strings.Fields(para) {
			wc := Cells(word)
			switch {
			case line == 0:
			case line+1+wc > cols:
				b.WriteByte('\n')
				line = 0
			default:
				b.WriteByte(' ')
				line++
			}
			b.WriteString(word)
			line += wc
		}
	}
	return b.String()
}

// Cells is the display width of s.
func Cells(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
