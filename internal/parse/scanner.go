/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"bufio"
	"errors"
	"io"
)

// Char is one decoded character together with the number of raw bytes it
// occupied and the position it was read at.
type Char struct {
	Rune rune
	Size int
	Pos  Position
}

// Scanner yields decoded characters from a byte stream and tracks row/column.
// Invalid byte sequences come back as utf8.RuneError with Size 1.
type Scanner struct {
	r       *bufio.Reader
	pos     Position
	prevPos Position
	last    Char
	canBack bool
}

// NewScanner wraps r. Rows and columns start at 1.
func NewScanner(r io.Reader) *Scanner {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Scanner{r: br, pos: Position{Row: 1, Col: 1}}
}

// Next returns the next character. At end of stream it returns io.EOF; any
// other error is a read failure from the underlying reader.
func (s *Scanner) Next() (Char, error) {
	r, size, err := s.r.ReadRune()
	if err != nil {
		s.canBack = false
		if errors.Is(err, io.EOF) {
			return Char{}, io.EOF
		}
		return Char{}, err
	}
	c := Char{Rune: r, Size: size, Pos: s.pos}
	s.prevPos = s.pos
	if r == '\n' {
		s.pos.Row++
		s.pos.Col = 1
	} else {
		s.pos.Col++
	}
	s.last = c
	s.canBack = true
	return c, nil
}

// Unread pushes the last character back for callers that need one character
// of lookahead; the tokenizer reads strictly forward and never calls it. Only
// one step is supported, and the position is restored exactly, including the
// column before a newline.
func (s *Scanner) Unread() error {
	if !s.canBack {
		return errors.New("scanner: nothing to unread")
	}
	if err := s.r.UnreadRune(); err != nil {
		return err
	}
	s.pos = s.prevPos
	s.canBack = false
	return nil
}

// Pos is the position of the character Next would return.
func (s *Scanner) Pos() Position { return s.pos }
