/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"textadventure/internal/adventure"
)

// tokenizer turns scanner output into tokens on the assembler stack.
// The accumulator is either empty, an id in progress or text in progress;
// delimiters are pushed as complete tokens. Every ']' hands control to the
// assembler through onClose.
type tokenizer struct {
	sc        *Scanner
	stack     *tokenStack
	acc       TokenType
	buf       strings.Builder
	start     Position
	pushed    int
	maxTokens int
	onClose   func(closePos Position) error
}

func (t *tokenizer) run() error {
	for {
		c, err := t.sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if err := t.step(c); err != nil {
			return err
		}
	}
	if t.acc != TokEmpty {
		return errAt(KindUnterminatedToken, t.start)
	}
	return nil
}

func (t *tokenizer) step(c Char) error {
	switch c.Rune {
	case '<':
		switch t.acc {
		case TokID:
			return errAt(KindNestedIDOpen, c.Pos)
		case TokText:
			if err := t.flush(); err != nil {
				return err
			}
		}
		t.begin(TokID, c.Pos)
		return nil

	case '>':
		switch t.acc {
		case TokEmpty:
			return errAt(KindUnmatchedIDClose, c.Pos)
		case TokText:
			if err := t.flush(); err != nil {
				return err
			}
			return errAt(KindUnmatchedIDClose, c.Pos)
		}
		if t.buf.Len() == 0 {
			return errAt(KindEmptyID, c.Pos)
		}
		return t.flush()

	case '[':
		switch t.acc {
		case TokID:
			return errAt(KindOptionsOpenInID, c.Pos)
		case TokText:
			if err := t.flush(); err != nil {
				return err
			}
		}
		return t.push(Token{Type: TokOpeningOptionsDelimiter, Pos: c.Pos})

	case ']':
		switch t.acc {
		case TokID:
			return errAt(KindOptionsCloseInID, c.Pos)
		case TokText:
			if err := t.flush(); err != nil {
				return err
			}
		}
		return t.onClose(c.Pos)
	}

	if unicode.IsSpace(c.Rune) {
		// Prose keeps its inner whitespace; everywhere else it separates tokens.
		if t.acc == TokText {
			t.buf.WriteRune(c.Rune)
		}
		return nil
	}
	if c.Rune >= '0' && c.Rune <= '9' {
		if t.acc == TokEmpty {
			t.begin(TokText, c.Pos)
		}
		t.buf.WriteRune(c.Rune)
		return nil
	}
	if t.acc == TokID {
		return errAt(KindNonDigitInID, c.Pos)
	}
	if t.acc == TokEmpty {
		t.begin(TokText, c.Pos)
	}
	t.buf.WriteRune(c.Rune)
	return nil
}

func (t *tokenizer) begin(tt TokenType, pos Position) {
	t.acc = tt
	t.start = pos
	t.buf.Reset()
}

// flush pushes the accumulated id or text, right-trimmed, and resets the accumulator.
func (t *tokenizer) flush() error {
	tok := Token{
		Type: t.acc,
		Text: strings.TrimRightFunc(t.buf.String(), unicode.IsSpace),
		Pos:  t.start,
	}
	t.acc = TokEmpty
	t.buf.Reset()
	if tok.Type == TokID {
		if n, err := strconv.Atoi(tok.Text); err != nil || n > adventure.MaxID {
			e := errAt(KindIDOutOfRange, tok.Pos)
			e.Detail = tok.Text
			return e
		}
	}
	return t.push(tok)
}

func (t *tokenizer) push(tok Token) error {
	t.pushed++
	if t.maxTokens > 0 && t.pushed > t.maxTokens {
		e := errAt(KindTooManyTokens, tok.Pos)
		e.Limit = t.maxTokens
		return e
	}
	t.stack.push(tok)
	return nil
}
