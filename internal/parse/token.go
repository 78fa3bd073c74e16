/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

// TokenType is the kind of a token on the assembler stack.
type TokenType int

const (
	TokEmpty TokenType = iota
	TokID
	TokText
	TokOpeningOptionsDelimiter
)

func (t TokenType) String() string {
	switch t {
	case TokID:
		return "ID"
	case TokText:
		return "TEXT"
	case TokOpeningOptionsDelimiter:
		return "OPENING_OPTIONS_DELIMITER"
	default:
		return "EMPTY"
	}
}

// Token is a completed lexical unit. Pos is the opening '<' for ids, the first
// character for text and the '[' itself for delimiters.
type Token struct {
	Type TokenType
	Text string
	Pos  Position
}

// tokenStack holds completed tokens; sections are assembled by popping from the top.
type tokenStack struct {
	items []Token
}

func (s *tokenStack) push(t Token) { s.items = append(s.items, t) }

// pop returns the top token, or an Empty token when the stack is exhausted.
func (s *tokenStack) pop() Token {
	n := len(s.items)
	if n == 0 {
		return Token{Type: TokEmpty}
	}
	t := s.items[n-1]
	s.items = s.items[:n-1]
	return t
}

func (s *tokenStack) peek() Token {
	if len(s.items) == 0 {
		return Token{Type: TokEmpty}
	}
	return s.items[len(s.items)-1]
}

func (s *tokenStack) len() int { return len(s.items) }
